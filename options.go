package lockscan

import (
	"log/slog"

	"github.com/gobeaver/lockscan/detector"
)

// Option represents a configuration option
type Option func(*Options)

// Options contains everything a Checker can be customized with beyond Config
type Options struct {
	// Logger receives check outcomes and, at Debug, dispatch decisions.
	// Nil discards.
	Logger *slog.Logger

	// Cache stores results keyed by Fingerprint. It overrides
	// Config.CacheEnabled.
	Cache Cache

	// Registry replaces the default probe and container registry
	Registry *detector.Registry

	// Limits replaces the limits derived from Config
	Limits *detector.Limits

	// Progress is called while CheckStream reads its input
	Progress ProgressFunc
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithCache sets the result cache
func WithCache(cache Cache) Option {
	return func(o *Options) {
		o.Cache = cache
	}
}

// WithRegistry sets the probe and container registry
func WithRegistry(registry *detector.Registry) Option {
	return func(o *Options) {
		o.Registry = registry
	}
}

// WithLimits sets the container walk limits
func WithLimits(limits detector.Limits) Option {
	return func(o *Options) {
		o.Limits = &limits
	}
}

// WithProgress sets a callback reporting how much of a stream has been read
func WithProgress(fn ProgressFunc) Option {
	return func(o *Options) {
		o.Progress = fn
	}
}
