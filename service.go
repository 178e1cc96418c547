package lockscan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gobeaver/beaver-kit/config"

	"github.com/gobeaver/lockscan/detector"
)

// Result is the outcome of a check
type Result = detector.Result

// Global instance
var (
	defaultChecker *Checker
	defaultOnce    sync.Once
	defaultErr     error
)

// Builder provides a way to create Checker instances with custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// Init initializes the global Checker instance using the builder's prefix
func (b *Builder) Init() error {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return err
	}
	return Init(cfg)
}

// New creates a new Checker instance using the builder's prefix
func (b *Builder) New(opts ...Option) (*Checker, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// Init initializes the global checker
func Init(configs ...*Config) error {
	defaultOnce.Do(func() {
		var cfg *Config
		if len(configs) > 0 {
			cfg = configs[0]
		} else {
			cfg, defaultErr = GetConfig()
			if defaultErr != nil {
				return
			}
		}

		defaultChecker, defaultErr = New(cfg)
	})

	return defaultErr
}

// Default returns the global checker. Init must have succeeded first.
func Default() *Checker {
	return defaultChecker
}

// Reset clears the global instance (for testing)
func Reset() {
	defaultChecker = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}

// Checker checks blobs, streams and files for password protection. It is
// safe for concurrent use.
type Checker struct {
	detector *detector.Detector
	cfg      Config
	cache    Cache
	cacheTTL time.Duration
	logger   *slog.Logger
	progress ProgressFunc
}

// New creates a checker with the given config
func New(cfg *Config, opts ...Option) (*Checker, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	limits := cfg.Limits()
	if options.Limits != nil {
		limits = *options.Limits
	}

	registry := options.Registry
	if registry == nil {
		registry = detector.GetDefaultRegistry()
	}

	cache := options.Cache
	if cache == nil && cfg.CacheEnabled {
		cache = NewMemoryCache(DefaultCacheCapacity)
	}

	return &Checker{
		detector: &detector.Detector{
			Registry:               registry,
			Limits:                 limits,
			SniffUnknownExtensions: cfg.SniffUnknownExtensions,
			Logger:                 logger,
		},
		cfg:      *cfg,
		cache:    cache,
		cacheTTL: time.Duration(cfg.CacheTTLSeconds) * time.Second,
		logger:   logger,
		progress: options.Progress,
	}, nil
}

// NewDefault creates a checker with DefaultConfig
func NewDefault(opts ...Option) (*Checker, error) {
	return New(DefaultConfig(), opts...)
}

// CheckBytes checks an in-memory blob. nameHint is optional; without it,
// data shorter than 100 bytes fails with ErrTooShort.
func (c *Checker) CheckBytes(ctx context.Context, data []byte, nameHint string) (*Result, error) {
	var key string
	if c.cache != nil {
		key = Fingerprint(data, nameHint)
		if res, ok := c.cache.Get(key); ok {
			return cloneResult(res), nil
		}
	}

	res, err := c.detector.Check(ctx, data, nameHint)
	if err != nil {
		c.logger.Debug("check failed", "name", nameHint, "size", len(data), "error", err)
		return nil, err
	}

	if res.Protected {
		c.logger.Info("protected content found",
			"name", nameHint,
			"format", res.Format.String(),
			"trail", res.TrailString())
	}

	if c.cache != nil {
		c.cache.Set(key, cloneResult(res), c.cacheTTL)
	}
	return res, nil
}

// CheckFile checks the file at path, using its base name as the hint
func (c *Checker) CheckFile(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &PathError{Op: "check", Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &PathError{Op: "check", Path: path, Err: ErrNotRegular}
	}
	if info.Size() > c.cfg.MaxFileSize {
		return nil, &PathError{Op: "check", Path: path, Err: fmt.Errorf("%w: file is %s, limit %s",
			ErrLimitExceeded,
			detector.FormatSizeReadable(info.Size()),
			detector.FormatSizeReadable(c.cfg.MaxFileSize))}
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the caller
	if err != nil {
		return nil, &PathError{Op: "check", Path: path, Err: err}
	}

	res, err := c.CheckBytes(ctx, data, filepath.Base(path))
	if err != nil {
		return nil, &PathError{Op: "check", Path: path, Err: err}
	}
	return res, nil
}

// CacheStats returns statistics of the result cache. The second value is
// false when caching is disabled or the cache does not report statistics.
func (c *Checker) CacheStats() (CacheStatistics, bool) {
	if s, ok := c.cache.(CacheStats); ok {
		return s.Stats(), true
	}
	return CacheStatistics{}, false
}

// Detector returns the underlying detector
func (c *Checker) Detector() *detector.Detector {
	return c.detector
}

// Config returns a copy of the checker's configuration
func (c *Checker) Config() Config {
	return c.cfg
}

func cloneResult(r *Result) *Result {
	out := *r
	out.Trail = append([]string(nil), r.Trail...)
	return &out
}
