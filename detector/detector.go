package detector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gobeaver/lockscan/compound"
)

// Detector walks a blob and its nested containers looking for the first
// password-protected artifact. A Detector is safe for concurrent use once
// configured.
type Detector struct {
	// Registry supplies the probe or container for each format. Nil means
	// GetDefaultRegistry().
	Registry *Registry

	// Limits bounds the walk.
	Limits Limits

	// SniffUnknownExtensions makes a name hint with an unrecognized
	// extension fall back to content sniffing instead of yielding Unknown.
	SniffUnknownExtensions bool

	// Logger receives debug output about dispatch decisions. Nil discards.
	Logger *slog.Logger
}

// New creates a detector with the default registry and limits.
func New() *Detector {
	return &Detector{
		Registry: GetDefaultRegistry(),
		Limits:   DefaultLimits(),
	}
}

// Check reports whether data, or anything nested inside it, is password
// protected. name is an optional file name used as a format hint and as the
// first element of the trail. Without a name, data shorter than
// MinSniffLength fails with ErrTooShort.
func (d *Detector) Check(ctx context.Context, data []byte, name string) (*Result, error) {
	if name == "" && len(data) < MinSniffLength {
		return nil, fmt.Errorf("%w: got %d bytes, need %d", ErrTooShort, len(data), MinSniffLength)
	}
	return d.walk(ctx, data, name, nil, 0)
}

// Resolve returns the tag a blob would be dispatched as.
func (d *Detector) Resolve(data []byte, name string) Tag {
	if name != "" {
		if tag := FromName(name); tag != Unknown || !d.SniffUnknownExtensions {
			return tag
		}
	}
	if len(data) < MinSniffLength {
		return Unknown
	}

	if compound.IsCompound(data) {
		if root, err := compound.Open(data); err == nil {
			if tag := IdentifyCompound(root.StreamNames()); tag != Unknown {
				return tag
			}
		}
	}
	return Identify(data)
}

func (d *Detector) walk(ctx context.Context, data []byte, name string, trail []string, depth int) (*Result, error) {
	if d.Limits.MaxDepth > 0 && depth > d.Limits.MaxDepth {
		return nil, limitError("nesting depth %d exceeds %d at %q", depth, d.Limits.MaxDepth, name)
	}

	trail = appendName(trail, name)
	tag := d.Resolve(data, name)
	probe, container := d.registry().Lookup(tag)

	d.logger().Debug("dispatch",
		slog.String("name", name),
		slog.String("format", tag.String()),
		slog.Int("depth", depth),
		slog.Int("size", len(data)))

	switch {
	case probe != nil:
		protected, err := probe.Probe(ctx, data)
		if err != nil {
			return nil, annotate(err, tag, name)
		}
		if !protected {
			return &Result{Format: tag}, nil
		}
		d.logger().Debug("protected artifact found",
			slog.String("format", tag.String()),
			slog.Any("trail", trail))
		return &Result{Protected: true, Trail: trail, Format: tag}, nil

	case container != nil:
		return d.expand(ctx, container, tag, data, name, trail, depth)

	default:
		return &Result{Format: tag}, nil
	}
}

// expand walks the children of a container. A child the container marks as
// encrypted wins outright; otherwise children are walked in order and the
// first protected one ends the search.
func (d *Detector) expand(ctx context.Context, container Container, tag Tag, data []byte, name string, trail []string, depth int) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	children, err := container.Children(ctx, data, d.Limits)
	if err != nil {
		return nil, annotate(err, tag, name)
	}

	for _, child := range children {
		if child.Encrypted {
			leaf := appendName(trail, child.Name)
			d.logger().Debug("encrypted entry found",
				slog.String("format", tag.String()),
				slog.Any("trail", leaf))
			return &Result{Protected: true, Trail: leaf, Format: tag}, nil
		}
	}

	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if child.Open == nil {
			continue
		}
		blob, err := child.Open()
		if err != nil {
			return nil, annotate(err, tag, name)
		}
		if blob == nil {
			continue
		}

		res, err := d.walk(ctx, blob, child.Name, trail, depth+1)
		if err != nil {
			return nil, err
		}
		if res.Protected {
			return res, nil
		}
	}

	return &Result{Format: tag}, nil
}

func (d *Detector) registry() *Registry {
	if d.Registry == nil {
		return GetDefaultRegistry()
	}
	return d.Registry
}

func (d *Detector) logger() *slog.Logger {
	if d.Logger == nil {
		return discardLogger
	}
	return d.Logger
}

var discardLogger = slog.New(slog.DiscardHandler)

// annotate fills in the blob name and format of a CorruptError raised by a
// handler that only saw bytes.
func annotate(err error, tag Tag, name string) error {
	var corruptErr *CorruptError
	if errors.As(err, &corruptErr) {
		if corruptErr.Name == "" {
			corruptErr.Name = name
		}
		if corruptErr.Format == Unknown {
			corruptErr.Format = tag
		}
	}
	return err
}
