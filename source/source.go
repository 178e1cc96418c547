// Package source lists and reads the files a Checker scans: a local
// directory, an object store bucket or a remote SFTP tree.
//
// Backends live in subpackages and register a URL scheme when imported:
//
//	import (
//	    "github.com/gobeaver/lockscan/source"
//	    _ "github.com/gobeaver/lockscan/source/s3"
//	)
//
//	src, err := source.Open(ctx, "s3://uploads/incoming/?region=eu-west-1")
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// Object is one file in a Source
type Object struct {
	// Path is slash-separated and relative to the source root
	Path string
	// Size in bytes, or -1 when unknown
	Size int64
}

// WalkFunc is called for every file of a Source. When err is non-nil it
// describes a listing failure at obj.Path. Returning an error stops the
// walk and Walk returns that error.
type WalkFunc func(obj Object, err error) error

// Source is a tree of files that can be listed and read
type Source interface {
	// Walk calls fn for every regular file, directories excluded
	Walk(ctx context.Context, fn WalkFunc) error

	// Open reads the file at a path reported by Walk. A missing file
	// yields an error wrapping fs.ErrNotExist.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Close releases connections held by the source
	Close() error
}

var (
	// ErrUnknownScheme is returned by Open for a URL scheme no imported
	// backend registered
	ErrUnknownScheme = errors.New("unknown source scheme")

	// ErrOutsideRoot is returned when a path escapes the source root
	ErrOutsideRoot = errors.New("path outside source root")
)

// Factory creates a Source from a URL
type Factory func(ctx context.Context, u *url.URL) (Source, error)

var (
	factories    = make(map[string]Factory)
	factoryMutex sync.RWMutex
)

// Register registers a factory for a URL scheme
func Register(scheme string, factory Factory) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	factories[strings.ToLower(scheme)] = factory
}

// Schemes returns the registered schemes, sorted
func Schemes() []string {
	factoryMutex.RLock()
	defer factoryMutex.RUnlock()

	schemes := make([]string, 0, len(factories))
	for s := range factories {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// Open creates a Source for rawURL. A URL without a scheme is a local
// path and uses the "file" scheme.
func Open(ctx context.Context, rawURL string) (Source, error) {
	u, err := Parse(rawURL)
	if err != nil {
		return nil, err
	}

	factoryMutex.RLock()
	factory, exists := factories[u.Scheme]
	factoryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, u.Scheme)
	}
	return factory(ctx, u)
}

// Parse parses a source URL. Plain paths, including Windows drive paths,
// become file URLs.
func Parse(rawURL string) (*url.URL, error) {
	if !strings.Contains(rawURL, "://") {
		return &url.URL{Scheme: "file", Path: rawURL}, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid source URL: %w", err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	return u, nil
}

// Prefix returns the object key prefix of a bucket URL path: no leading
// slash, and a trailing slash unless empty.
func Prefix(p string) string {
	p = strings.TrimPrefix(p, "/")
	if p != "" && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}
