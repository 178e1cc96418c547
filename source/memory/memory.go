// Package memory is an in-memory Source, useful for tests and for checking
// files that were never written to disk. It registers the "memory" scheme,
// which yields an empty source.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/gobeaver/lockscan/source"
)

func init() {
	source.Register("memory", func(context.Context, *url.URL) (source.Source, error) {
		return New(), nil
	})
}

// Adapter provides an in-memory implementation of source.Source
type Adapter struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// New creates an empty in-memory source
func New() *Adapter {
	return &Adapter{files: make(map[string][]byte)}
}

// Put stores a file. The content is copied.
func (a *Adapter) Put(p string, content []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files[normalize(p)] = bytes.Clone(content)
}

// Delete removes a file
func (a *Adapter) Delete(p string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.files, normalize(p))
}

// Walk implements source.Source. Files are visited in path order.
func (a *Adapter) Walk(ctx context.Context, fn source.WalkFunc) error {
	a.mu.RLock()
	paths := make([]string, 0, len(a.files))
	sizes := make(map[string]int64, len(a.files))
	for p, content := range a.files {
		paths = append(paths, p)
		sizes[p] = int64(len(content))
	}
	a.mu.RUnlock()

	sort.Strings(paths)
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(source.Object{Path: p, Size: sizes[p]}, nil); err != nil {
			return err
		}
	}
	return nil
}

// Open implements source.Source
func (a *Adapter) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	content, ok := a.files[normalize(p)]
	a.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("open %s: %w", p, fs.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

// Close implements source.Source
func (a *Adapter) Close() error {
	return nil
}

func normalize(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

var _ source.Source = (*Adapter)(nil)
