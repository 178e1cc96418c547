// Package local is a Source over a directory on the local filesystem. It
// registers the "file" scheme.
package local

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobeaver/lockscan/source"
)

func init() {
	source.Register("file", func(_ context.Context, u *url.URL) (source.Source, error) {
		return New(filepath.FromSlash(u.Host + u.Path))
	})
}

// Adapter provides a local directory implementation of source.Source
type Adapter struct {
	root string
}

// New creates a source rooted at dir
func New(dir string) (*Adapter, error) {
	absRoot, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &Adapter{root: absRoot}, nil
}

// Root returns the absolute root directory
func (a *Adapter) Root() string {
	return a.root
}

// FullPath returns the local path of a slash-separated source path
func (a *Adapter) FullPath(p string) (string, error) {
	fullPath := filepath.Join(a.root, filepath.FromSlash(p))
	if !isPathUnderRoot(a.root, fullPath) {
		return "", fmt.Errorf("%w: %s", source.ErrOutsideRoot, p)
	}
	return fullPath, nil
}

// Walk implements source.Source
func (a *Adapter) Walk(ctx context.Context, fn source.WalkFunc) error {
	return filepath.WalkDir(a.root, func(fullPath string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(a.root, fullPath)
		if err != nil {
			return fn(source.Object{Path: filepath.ToSlash(fullPath), Size: -1}, err)
		}
		rel = filepath.ToSlash(rel)

		if walkErr != nil {
			return fn(source.Object{Path: rel, Size: -1}, walkErr)
		}
		if !d.Type().IsRegular() {
			return nil
		}

		size := int64(-1)
		if info, err := d.Info(); err == nil {
			size = info.Size()
		}
		return fn(source.Object{Path: rel, Size: size}, nil)
	})
}

// Open implements source.Source
func (a *Adapter) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := a.FullPath(p)
	if err != nil {
		return nil, err
	}
	return os.Open(fullPath) //nolint:gosec // confined to root above
}

// Close implements source.Source
func (a *Adapter) Close() error {
	return nil
}

func isPathUnderRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return !filepath.IsAbs(rel) && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

var _ source.Source = (*Adapter)(nil)
