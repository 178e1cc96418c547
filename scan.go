package lockscan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"

	"github.com/gobwas/glob"

	"github.com/gobeaver/lockscan/source"
	"github.com/gobeaver/lockscan/source/local"
)

// SkipAll can be returned from a ScanFunc to stop a scan without error
var SkipAll = fs.SkipAll

// ScanFunc receives the outcome of checking one file. Exactly one of res
// and err is non-nil. Returning a non-nil error stops the scan; SkipAll
// stops it quietly.
type ScanFunc func(path string, res *Result, err error) error

// compilePattern compiles a glob over slash-separated paths. An empty
// pattern matches everything.
func compilePattern(pattern string) (glob.Glob, error) {
	if pattern == "" {
		pattern = "**"
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return g, nil
}

// ScanSource checks every file of src whose slash-separated path matches
// pattern, e.g. "**.docx" or "mail/*.{eml,msg}". Per-file failures are
// passed to fn rather than stopping the scan. fn receives source paths.
func (c *Checker) ScanSource(ctx context.Context, src source.Source, pattern string, fn ScanFunc) error {
	g, err := compilePattern(pattern)
	if err != nil {
		return err
	}

	err = src.Walk(ctx, func(obj source.Object, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			return fn(obj.Path, nil, &PathError{Op: "scan", Path: obj.Path, Err: walkErr})
		}
		if !g.Match(obj.Path) {
			return nil
		}

		res, err := c.checkObject(ctx, src, obj)
		if err != nil {
			return fn(obj.Path, nil, &PathError{Op: "scan", Path: obj.Path, Err: err})
		}
		return fn(obj.Path, res, nil)
	})
	if errors.Is(err, SkipAll) {
		return nil
	}
	return err
}

func (c *Checker) checkObject(ctx context.Context, src source.Source, obj source.Object) (*Result, error) {
	rc, err := src.Open(ctx, obj.Path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return c.CheckSizedStream(ctx, rc, obj.Size, path.Base(obj.Path))
}

// ScanURL opens the source named by rawURL, scans it like ScanSource and
// closes it. The backend for the URL scheme must be imported.
func (c *Checker) ScanURL(ctx context.Context, rawURL, pattern string, fn ScanFunc) error {
	src, err := source.Open(ctx, rawURL)
	if err != nil {
		return err
	}
	defer src.Close()

	return c.ScanSource(ctx, src, pattern, fn)
}

// ScanDir checks every regular file below root whose root-relative,
// slash-separated path matches pattern. fn receives local paths.
func (c *Checker) ScanDir(ctx context.Context, root, pattern string, fn ScanFunc) error {
	src, err := local.New(root)
	if err != nil {
		return &PathError{Op: "scan", Path: root, Err: err}
	}

	return c.ScanSource(ctx, src, pattern, func(p string, res *Result, err error) error {
		fullPath := filepath.Join(root, filepath.FromSlash(p))
		var pathErr *PathError
		if errors.As(err, &pathErr) {
			pathErr.Path = fullPath
		}
		return fn(fullPath, res, err)
	})
}
