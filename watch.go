package lockscan

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchSettle is how long a file must go without write events before it is
// checked, so partially written files are not reported as corrupt.
var watchSettle = 200 * time.Millisecond

// Watch checks files created or written in dir whose base name matches
// pattern, until ctx is done or fn returns an error. Subdirectories are not
// watched. Watcher errors are passed to fn with an empty path.
func (c *Checker) Watch(ctx context.Context, dir, pattern string, fn ScanFunc) error {
	g, err := compilePattern(pattern)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return &PathError{Op: "watch", Path: dir, Err: err}
	}

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(watchSettle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !g.Match(filepath.Base(event.Name)) {
				continue
			}
			pending[event.Name] = time.Now()

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if err := fn("", nil, &PathError{Op: "watch", Path: dir, Err: werr}); err != nil {
				return stopErr(err)
			}

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < watchSettle {
					continue
				}
				delete(pending, path)

				res, err := c.CheckFile(ctx, path)
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				if err != nil {
					err = fn(path, nil, err)
				} else {
					err = fn(path, res, nil)
				}
				if err != nil {
					return stopErr(err)
				}
			}
		}
	}
}

func stopErr(err error) error {
	if errors.Is(err, SkipAll) {
		return nil
	}
	return err
}
