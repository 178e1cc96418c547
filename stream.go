package lockscan

import (
	"context"
	"fmt"
	"io"

	"github.com/gobeaver/lockscan/detector"
)

// ProgressFunc reports stream reading progress. total is the declared size,
// or -1 when unknown.
type ProgressFunc func(bytesRead int64, total int64)

// progressStep is the minimum number of bytes between progress reports
const progressStep = 1 * detector.MB

// CheckStream reads r fully, up to MaxFileSize, and checks the content
func (c *Checker) CheckStream(ctx context.Context, r io.Reader, nameHint string) (*Result, error) {
	return c.CheckSizedStream(ctx, r, -1, nameHint)
}

// CheckSizedStream is CheckStream for a reader of known size. A size above
// MaxFileSize is rejected before anything is read.
func (c *Checker) CheckSizedStream(ctx context.Context, r io.Reader, size int64, nameHint string) (*Result, error) {
	if size > c.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: stream is %s, limit %s", ErrLimitExceeded,
			detector.FormatSizeReadable(size),
			detector.FormatSizeReadable(c.cfg.MaxFileSize))
	}

	src := io.LimitReader(r, c.cfg.MaxFileSize+1)
	if c.progress != nil {
		src = &progressReader{
			reader:        src,
			progress:      c.progress,
			size:          size,
			reportingStep: progressStep,
		}
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	if int64(len(data)) > c.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: stream exceeds %s", ErrLimitExceeded,
			detector.FormatSizeReadable(c.cfg.MaxFileSize))
	}
	return c.CheckBytes(ctx, data, nameHint)
}

// progressReader is a reader that reports progress
type progressReader struct {
	reader        io.Reader
	progress      ProgressFunc
	size          int64
	bytesRead     int64
	lastReported  int64
	reportingStep int64
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.bytesRead += int64(n)
	}

	// Report every reportingStep bytes and once at the end
	if r.bytesRead-r.lastReported >= r.reportingStep ||
		(err == io.EOF && r.bytesRead != r.lastReported) {
		r.progress(r.bytesRead, r.size)
		r.lastReported = r.bytesRead
	}
	return n, err
}
