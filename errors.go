package lockscan

import (
	"errors"
	"fmt"

	"github.com/gobeaver/lockscan/detector"
)

// Errors reported by checks
var (
	ErrTooShort      = detector.ErrTooShort
	ErrCorrupt       = detector.ErrCorrupt
	ErrLimitExceeded = detector.ErrLimitExceeded
	ErrNotRegular    = errors.New("not a regular file")
)

// PathError records an error and the operation and file path that caused it
type PathError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *PathError) Unwrap() error {
	return e.Err
}

// IsTooShort reports whether an error indicates a nameless blob too short
// to identify
func IsTooShort(err error) bool {
	return errors.Is(err, ErrTooShort)
}

// IsCorrupt reports whether an error indicates a recognized but corrupt
// container
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorrupt)
}

// IsLimitExceeded reports whether an error indicates a tripped size, depth
// or entry count guard
func IsLimitExceeded(err error) bool {
	return errors.Is(err, ErrLimitExceeded)
}
