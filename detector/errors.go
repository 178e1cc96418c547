package detector

import (
	"errors"
	"fmt"
)

var (
	// ErrTooShort is returned when a blob without a name hint is shorter
	// than MinSniffLength. No probing is attempted.
	ErrTooShort = errors.New("stream too short to identify")

	// ErrCorrupt matches every CorruptError via errors.Is.
	ErrCorrupt = errors.New("corrupt container")

	// ErrLimitExceeded is returned when a depth, size, entry count or
	// compression ratio guard trips.
	ErrLimitExceeded = errors.New("inspection limit exceeded")
)

// CorruptError reports a container that was recognized but violates its own
// structure: a bad BOF record, a malformed PDF trailer, a damaged zip or
// compound file directory.
type CorruptError struct {
	// Format is the format the blob was dispatched as.
	Format Tag

	// Name is the name hint of the blob, when it had one.
	Name string

	// Message describes what was wrong.
	Message string

	// Err is the underlying parser error, if any.
	Err error
}

// Error implements the error interface.
func (e *CorruptError) Error() string {
	msg := fmt.Sprintf("corrupt %s", e.Format)
	if e.Name != "" {
		msg += fmt.Sprintf(" %q", e.Name)
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Is makes every CorruptError match ErrCorrupt.
func (e *CorruptError) Is(target error) bool {
	return target == ErrCorrupt
}

// NewCorruptError creates a new CorruptError.
func NewCorruptError(format Tag, message string, err error) *CorruptError {
	return &CorruptError{
		Format:  format,
		Message: message,
		Err:     err,
	}
}

// IsCorrupt checks if an error reports a corrupt container.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorrupt)
}

// IsTooShort checks if an error reports an unidentifiable short stream.
func IsTooShort(err error) bool {
	return errors.Is(err, ErrTooShort)
}

// IsLimitExceeded checks if an error reports a tripped inspection limit.
func IsLimitExceeded(err error) bool {
	return errors.Is(err, ErrLimitExceeded)
}

// GetCorruptFormat returns the format of a CorruptError, or Unknown if err is not one.
func GetCorruptFormat(err error) Tag {
	var corruptErr *CorruptError
	if errors.As(err, &corruptErr) {
		return corruptErr.Format
	}
	return Unknown
}

func limitError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrLimitExceeded}, args...)...)
}
