package detector

import (
	"fmt"
	"strings"
)

// TrailSeparator joins trail names in TrailString.
const TrailSeparator = " -> "

// Result is the outcome of one check.
type Result struct {
	// Protected reports whether a password-protected artifact was found.
	Protected bool

	// Trail lists the names from the root blob down to the first protected
	// artifact. It is empty when Protected is false.
	Trail []string

	// Format is the format of the protected artifact, or of the root blob
	// when nothing was protected.
	Format Tag
}

// TrailString renders the trail as "root -> ... -> leaf".
func (r *Result) TrailString() string {
	return strings.Join(r.Trail, TrailSeparator)
}

// Leaf returns the name of the protected artifact, or "" if none.
func (r *Result) Leaf() string {
	if len(r.Trail) == 0 {
		return ""
	}
	return r.Trail[len(r.Trail)-1]
}

// String returns a human-readable summary of the result.
func (r *Result) String() string {
	if !r.Protected {
		return fmt.Sprintf("not protected (%s)", r.Format)
	}
	if len(r.Trail) == 0 {
		return fmt.Sprintf("protected (%s)", r.Format)
	}
	return fmt.Sprintf("protected (%s): %s", r.Format, r.TrailString())
}

// appendName returns a new trail with name appended. The input is never
// modified, so sibling branches cannot see each other's names.
func appendName(trail []string, name string) []string {
	if name == "" {
		return trail
	}
	out := make([]string, len(trail), len(trail)+1)
	copy(out, trail)
	return append(out, name)
}
