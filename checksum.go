package lockscan

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns the cache key of a blob checked under a name hint.
// The hint is part of the key because it drives dispatch and names the
// root of the trail.
func Fingerprint(data []byte, nameHint string) string {
	h := xxhash.New()
	_, _ = h.Write(data)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(nameHint)
	return fmt.Sprintf("%016x-%x", h.Sum64(), len(data))
}
