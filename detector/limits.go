package detector

import "fmt"

// Size constants for easier limit configuration.
const (
	KB = int64(1024)
	MB = KB * 1024
	GB = MB * 1024
)

// Limits bounds the work done for a single check. A zero field disables
// that guard.
type Limits struct {
	// MaxDepth is the deepest container nesting that is expanded. The root
	// blob is depth 0.
	MaxDepth int

	// MaxEntrySize is the largest child (zip entry, attachment, embedded
	// message) that is materialized in memory.
	MaxEntrySize int64

	// MaxEntries is the maximum number of entries a single container may
	// hold. Prevents file count bombs.
	MaxEntries int

	// MaxUncompressedSize is the maximum total uncompressed size of one zip
	// archive. Prevents decompression bombs that expand to terabytes.
	MaxUncompressedSize int64

	// MaxCompressionRatio is the maximum uncompressed/compressed ratio of a
	// zip entry larger than one megabyte. Zip bombs often have ratios of
	// 1000:1 or higher.
	MaxCompressionRatio float64
}

// DefaultLimits returns limits suited to untrusted mail and upload traffic.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:            16,
		MaxEntrySize:        256 * MB,
		MaxEntries:          10000,
		MaxUncompressedSize: 1 * GB,
		MaxCompressionRatio: 1000.0,
	}
}

// FormatSizeReadable formats a byte count in human-readable form.
func FormatSizeReadable(size int64) string {
	switch {
	case size >= GB:
		return fmt.Sprintf("%.2f GB", float64(size)/float64(GB))
	case size >= MB:
		return fmt.Sprintf("%.2f MB", float64(size)/float64(MB))
	case size >= KB:
		return fmt.Sprintf("%.2f KB", float64(size)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
