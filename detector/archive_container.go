package detector

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
)

// zipFlagEncrypted is general purpose bit 0 of a zip entry header.
const zipFlagEncrypted = 0x1

// ratioFloor is the entry size below which the compression ratio is not
// checked. Small runs of padding legitimately compress far beyond any
// sensible bomb threshold.
const ratioFloor = 1 * MB

// ZipContainer expands ZIP archives into their file entries.
// Entries flagged as encrypted are reported without being opened.
type ZipContainer struct{}

// DefaultZipContainer creates a zip container.
func DefaultZipContainer() *ZipContainer {
	return &ZipContainer{}
}

// Children implements Container. zip.NewReader reads only the central
// directory; entry bodies are decompressed when a child is opened.
func (c *ZipContainer) Children(_ context.Context, data []byte, limits Limits) ([]Child, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, NewCorruptError(Zip, "invalid ZIP structure", err)
	}

	if limits.MaxEntries > 0 && len(zipReader.File) > limits.MaxEntries {
		return nil, limitError("archive contains too many files: %d (max: %d)",
			len(zipReader.File), limits.MaxEntries)
	}

	var totalUncompressedSize uint64
	children := make([]Child, 0, len(zipReader.File))

	for _, file := range zipReader.File {
		if file.FileInfo().IsDir() || strings.HasSuffix(file.Name, "/") {
			continue
		}

		encrypted := file.Flags&zipFlagEncrypted != 0
		if !encrypted {
			if err := checkRatio(file, limits); err != nil {
				return nil, err
			}
		}

		totalUncompressedSize += file.UncompressedSize64
		if limits.MaxUncompressedSize > 0 && totalUncompressedSize > uint64(limits.MaxUncompressedSize) { //nolint:gosec // MaxUncompressedSize is positive here
			return nil, limitError("archive would expand to %s (max: %s)",
				FormatSizeReadable(int64(totalUncompressedSize)), FormatSizeReadable(limits.MaxUncompressedSize)) //nolint:gosec // bounded by MaxUncompressedSize
		}

		entry := file
		children = append(children, Child{
			Name:      file.Name,
			Encrypted: encrypted,
			Open: func() ([]byte, error) {
				return readZipEntry(entry, limits.MaxEntrySize)
			},
		})
	}

	return children, nil
}

func checkRatio(file *zip.File, limits Limits) error {
	if limits.MaxCompressionRatio <= 0 || file.CompressedSize64 == 0 {
		return nil
	}
	if file.UncompressedSize64 < uint64(ratioFloor) {
		return nil
	}
	ratio := float64(file.UncompressedSize64) / float64(file.CompressedSize64)
	if ratio > limits.MaxCompressionRatio {
		return limitError("suspicious compression ratio for %s: %.2f:1 (max: %.2f:1)",
			file.Name, ratio, limits.MaxCompressionRatio)
	}
	return nil
}

// readZipEntry decompresses one entry, refusing to produce more than max
// bytes even if the header understates the size.
func readZipEntry(file *zip.File, max int64) ([]byte, error) {
	if max > 0 && file.UncompressedSize64 > uint64(max) {
		return nil, limitError("entry %s is %s (max: %s)",
			file.Name, FormatSizeReadable(int64(file.UncompressedSize64)), FormatSizeReadable(max)) //nolint:gosec // compared against max above
	}

	rc, err := file.Open()
	if err != nil {
		return nil, NewCorruptError(Zip, fmt.Sprintf("cannot open entry %s", file.Name), err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if max > 0 {
		r = io.LimitReader(rc, max+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, NewCorruptError(Zip, fmt.Sprintf("cannot read entry %s", file.Name), err)
	}
	if max > 0 && int64(len(data)) > max {
		return nil, limitError("entry %s expands beyond %s", file.Name, FormatSizeReadable(max))
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}
