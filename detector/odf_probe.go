package detector

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
)

const odfManifestPath = "META-INF/manifest.xml"

// encryptionDataMarker appears in the manifest entry of every encrypted
// OpenDocument part.
var encryptionDataMarker = []byte("ENCRYPTION-DATA")

// ODFProbe detects password protection in OpenDocument files by looking for
// encryption data in the package manifest.
type ODFProbe struct {
	MaxManifestSize int64
}

// DefaultODFProbe creates an OpenDocument probe with sensible defaults.
func DefaultODFProbe() *ODFProbe {
	return &ODFProbe{
		MaxManifestSize: 10 * MB,
	}
}

// Probe implements Probe.
func (p *ODFProbe) Probe(_ context.Context, data []byte) (bool, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false, NewCorruptError(OpenDocument, "invalid ZIP structure", err)
	}

	for _, file := range zipReader.File {
		if !strings.EqualFold(file.Name, odfManifestPath) {
			continue
		}
		if p.MaxManifestSize > 0 && file.UncompressedSize64 > uint64(p.MaxManifestSize) {
			return false, limitError("manifest is %s (max: %s)",
				FormatSizeReadable(int64(file.UncompressedSize64)), FormatSizeReadable(p.MaxManifestSize))
		}

		rc, err := file.Open()
		if err != nil {
			return false, NewCorruptError(OpenDocument, "unreadable manifest", err)
		}
		manifest, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return false, NewCorruptError(OpenDocument, "unreadable manifest", err)
		}

		return bytes.Contains(bytes.ToUpper(manifest), encryptionDataMarker), nil
	}

	return false, nil
}
