package detector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

var pdfHeader = []byte("%PDF-")

// PDFProbe detects password protection in PDF files by looking for an
// Encrypt entry in the trailer. A PDF with an empty user password is still
// reported as protected.
type PDFProbe struct {
	// HeaderSearchLimit is how far into the file the %PDF- header may start.
	HeaderSearchLimit int
}

// DefaultPDFProbe creates a PDF probe with sensible defaults.
func DefaultPDFProbe() *PDFProbe {
	return &PDFProbe{
		HeaderSearchLimit: 1024,
	}
}

// Probe implements Probe.
func (p *PDFProbe) Probe(_ context.Context, data []byte) (protected bool, err error) {
	head := data
	if p.HeaderSearchLimit > 0 && len(head) > p.HeaderSearchLimit {
		head = head[:p.HeaderSearchLimit]
	}
	start := bytes.Index(head, pdfHeader)
	if start < 0 {
		return false, NewCorruptError(PDF, "missing %PDF- header", nil)
	}
	data = normalizePDFHeader(data[start:])

	defer func() {
		if r := recover(); r != nil {
			protected = false
			err = NewCorruptError(PDF, "unreadable document structure", fmt.Errorf("%v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	switch {
	case err == nil:
		return !reader.Trailer().Key("Encrypt").IsNull(), nil
	case errors.Is(err, pdf.ErrInvalidPassword), hasEncryptKey(trailerSection(data)):
		// Encryption the reader cannot set up still means a password.
		return true, nil
	default:
		return false, NewCorruptError(PDF, "malformed trailer", err)
	}
}

// normalizePDFHeader rewrites a version the reader does not accept (PDF 2.0)
// to 1.7 in a copy of data. Offsets are unchanged.
func normalizePDFHeader(data []byte) []byte {
	if len(data) < 8 || bytes.HasPrefix(data, []byte("%PDF-1.")) {
		return data
	}
	if data[5] < '0' || data[5] > '9' || data[6] != '.' {
		return data
	}
	out := make([]byte, len(data))
	copy(out, data)
	copy(out[5:8], "1.7")
	return out
}

// trailerSection returns the part of data holding the last trailer
// dictionary: from the offset named by the last startxref (a classic xref
// table or an xref stream), or else from the last trailer keyword. It is
// nil when neither can be found.
func trailerSection(data []byte) []byte {
	if i := bytes.LastIndex(data, []byte("startxref")); i >= 0 {
		fields := strings.Fields(string(data[i+len("startxref") : min(len(data), i+len("startxref")+32)]))
		if len(fields) > 0 {
			if off, err := strconv.Atoi(fields[0]); err == nil && off >= 0 && off < i {
				return data[off:i]
			}
		}
	}
	if i := bytes.LastIndex(data, []byte("trailer")); i >= 0 {
		return data[i:]
	}
	return nil
}

var encryptKey = []byte("/Encrypt")

// hasEncryptKey reports whether data contains an /Encrypt name token.
// /EncryptMetadata and similar longer names do not count.
func hasEncryptKey(data []byte) bool {
	for rest := data; ; {
		i := bytes.Index(rest, encryptKey)
		if i < 0 {
			return false
		}
		rest = rest[i+len(encryptKey):]
		if len(rest) == 0 || !isNameChar(rest[0]) {
			return true
		}
	}
}

func isNameChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
