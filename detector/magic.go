package detector

import (
	"bytes"
	"encoding/binary"
	"strings"
)

// MinSniffLength is the shortest blob that is identified by content when it
// has no usable name hint.
const MinSniffLength = 100

// SniffLength is how much of a blob's head content detection looks at.
const SniffLength = 4096

// MIME types produced by content detection.
const (
	MIMECompound     = "application/x-ole-storage"
	MIMEWord         = "application/msword"
	MIMEExcel        = "application/vnd.ms-excel"
	MIMEPowerPoint   = "application/vnd.ms-powerpoint"
	MIMEOutlook      = "application/vnd.ms-outlook"
	MIMEDocx         = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEXlsx         = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMEPptx         = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MIMEOpenDocument = "application/vnd.oasis.opendocument"
	MIMEPDF          = "application/pdf"
	MIMEZip          = "application/zip"
	MIMEMessage      = "message/rfc822"
	MIMEMbox         = "application/mbox"
	MIMEOctetStream  = "application/octet-stream"
)

// MagicSignature defines a file type signature.
type MagicSignature struct {
	MIME   string
	Offset int    // Offset from start of file
	Magic  []byte // Magic bytes to match
}

// magicSignatures contains signatures of the formats that can carry a
// password. Ordered by specificity (most specific first).
var magicSignatures = []MagicSignature{
	// Compound File Binary: legacy Office and Outlook. Refined in refineDetection.
	{MIME: MIMECompound, Offset: 0, Magic: []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}},

	{MIME: MIMEPDF, Offset: 0, Magic: []byte("%PDF-")},

	// Archives - ZIP-based
	// OOXML and OpenDocument also use ZIP; refined in refineDetection
	{MIME: MIMEZip, Offset: 0, Magic: []byte{0x50, 0x4B, 0x03, 0x04}},
	{MIME: MIMEZip, Offset: 0, Magic: []byte{0x50, 0x4B, 0x05, 0x06}}, // Empty ZIP
	{MIME: MIMEZip, Offset: 0, Magic: []byte{0x50, 0x4B, 0x07, 0x08}}, // Spanned ZIP

	// Mailbox separator line
	{MIME: MIMEMbox, Offset: 0, Magic: []byte("From ")},
}

// Identify maps the head of a blob to a format tag. Only the first
// SniffLength bytes are examined. Compound files whose sub-format cannot be
// told from the head alone identify as Unknown; IdentifyCompound resolves
// them from their stream names.
func Identify(prefix []byte) Tag {
	return TagForMIME(DetectMIMEFromBytes(prefix))
}

// DetectMIMEFromBytes detects the MIME type from the head of a blob.
func DetectMIMEFromBytes(data []byte) string {
	if len(data) == 0 {
		return MIMEOctetStream
	}
	if len(data) > SniffLength {
		data = data[:SniffLength]
	}

	if mime := detectByMagic(data); mime != "" {
		return refineDetection(data, mime)
	}

	// PDF readers accept junk before the header
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if bytes.Contains(head, []byte("%PDF-")) {
		return MIMEPDF
	}

	if looksLikeMessage(data) {
		return MIMEMessage
	}

	return MIMEOctetStream
}

// detectByMagic checks data against known magic signatures.
func detectByMagic(data []byte) string {
	for _, sig := range magicSignatures {
		if sig.Offset+len(sig.Magic) > len(data) {
			continue
		}

		if bytes.Equal(data[sig.Offset:sig.Offset+len(sig.Magic)], sig.Magic) {
			return sig.MIME
		}
	}
	return ""
}

// refineDetection handles cases where multiple formats share magic bytes.
func refineDetection(data []byte, initialMIME string) string {
	switch initialMIME {
	case MIMECompound:
		// Office writes the main stream right after the header. Other
		// writers put the FAT there, so only record magics are trusted.
		if len(data) < 520 {
			return initialMIME
		}
		sub := data[512:]
		switch {
		case bytes.HasPrefix(sub, []byte{0xEC, 0xA5, 0xC1, 0x00}):
			return MIMEWord
		case bytes.HasPrefix(sub, []byte{0x09, 0x08, 0x10, 0x00, 0x00, 0x06, 0x05, 0x00}):
			return MIMEExcel
		case bytes.HasPrefix(sub, []byte{0xA0, 0x46, 0x1D, 0xF0}),
			bytes.HasPrefix(sub, []byte{0x00, 0x6E, 0x1E, 0xF0}),
			bytes.HasPrefix(sub, []byte{0x0F, 0x00, 0xE8, 0x03}):
			return MIMEPowerPoint
		}
		return initialMIME

	case MIMEZip:
		// The first local header holds the first entry name at offset 30.
		// OpenDocument requires an uncompressed "mimetype" entry there.
		if len(data) >= 38 && string(data[30:38]) == "mimetype" {
			if bytes.Contains(data[38:], []byte(MIMEOpenDocument)) {
				return MIMEOpenDocument
			}
		}
		if mime := ooxmlMIME(zipEntryNames(data)); mime != "" {
			return mime
		}
		return initialMIME

	case MIMEMbox:
		line := firstLine(data)
		// "From sender date"; a header line would read "From:"
		if len(strings.Fields(line)) < 2 {
			return MIMEOctetStream
		}
		return initialMIME

	default:
		return initialMIME
	}
}

const (
	zipLocalHeaderLen = 30
	zipFlagDescriptor = 0x8
	ooxmlContentTypes = "[Content_Types].xml"
)

// zipEntryNames returns the names of the local file headers found by
// following the headers from the start of data. It stops at the first entry
// whose size is only known from a trailing data descriptor.
func zipEntryNames(data []byte) []string {
	var names []string
	for off := 0; off+zipLocalHeaderLen <= len(data); {
		h := data[off:]
		if !bytes.HasPrefix(h, []byte("PK\x03\x04")) {
			break
		}
		flags := binary.LittleEndian.Uint16(h[6:])
		compSize := int(binary.LittleEndian.Uint32(h[18:]))
		nameLen := int(binary.LittleEndian.Uint16(h[26:]))
		extraLen := int(binary.LittleEndian.Uint16(h[28:]))
		if zipLocalHeaderLen+nameLen > len(h) {
			break
		}
		names = append(names, string(h[zipLocalHeaderLen:zipLocalHeaderLen+nameLen]))

		if flags&zipFlagDescriptor != 0 && compSize == 0 {
			break
		}
		off += zipLocalHeaderLen + nameLen + extraLen + compSize
	}
	return names
}

// ooxmlMIME classifies a zip as an OOXML package by its entry names. The
// package must open with [Content_Types].xml or a part directory, or list
// [Content_Types].xml among the entries seen; the first part directory then
// picks the application. Anything else stays a plain zip.
func ooxmlMIME(names []string) string {
	if len(names) == 0 {
		return ""
	}
	isPackage := names[0] == ooxmlContentTypes || ooxmlPartMIME(names[0]) != ""
	for _, name := range names {
		if name == ooxmlContentTypes {
			isPackage = true
		}
	}
	if !isPackage {
		return ""
	}
	for _, name := range names {
		if mime := ooxmlPartMIME(name); mime != "" {
			return mime
		}
	}
	return ""
}

func ooxmlPartMIME(name string) string {
	switch {
	case strings.HasPrefix(name, "word/"):
		return MIMEDocx
	case strings.HasPrefix(name, "xl/"):
		return MIMEXlsx
	case strings.HasPrefix(name, "ppt/"):
		return MIMEPptx
	}
	return ""
}

// knownHeaders are header names that plausibly open an RFC 822 message.
var knownHeaders = map[string]bool{
	"received":                  true,
	"return-path":               true,
	"from":                      true,
	"to":                        true,
	"cc":                        true,
	"subject":                   true,
	"date":                      true,
	"message-id":                true,
	"mime-version":              true,
	"content-type":              true,
	"delivered-to":              true,
	"reply-to":                  true,
	"sender":                    true,
	"dkim-signature":            true,
	"authentication-results":    true,
	"received-spf":              true,
	"thread-topic":              true,
	"thread-index":              true,
	"content-transfer-encoding": true,
}

// looksLikeMessage reports whether data opens with an RFC 822 header line.
func looksLikeMessage(data []byte) bool {
	line := firstLine(data)
	colon := strings.IndexByte(line, ':')
	if colon <= 0 {
		return false
	}
	name := line[:colon]
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= ' ' || c >= 0x7F {
			return false
		}
	}
	name = strings.ToLower(name)
	return knownHeaders[name] || strings.HasPrefix(name, "x-") || strings.HasPrefix(name, "arc-")
}

func firstLine(data []byte) string {
	data = bytes.TrimLeft(data, "\r\n")
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		data = data[:i]
	}
	return string(data)
}

// IdentifyCompound maps the root stream names of a compound file to a format
// tag. It returns Unknown when no known stream is present.
func IdentifyCompound(names []string) Tag {
	has := make(map[string]bool, len(names))
	for _, n := range names {
		has[strings.ToLower(n)] = true
	}
	switch {
	case has["worddocument"]:
		return Word
	case has["workbook"], has["book"]:
		return Excel
	case has["powerpoint document"], has["current user"]:
		return PowerPoint
	case has["__substg1.0_001a001f"], has["__substg1.0_001a001e"], has["__properties_version1.0"]:
		return Msg
	case has["encryptedpackage"]:
		// Encrypted OOXML; any Office probe reports it.
		return Word
	}
	return Unknown
}

// TagForMIME maps a MIME type to a format tag.
func TagForMIME(mime string) Tag {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.ToLower(strings.TrimSpace(mime))
	if tag, ok := mimeTags[mime]; ok {
		return tag
	}
	if strings.HasPrefix(mime, MIMEOpenDocument) {
		return OpenDocument
	}
	return Unknown
}

var mimeTags = map[string]Tag{
	MIMEWord:                       Word,
	MIMEDocx:                       Word,
	MIMEExcel:                      Excel,
	MIMEXlsx:                       Excel,
	MIMEPowerPoint:                 PowerPoint,
	MIMEPptx:                       PowerPoint,
	MIMEPDF:                        PDF,
	MIMEZip:                        Zip,
	"application/x-zip-compressed": Zip,
	MIMEOutlook:                    Msg,
	MIMEMessage:                    Eml,
	MIMEMbox:                       Mbox,
}
