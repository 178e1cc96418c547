package detector

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromName(t *testing.T) {
	tests := []struct {
		name string
		want Tag
	}{
		{"report.doc", Word},
		{"REPORT.DOCX", Word},
		{"template.dotm", Word},
		{"sheet.xls", Excel},
		{"sheet.xlsb", Excel},
		{"deck.ppsx", PowerPoint},
		{"notes.odt", OpenDocument},
		{"calc.ods", OpenDocument},
		{"scan.pdf", PDF},
		{"bundle.zip", Zip},
		{"mail.msg", Msg},
		{"mail.eml", Eml},
		{"inbox.mbox", Mbox},
		{"dir/sub/q3.xlsx", Excel},
		{`C:\Users\bob\memo.doc`, Word},
		{"docx", Word},
		{".pdf", PDF},
		{"image.png", Unknown},
		{"README", Unknown},
		{"", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromName(tt.name))
		})
	}
}

func TestIdentify(t *testing.T) {
	pad := func(b []byte) []byte {
		return append(b, bytes.Repeat([]byte{0}, 200)...)
	}

	tests := []struct {
		name string
		data func(t *testing.T) []byte
		want Tag
	}{
		{"pdf", func(*testing.T) []byte { return pdfDoc("") }, PDF},
		{"pdf after junk", func(*testing.T) []byte { return append([]byte("garbage\n"), pdfDoc("")...) }, PDF},
		{"plain zip", func(t *testing.T) []byte {
			return zipOf(t, zipEntry{name: "a.txt", data: bytes.Repeat([]byte("a"), 200)})
		}, Zip},
		{"opendocument", func(t *testing.T) []byte { return odfDoc(t, false) }, OpenDocument},
		{"ooxml word", func(t *testing.T) []byte {
			return zipOf(t, zipEntry{name: "word/document.xml", data: bytes.Repeat([]byte("a"), 200)})
		}, Word},
		{"ooxml excel", func(t *testing.T) []byte {
			return zipOf(t, zipEntry{name: "xl/workbook.xml", data: bytes.Repeat([]byte("a"), 200)})
		}, Excel},
		{"ooxml after content types", func(t *testing.T) []byte {
			return storedZipOf(t,
				zipEntry{name: "[Content_Types].xml", data: bytes.Repeat([]byte("c"), 200)},
				zipEntry{name: "_rels/.rels", data: []byte("<Relationships/>")},
				zipEntry{name: "ppt/presentation.xml", data: []byte("<p:presentation/>")},
			)
		}, PowerPoint},
		{"zip with word inside a directory name", func(t *testing.T) []byte {
			return zipOf(t, zipEntry{name: "password/secret.pdf", data: bytes.Repeat([]byte("a"), 200)})
		}, Zip},
		{"zip with later office-like entries", func(t *testing.T) []byte {
			return storedZipOf(t,
				zipEntry{name: "readme.txt", data: []byte("see keyword/ and word/")},
				zipEntry{name: "keyword/list.txt", data: []byte("a")},
				zipEntry{name: "word/draft.txt", data: bytes.Repeat([]byte("a"), 200)},
			)
		}, Zip},
		{"zip holding a stored docx", func(t *testing.T) []byte {
			docx := storedZipOf(t,
				zipEntry{name: "[Content_Types].xml", data: []byte("<Types/>")},
				zipEntry{name: "word/document.xml", data: []byte("<w:document/>")},
			)
			return storedZipOf(t,
				zipEntry{name: "notes.txt", data: bytes.Repeat([]byte("n"), 200)},
				zipEntry{name: "memo.docx", data: docx},
			)
		}, Zip},
		{"content types behind a data descriptor", func(t *testing.T) []byte {
			return zipOf(t,
				zipEntry{name: "[Content_Types].xml", data: bytes.Repeat([]byte("c"), 200)},
				zipEntry{name: "word/document.xml", data: []byte("<w:document/>")},
			)
		}, Zip},
		{"mbox", func(*testing.T) []byte {
			return pad([]byte("From alice@example.com Thu Jan  1 00:00:00 2024\nSubject: hi\n\n"))
		}, Mbox},
		{"eml", func(*testing.T) []byte { return emlDoc("hello") }, Eml},
		{"eml with received header", func(*testing.T) []byte {
			return pad([]byte("Received: from mx.example.com\r\nFrom: a@example.com\r\n\r\n"))
		}, Eml},
		{"word head record", func(*testing.T) []byte {
			data := make([]byte, 600)
			copy(data, compoundSignature)
			copy(data[512:], []byte{0xEC, 0xA5, 0xC1, 0x00})
			return data
		}, Word},
		{"compound of unknown application", func(*testing.T) []byte {
			data := make([]byte, 600)
			copy(data, compoundSignature)
			return data
		}, Unknown},
		{"text", func(*testing.T) []byte { return pad([]byte("just some words")) }, Unknown},
		{"header-like prose", func(*testing.T) []byte { return pad([]byte("Note: this is not mail")) }, Unknown},
		{"empty", func(*testing.T) []byte { return nil }, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Identify(tt.data(t)))
		})
	}
}

var compoundSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

func TestZipEntryNames(t *testing.T) {
	data := storedZipOf(t,
		zipEntry{name: "a.txt", data: []byte("PK\x03\x04word/x")},
		zipEntry{name: "b/c.txt", data: []byte("c")},
	)
	assert.Equal(t, []string{"a.txt", "b/c.txt"}, zipEntryNames(data))

	// sizes of these entries are only in their data descriptors
	data = zipOf(t,
		zipEntry{name: "first.txt", data: []byte("1")},
		zipEntry{name: "second.txt", data: []byte("2")},
	)
	assert.Equal(t, []string{"first.txt"}, zipEntryNames(data))

	assert.Empty(t, zipEntryNames([]byte("PK\x03\x04 too short")))
}

func TestIdentifyCompound(t *testing.T) {
	assert.Equal(t, Word, IdentifyCompound([]string{"1Table", "WordDocument"}))
	assert.Equal(t, Excel, IdentifyCompound([]string{"Workbook"}))
	assert.Equal(t, Excel, IdentifyCompound([]string{"BOOK"}))
	assert.Equal(t, PowerPoint, IdentifyCompound([]string{"Current User", "PowerPoint Document"}))
	assert.Equal(t, Msg, IdentifyCompound([]string{"__properties_version1.0", "__substg1.0_001A001F"}))
	assert.Equal(t, Word, IdentifyCompound([]string{"EncryptionInfo", "EncryptedPackage"}))
	assert.Equal(t, Unknown, IdentifyCompound([]string{"Contents"}))
}

func TestResolveCompoundByStreams(t *testing.T) {
	d := New()
	assert.Equal(t, Excel, d.Resolve(excelDoc(t, bofRecord, 0x0042), ""))
	assert.Equal(t, PowerPoint, d.Resolve(pptDoc(t, plainUserToken), ""))
	assert.Equal(t, Msg, d.Resolve(msgDoc(t, "IPM.Note"), ""))
	assert.Equal(t, Unknown, d.Resolve([]byte("short"), ""))
}

func TestTags(t *testing.T) {
	for _, tag := range Tags() {
		parsed, ok := ParseTag(tag.String())
		assert.True(t, ok)
		assert.Equal(t, tag, parsed)
	}
	_, ok := ParseTag("rtf")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Tag(200).String())
	assert.True(t, Eml.IsContainer())
	assert.False(t, PDF.IsContainer())
}

func TestExtensionForMIME(t *testing.T) {
	assert.Equal(t, ".pdf", ExtensionForMIME("application/pdf; name=x.pdf"))
	assert.Equal(t, ".eml", ExtensionForMIME("message/rfc822"))
	assert.Equal(t, ".odt", ExtensionForMIME("application/vnd.oasis.opendocument.text"))
	assert.Equal(t, "", ExtensionForMIME("image/png"))
}
