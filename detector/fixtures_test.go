package detector

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"
	"testing"
	"time"
	"unicode/utf16"

	"github.com/emersion/go-mbox"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/lockscan/compound"
)

func encodeCompound(t *testing.T, root *compound.Storage) []byte {
	t.Helper()
	data, err := compound.Encode(root)
	require.NoError(t, err)
	return data
}

// wordDoc builds a legacy Word document whose FIB carries the given
// fEncrypted bit.
func wordDoc(t *testing.T, encrypted bool) []byte {
	t.Helper()
	fib := make([]byte, 64)
	binary.LittleEndian.PutUint16(fib, 0xA5EC)
	if encrypted {
		binary.LittleEndian.PutUint16(fib[fibFlagsOffset:], fibEncryptedFlag|0x0200)
	} else {
		binary.LittleEndian.PutUint16(fib[fibFlagsOffset:], 0x0200)
	}
	root := compound.NewStorage(compound.RootName)
	root.AddStream(wordDocumentStream, fib)
	root.AddStream("1Table", make([]byte, 32))
	return encodeCompound(t, root)
}

// encryptedOOXML builds the compound wrapper Office uses for a password
// protected docx/xlsx/pptx.
func encryptedOOXML(t *testing.T) []byte {
	t.Helper()
	root := compound.NewStorage(compound.RootName)
	root.AddStream("EncryptionInfo", bytes.Repeat([]byte{0x04}, 200))
	root.AddStream(encryptedPackageStream, bytes.Repeat([]byte{0x5A}, 5000))
	return encodeCompound(t, root)
}

// excelDoc builds a workbook whose second record is next.
func excelDoc(t *testing.T, first, next uint16) []byte {
	t.Helper()
	var wb bytes.Buffer
	bof := make([]byte, 16)
	_ = binary.Write(&wb, binary.LittleEndian, first)
	_ = binary.Write(&wb, binary.LittleEndian, uint16(len(bof)))
	wb.Write(bof)
	_ = binary.Write(&wb, binary.LittleEndian, next)
	_ = binary.Write(&wb, binary.LittleEndian, uint16(2))
	wb.Write([]byte{0xE4, 0x04})

	root := compound.NewStorage(compound.RootName)
	root.AddStream(workbookStream, wb.Bytes())
	return encodeCompound(t, root)
}

// pptDoc builds a presentation whose Current User atom carries token.
func pptDoc(t *testing.T, token uint32) []byte {
	t.Helper()
	atom := make([]byte, 32)
	binary.LittleEndian.PutUint16(atom[2:], 0x0FF6)
	binary.LittleEndian.PutUint32(atom[4:], 20)
	binary.LittleEndian.PutUint32(atom[8:], 20)
	binary.LittleEndian.PutUint32(atom[currentUserHeaderLen:], token)

	root := compound.NewStorage(compound.RootName)
	root.AddStream(currentUserStream, atom)
	root.AddStream("PowerPoint Document", make([]byte, 128))
	return encodeCompound(t, root)
}

type zipEntry struct {
	name      string
	data      []byte
	encrypted bool
	deflate   bool
}

func zipOf(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		fh := &zip.FileHeader{Name: e.name, Method: zip.Store}
		if e.deflate {
			fh.Method = zip.Deflate
		}
		if e.encrypted {
			fh.Flags |= zipFlagEncrypted
		}
		w, err := zw.CreateHeader(fh)
		require.NoError(t, err)
		_, err = w.Write(e.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// storedZipOf builds a zip of stored entries whose sizes are written in the
// local headers, the way Office writes packages.
func storedZipOf(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		fh := &zip.FileHeader{
			Name:               e.name,
			Method:             zip.Store,
			CRC32:              crc32.ChecksumIEEE(e.data),
			CompressedSize64:   uint64(len(e.data)),
			UncompressedSize64: uint64(len(e.data)),
		}
		w, err := zw.CreateRaw(fh)
		require.NoError(t, err)
		_, err = w.Write(e.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func odfDoc(t *testing.T, encrypted bool) []byte {
	t.Helper()
	manifest := `<?xml version="1.0" encoding="UTF-8"?>
<manifest:manifest xmlns:manifest="urn:oasis:names:tc:opendocument:xmlns:manifest:1.0">
 <manifest:file-entry manifest:full-path="/" manifest:media-type="application/vnd.oasis.opendocument.text"/>
 <manifest:file-entry manifest:full-path="content.xml" manifest:media-type="text/xml">`
	if encrypted {
		manifest += `
  <manifest:encryption-data manifest:checksum-type="SHA1/1K" manifest:checksum="abc=">
   <manifest:algorithm manifest:algorithm-name="Blowfish CFB" manifest:initialisation-vector="xyz="/>
  </manifest:encryption-data>`
	}
	manifest += `
 </manifest:file-entry>
</manifest:manifest>`

	return zipOf(t,
		zipEntry{name: "mimetype", data: []byte("application/vnd.oasis.opendocument.text")},
		zipEntry{name: "content.xml", data: []byte("<office:document-content/>"), deflate: true},
		zipEntry{name: odfManifestPath, data: []byte(manifest), deflate: true},
	)
}

// pdfDoc builds a minimal PDF with a correct xref table. extra is appended
// to the trailer dictionary.
func pdfDoc(extra string) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	obj1 := b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	obj2 := b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [] /Count 0 >>\nendobj\n")
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 3\n0000000000 65535 f \n%010d 00000 n \n%010d 00000 n \n", obj1, obj2)
	fmt.Fprintf(&b, "trailer\n<< /Size 3 /Root 1 0 R %s>>\n", extra)
	fmt.Fprintf(&b, "startxref\n%d\n%%%%EOF\n", xref)
	return b.Bytes()
}

const pdfEncryptTrailer = "/Encrypt << /Filter /Standard /V 1 /R 2 " +
	"/O <00112233445566778899AABBCCDDEEFF00112233445566778899AABBCCDDEEFF> " +
	"/U <FFEEDDCCBBAA99887766554433221100FFEEDDCCBBAA99887766554433221100> " +
	"/P -44 >> /ID [<0123456789ABCDEF0123456789ABCDEF> <0123456789ABCDEF0123456789ABCDEF>] "

// pdfAES256Trailer describes encryption the reader cannot set up.
const pdfAES256Trailer = "/Encrypt << /Filter /Standard /V 5 /R 6 /Length 256 " +
	"/O <00112233445566778899AABBCCDDEEFF00112233445566778899AABBCCDDEEFF> " +
	"/U <FFEEDDCCBBAA99887766554433221100FFEEDDCCBBAA99887766554433221100> " +
	"/P -4 >> "

func encryptedPDF() []byte {
	return pdfDoc(pdfEncryptTrailer)
}

func utf16le(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 2*len(units)+2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[2*i:], u)
	}
	return out
}

type msgAttachment struct {
	name     string
	data     []byte
	embedded *compound.Storage
}

// msgStorage builds the storage tree of an Outlook message.
func msgStorage(class, subject string, attachments ...msgAttachment) *compound.Storage {
	root := compound.NewStorage(compound.RootName)
	root.AddStream("__properties_version1.0", make([]byte, 32))
	root.AddStream(propertyPrefix+propMessageClass+typeUnicode, utf16le(class))
	root.AddStream(propertyPrefix+propSubject+typeUnicode, utf16le(subject))
	for i, a := range attachments {
		att := root.AddStorage(fmt.Sprintf("%s%08X", attachmentPrefix, i))
		att.AddStream("__properties_version1.0", make([]byte, 8))
		if a.embedded != nil {
			att.AddStream(propertyPrefix+propDisplayName+typeUnicode, utf16le(a.name))
			embedded := att.AddStorage(embeddedMessageName)
			embedded.Streams = a.embedded.Streams
			embedded.Storages = a.embedded.Storages
			continue
		}
		att.AddStream(propertyPrefix+propAttachLongName+typeUnicode, utf16le(a.name))
		att.AddStream(attachmentDataName, a.data)
	}
	return root
}

func msgDoc(t *testing.T, class string, attachments ...msgAttachment) []byte {
	t.Helper()
	return encodeCompound(t, msgStorage(class, "Test message", attachments...))
}

type emlAttachment struct {
	name        string
	contentType string
	data        []byte
}

// emlDoc builds a multipart/mixed message with base64 attachments.
func emlDoc(subject string, attachments ...emlAttachment) []byte {
	const boundary = "==BOUNDARY=="
	var b strings.Builder
	b.WriteString("From: Alice <alice@example.com>\r\n")
	b.WriteString("To: Bob <bob@example.com>\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: Mon, 02 Jan 2006 15:04:05 -0700\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/mixed; boundary=\"" + boundary + "\"\r\n\r\n")
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString("See attached.\r\n")
	for _, a := range attachments {
		b.WriteString("--" + boundary + "\r\n")
		b.WriteString("Content-Type: " + a.contentType + "\r\n")
		if a.name != "" {
			b.WriteString("Content-Disposition: attachment; filename=\"" + a.name + "\"\r\n")
		} else {
			b.WriteString("Content-Disposition: attachment\r\n")
		}
		b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
		enc := base64.StdEncoding.EncodeToString(a.data)
		for len(enc) > 76 {
			b.WriteString(enc[:76] + "\r\n")
			enc = enc[76:]
		}
		b.WriteString(enc + "\r\n")
	}
	b.WriteString("--" + boundary + "--\r\n")
	return []byte(b.String())
}

func mboxOf(t *testing.T, messages ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := mbox.NewWriter(&buf)
	for _, msg := range messages {
		mw, err := w.CreateMessage("alice@example.com", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
		require.NoError(t, err)
		_, err = mw.Write(msg)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}
