package detector

import (
	"context"
	"encoding/binary"

	"github.com/gobeaver/lockscan/compound"
)

// Stream names and record values of the legacy binary Office formats.
const (
	encryptedPackageStream = "EncryptedPackage"
	wordDocumentStream     = "WordDocument"
	workbookStream         = "Workbook"
	bookStream             = "Book"
	currentUserStream      = "Current User"

	fibFlagsOffset   = 10
	fibEncryptedFlag = 0x0100

	bofRecord      = 0x0809
	filePassRecord = 0x002F

	currentUserHeaderLen = 12
	encryptedUserToken   = 0xF3D1C4DF
	plainUserToken       = 0xE391C05F
)

// openOffice opens an Office blob as a compound file. A blob that is not a
// compound file (zip-framed OOXML) yields a nil storage and no error: an
// OOXML package with a password is always wrapped in a compound file
// holding an EncryptedPackage stream.
func openOffice(data []byte, format Tag) (root *compound.Storage, encrypted bool, err error) {
	root, err = compound.Open(data)
	if compound.IsNotCompound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, NewCorruptError(format, "unreadable compound file", err)
	}
	return root, root.HasStream(encryptedPackageStream), nil
}

// readHead reads the first n bytes of a stream and fails when it is shorter.
func readHead(st *compound.Stream, n int, format Tag) ([]byte, error) {
	head, err := st.Head(n)
	if err != nil {
		return nil, NewCorruptError(format, "unreadable "+st.Name+" stream", err)
	}
	if len(head) < n {
		return nil, NewCorruptError(format, "truncated "+st.Name+" stream", nil)
	}
	return head, nil
}

// WordProbe detects password protection in Word documents.
type WordProbe struct{}

// DefaultWordProbe creates a Word probe.
func DefaultWordProbe() *WordProbe {
	return &WordProbe{}
}

// Probe checks the fEncrypted bit of the File Information Block.
func (p *WordProbe) Probe(_ context.Context, data []byte) (bool, error) {
	root, encrypted, err := openOffice(data, Word)
	if err != nil || root == nil || encrypted {
		return encrypted, err
	}

	// A compound file without the main stream was routed here by name
	st := root.Stream(wordDocumentStream)
	if st == nil {
		return false, nil
	}
	fib, err := readHead(st, fibFlagsOffset+2, Word)
	if err != nil {
		return false, err
	}
	flags := binary.LittleEndian.Uint16(fib[fibFlagsOffset:])
	return flags&fibEncryptedFlag != 0, nil
}

// ExcelProbe detects password protection in Excel workbooks.
type ExcelProbe struct{}

// DefaultExcelProbe creates an Excel probe.
func DefaultExcelProbe() *ExcelProbe {
	return &ExcelProbe{}
}

// Probe checks whether the record after the workbook BOF is FILEPASS.
func (p *ExcelProbe) Probe(_ context.Context, data []byte) (bool, error) {
	root, encrypted, err := openOffice(data, Excel)
	if err != nil || root == nil || encrypted {
		return encrypted, err
	}

	st := root.Stream(workbookStream)
	if st == nil {
		st = root.Stream(bookStream)
	}
	if st == nil {
		return false, nil
	}

	header, err := readHead(st, 4, Excel)
	if err != nil {
		return false, err
	}
	if id := binary.LittleEndian.Uint16(header); id != bofRecord {
		return false, NewCorruptError(Excel, "workbook does not start with a BOF record", nil)
	}
	bofLen := int(binary.LittleEndian.Uint16(header[2:]))

	record, err := readHead(st, 4+bofLen+2, Excel)
	if err != nil {
		return false, err
	}
	next := binary.LittleEndian.Uint16(record[4+bofLen:])
	return next == filePassRecord, nil
}

// PowerPointProbe detects password protection in PowerPoint presentations.
type PowerPointProbe struct{}

// DefaultPowerPointProbe creates a PowerPoint probe.
func DefaultPowerPointProbe() *PowerPointProbe {
	return &PowerPointProbe{}
}

// Probe checks the header token of the Current User atom.
func (p *PowerPointProbe) Probe(_ context.Context, data []byte) (bool, error) {
	root, encrypted, err := openOffice(data, PowerPoint)
	if err != nil || root == nil || encrypted {
		return encrypted, err
	}

	st := root.Stream(currentUserStream)
	if st == nil {
		return false, nil
	}
	atom, err := readHead(st, currentUserHeaderLen+4, PowerPoint)
	if err != nil {
		return false, err
	}

	// Any token other than the encrypted one, plainUserToken included,
	// means no password.
	return binary.LittleEndian.Uint32(atom[currentUserHeaderLen:]) == encryptedUserToken, nil
}
