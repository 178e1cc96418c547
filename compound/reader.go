// Package compound reads and writes Microsoft Compound File Binary (CFBF,
// also known as OLE structured storage) containers as a tree of named
// storages and streams.
//
// Reading is delegated to github.com/richardlehane/mscfb. Writing produces a
// version 3 file with 512-byte sectors and is used to re-materialize a
// storage subtree, such as a message embedded in an Outlook MSG file, as a
// standalone compound file.
package compound

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/richardlehane/mscfb"
)

// RootName is the name of the root storage of every compound file.
const RootName = "Root Entry"

var (
	// ErrNotCompound is returned by Open when the data does not start with
	// the compound file signature.
	ErrNotCompound = errors.New("compound: not a compound file")

	// ErrTooLarge is returned by Stream.Bytes when a stream exceeds the
	// caller's size limit.
	ErrTooLarge = errors.New("compound: stream exceeds size limit")
)

// Signature is the 8-byte compound file header signature.
var Signature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// IsCompound reports whether data starts with the compound file signature.
func IsCompound(data []byte) bool {
	return bytes.HasPrefix(data, Signature)
}

// IsNotCompound reports whether err means the input was not a compound file.
func IsNotCompound(err error) bool {
	return errors.Is(err, ErrNotCompound)
}

// Open parses data as a compound file and returns its root storage.
// Stream contents are not read until Stream.Bytes is called.
//
// Data without the compound signature yields ErrNotCompound. Any failure
// after the signature matched means the directory structure is damaged and
// is returned wrapped.
func Open(data []byte) (*Storage, error) {
	if !IsCompound(data) {
		return nil, ErrNotCompound
	}

	r, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("compound: %w", err)
	}

	root := NewStorage(RootName)
	for {
		f, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("compound: %w", err)
		}
		// unallocated directory slots resolve back to the root entry
		if len(f.Path) == 0 && f.Name == RootName {
			continue
		}

		parent := root.walk(f.Path)
		if f.FileInfo().IsDir() {
			parent.child(f.Name)
			continue
		}
		parent.Streams = append(parent.Streams, &Stream{
			Name: f.Name,
			Size: f.Size,
			src:  f,
		})
	}

	return root, nil
}
