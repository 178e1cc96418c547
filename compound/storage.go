package compound

import (
	"fmt"
	"io"
	"strings"
)

// Storage is a directory node of a compound file. The root storage returned
// by Open is named RootName.
type Storage struct {
	Name     string
	Streams  []*Stream
	Storages []*Storage
}

// Stream is a named byte stream inside a storage. Streams returned by Open
// are read lazily on the first call to Bytes.
type Stream struct {
	Name string
	Size int64

	data   []byte
	head   []byte
	loaded bool
	src    io.Reader
}

// NewStorage creates an empty storage with the given name.
func NewStorage(name string) *Storage {
	return &Storage{Name: name}
}

// NewStream creates an in-memory stream.
func NewStream(name string, data []byte) *Stream {
	return &Stream{Name: name, Size: int64(len(data)), data: data, loaded: true}
}

// AddStream appends an in-memory stream and returns it.
func (s *Storage) AddStream(name string, data []byte) *Stream {
	st := NewStream(name, data)
	s.Streams = append(s.Streams, st)
	return st
}

// AddStorage appends an empty child storage and returns it.
func (s *Storage) AddStorage(name string) *Storage {
	child := NewStorage(name)
	s.Storages = append(s.Storages, child)
	return child
}

// Stream returns the direct child stream with the given name, or nil.
// Names are compared case-insensitively, as compound files do.
func (s *Storage) Stream(name string) *Stream {
	for _, st := range s.Streams {
		if strings.EqualFold(st.Name, name) {
			return st
		}
	}
	return nil
}

// Storage returns the direct child storage with the given name, or nil.
func (s *Storage) Storage(name string) *Storage {
	for _, child := range s.Storages {
		if strings.EqualFold(child.Name, name) {
			return child
		}
	}
	return nil
}

// HasStream reports whether a direct child stream with the given name exists.
func (s *Storage) HasStream(name string) bool {
	return s.Stream(name) != nil
}

// StreamNames returns the names of the direct child streams in directory order.
func (s *Storage) StreamNames() []string {
	names := make([]string, len(s.Streams))
	for i, st := range s.Streams {
		names[i] = st.Name
	}
	return names
}

// child returns the named child storage, creating it when missing.
func (s *Storage) child(name string) *Storage {
	if c := s.Storage(name); c != nil {
		return c
	}
	return s.AddStorage(name)
}

// walk resolves a storage path relative to s, creating missing storages.
func (s *Storage) walk(path []string) *Storage {
	cur := s
	for _, name := range path {
		cur = cur.child(name)
	}
	return cur
}

// Bytes returns the stream content. A positive limit rejects streams larger
// than limit bytes with ErrTooLarge before anything is read.
func (st *Stream) Bytes(limit int64) ([]byte, error) {
	if limit > 0 && st.Size > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes (max: %d)", ErrTooLarge, st.Name, st.Size, limit)
	}
	if st.loaded {
		return st.data, nil
	}
	if st.src == nil {
		return nil, nil
	}

	rest, err := io.ReadAll(io.LimitReader(st.src, st.Size-int64(len(st.head))))
	if err != nil {
		return nil, fmt.Errorf("compound: read %s: %w", st.Name, err)
	}
	data := append(st.head, rest...)
	if int64(len(data)) != st.Size {
		return nil, fmt.Errorf("compound: read %s: %w", st.Name, io.ErrUnexpectedEOF)
	}

	st.data = data
	st.head = nil
	st.loaded = true
	st.src = nil
	return data, nil
}

// Head returns up to the first n bytes of the stream without loading the
// rest. The result is shorter than n only when the stream is.
func (st *Stream) Head(n int) ([]byte, error) {
	if int64(n) > st.Size {
		n = int(st.Size)
	}
	if st.loaded {
		if n > len(st.data) {
			n = len(st.data)
		}
		return st.data[:n], nil
	}
	if st.src == nil {
		return nil, nil
	}
	if len(st.head) < n {
		buf := make([]byte, n-len(st.head))
		read, err := io.ReadFull(st.src, buf)
		st.head = append(st.head, buf[:read]...)
		if err != nil {
			return nil, fmt.Errorf("compound: read %s: %w", st.Name, err)
		}
	}
	return st.head[:n], nil
}

// TotalSize returns the combined size of every stream below s.
func (s *Storage) TotalSize() int64 {
	var total int64
	for _, st := range s.Streams {
		total += st.Size
	}
	for _, child := range s.Storages {
		total += child.TotalSize()
	}
	return total
}
