package compound

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf16"
)

const (
	sectorSize     = 512
	miniSectorSize = 64
	miniCutoff     = 4096
	dirEntrySize   = 128
	headerDifats   = 109
	idsPerSector   = sectorSize / 4
	maxNameLen     = 31

	freeSect   uint32 = 0xFFFFFFFF
	endOfChain uint32 = 0xFFFFFFFE
	fatSect    uint32 = 0xFFFFFFFD
	difatSect  uint32 = 0xFFFFFFFC
	noStream   uint32 = 0xFFFFFFFF

	typeStorage byte = 1
	typeStream  byte = 2
	typeRoot    byte = 5
	colorBlack  byte = 1
)

// ErrInvalidName is returned by Encode for empty, overlong or duplicate entry names.
var ErrInvalidName = errors.New("compound: invalid entry name")

type dirEntry struct {
	name  string
	kind  byte
	left  uint32
	right uint32
	child uint32
	start uint32
	size  uint64
	data  []byte
}

type encoder struct {
	entries []*dirEntry
}

// Encode serializes the storage tree rooted at root as a version 3 compound
// file. The root's own name is replaced by RootName. Streams read from an
// existing file are loaded in full.
func Encode(root *Storage) ([]byte, error) {
	e := &encoder{}
	if _, err := e.addStorage(root, typeRoot); err != nil {
		return nil, err
	}
	e.entries[0].name = RootName
	return e.layout(), nil
}

func (e *encoder) addStorage(s *Storage, kind byte) (uint32, error) {
	id := uint32(len(e.entries))
	e.entries = append(e.entries, &dirEntry{
		name:  s.Name,
		kind:  kind,
		left:  noStream,
		right: noStream,
		child: noStream,
		start: endOfChain,
	})

	seen := make(map[string]bool)
	checkName := func(name string) error {
		n := len(utf16.Encode([]rune(name)))
		if n == 0 || n > maxNameLen {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
		key := strings.ToUpper(name)
		if seen[key] {
			return fmt.Errorf("%w: duplicate %q in %q", ErrInvalidName, name, s.Name)
		}
		seen[key] = true
		return nil
	}

	var kids []uint32
	for _, st := range s.Streams {
		if err := checkName(st.Name); err != nil {
			return 0, err
		}
		data, err := st.Bytes(0)
		if err != nil {
			return 0, err
		}
		kids = append(kids, uint32(len(e.entries)))
		e.entries = append(e.entries, &dirEntry{
			name:  st.Name,
			kind:  typeStream,
			left:  noStream,
			right: noStream,
			child: noStream,
			start: endOfChain,
			size:  uint64(len(data)),
			data:  data,
		})
	}
	for _, sub := range s.Storages {
		if err := checkName(sub.Name); err != nil {
			return 0, err
		}
		cid, err := e.addStorage(sub, typeStorage)
		if err != nil {
			return 0, err
		}
		kids = append(kids, cid)
	}

	sort.Slice(kids, func(i, j int) bool {
		return lessName(e.entries[kids[i]].name, e.entries[kids[j]].name)
	})
	e.entries[id].child = e.tree(kids)
	return id, nil
}

// tree links ids, already in compound name order, into a balanced binary
// tree and returns the id of its root.
func (e *encoder) tree(ids []uint32) uint32 {
	if len(ids) == 0 {
		return noStream
	}
	mid := len(ids) / 2
	n := e.entries[ids[mid]]
	n.left = e.tree(ids[:mid])
	n.right = e.tree(ids[mid+1:])
	return ids[mid]
}

// lessName orders names the way compound directories do: shorter names
// first, then by upper-cased UTF-16 code units.
func lessName(a, b string) bool {
	ua := utf16.Encode([]rune(strings.Map(unicode.ToUpper, a)))
	ub := utf16.Encode([]rune(strings.Map(unicode.ToUpper, b)))
	if len(ua) != len(ub) {
		return len(ua) < len(ub)
	}
	for i := range ua {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return false
}

func sectorsFor(n int, size int) int {
	return (n + size - 1) / size
}

func (e *encoder) layout() []byte {
	// mini stream and regular stream placement
	var miniStream []byte
	var miniFat []uint32
	var regular []*dirEntry
	for _, d := range e.entries {
		if d.kind != typeStream || d.size == 0 {
			continue
		}
		if d.size >= miniCutoff {
			regular = append(regular, d)
			continue
		}
		d.start = uint32(len(miniFat))
		n := sectorsFor(len(d.data), miniSectorSize)
		for i := 0; i < n; i++ {
			miniFat = append(miniFat, uint32(len(miniFat)+1))
		}
		miniFat[len(miniFat)-1] = endOfChain
		miniStream = append(miniStream, d.data...)
		if pad := len(miniStream) % miniSectorSize; pad != 0 {
			miniStream = append(miniStream, make([]byte, miniSectorSize-pad)...)
		}
	}

	nDir := sectorsFor(len(e.entries), sectorSize/dirEntrySize)
	nMiniFat := sectorsFor(len(miniFat), idsPerSector)
	nMini := sectorsFor(len(miniStream), sectorSize)
	nData := 0
	for _, d := range regular {
		nData += sectorsFor(len(d.data), sectorSize)
	}
	base := nDir + nMiniFat + nMini + nData

	nFat, nDifat := 0, 0
	for {
		needFat := sectorsFor(base+nFat+nDifat, idsPerSector)
		needDifat := 0
		if needFat > headerDifats {
			needDifat = sectorsFor(needFat-headerDifats, idsPerSector-1)
		}
		if needFat == nFat && needDifat == nDifat {
			break
		}
		nFat, nDifat = needFat, needDifat
	}

	fat := make([]uint32, nFat*idsPerSector)
	for i := range fat {
		fat[i] = freeSect
	}
	chain := func(start, n int) {
		for i := 0; i < n-1; i++ {
			fat[start+i] = uint32(start + i + 1)
		}
		if n > 0 {
			fat[start+n-1] = endOfChain
		}
	}

	next := 0
	fatStart := next
	for i := 0; i < nFat; i++ {
		fat[next] = fatSect
		next++
	}
	difatStart := next
	for i := 0; i < nDifat; i++ {
		fat[next] = difatSect
		next++
	}
	dirStart := next
	chain(dirStart, nDir)
	next += nDir
	miniFatStart := next
	chain(miniFatStart, nMiniFat)
	next += nMiniFat
	miniStart := next
	chain(miniStart, nMini)
	next += nMini
	for _, d := range regular {
		n := sectorsFor(len(d.data), sectorSize)
		d.start = uint32(next)
		chain(next, n)
		next += n
	}

	root := e.entries[0]
	root.size = uint64(len(miniStream))
	if nMini > 0 {
		root.start = uint32(miniStart)
	}

	out := make([]byte, sectorSize*(1+next))
	sector := func(sn int) []byte {
		off := sectorSize * (sn + 1)
		return out[off : off+sectorSize]
	}

	// header
	h := out[:sectorSize]
	copy(h, Signature)
	binary.LittleEndian.PutUint16(h[24:], 0x003E)
	binary.LittleEndian.PutUint16(h[26:], 0x0003)
	binary.LittleEndian.PutUint16(h[28:], 0xFFFE)
	binary.LittleEndian.PutUint16(h[30:], 9)
	binary.LittleEndian.PutUint16(h[32:], 6)
	binary.LittleEndian.PutUint32(h[44:], uint32(nFat))
	binary.LittleEndian.PutUint32(h[48:], uint32(dirStart))
	binary.LittleEndian.PutUint32(h[56:], miniCutoff)
	binary.LittleEndian.PutUint32(h[60:], endOfChain)
	if nMiniFat > 0 {
		binary.LittleEndian.PutUint32(h[60:], uint32(miniFatStart))
	}
	binary.LittleEndian.PutUint32(h[64:], uint32(nMiniFat))
	binary.LittleEndian.PutUint32(h[68:], endOfChain)
	if nDifat > 0 {
		binary.LittleEndian.PutUint32(h[68:], uint32(difatStart))
	}
	binary.LittleEndian.PutUint32(h[72:], uint32(nDifat))

	fatLocs := make([]uint32, 0, headerDifats+nDifat*(idsPerSector-1))
	for i := 0; i < nFat; i++ {
		fatLocs = append(fatLocs, uint32(fatStart+i))
	}
	for len(fatLocs) < cap(fatLocs) {
		fatLocs = append(fatLocs, freeSect)
	}
	for i := 0; i < headerDifats; i++ {
		binary.LittleEndian.PutUint32(h[76+i*4:], fatLocs[i])
	}
	rest := fatLocs[headerDifats:]
	for i := 0; i < nDifat; i++ {
		s := sector(difatStart + i)
		for j := 0; j < idsPerSector-1; j++ {
			binary.LittleEndian.PutUint32(s[j*4:], rest[i*(idsPerSector-1)+j])
		}
		nextDifat := endOfChain
		if i+1 < nDifat {
			nextDifat = uint32(difatStart + i + 1)
		}
		binary.LittleEndian.PutUint32(s[(idsPerSector-1)*4:], nextDifat)
	}

	for i, v := range fat {
		s := sector(fatStart + i/idsPerSector)
		binary.LittleEndian.PutUint32(s[(i%idsPerSector)*4:], v)
	}

	dir := make([]byte, nDir*sectorSize)
	for i := 0; i < nDir*sectorSize/dirEntrySize; i++ {
		b := dir[i*dirEntrySize : (i+1)*dirEntrySize]
		if i < len(e.entries) {
			e.entries[i].encode(b)
			continue
		}
		binary.LittleEndian.PutUint32(b[68:], noStream)
		binary.LittleEndian.PutUint32(b[72:], noStream)
		binary.LittleEndian.PutUint32(b[76:], noStream)
	}
	copy(out[sectorSize*(dirStart+1):], dir)

	mf := make([]byte, nMiniFat*sectorSize)
	for i := 0; i < len(mf)/4; i++ {
		v := freeSect
		if i < len(miniFat) {
			v = miniFat[i]
		}
		binary.LittleEndian.PutUint32(mf[i*4:], v)
	}
	copy(out[sectorSize*(miniFatStart+1):], mf)
	copy(out[sectorSize*(miniStart+1):], miniStream)

	for _, d := range regular {
		copy(out[sectorSize*(int(d.start)+1):], d.data)
	}

	return out
}

func (d *dirEntry) encode(b []byte) {
	name := utf16.Encode([]rune(d.name))
	for i, c := range name {
		binary.LittleEndian.PutUint16(b[i*2:], c)
	}
	binary.LittleEndian.PutUint16(b[64:], uint16((len(name)+1)*2))
	b[66] = d.kind
	b[67] = colorBlack
	binary.LittleEndian.PutUint32(b[68:], d.left)
	binary.LittleEndian.PutUint32(b[72:], d.right)
	binary.LittleEndian.PutUint32(b[76:], d.child)
	start := d.start
	if d.kind == typeStorage {
		start = 0
	}
	binary.LittleEndian.PutUint32(b[116:], start)
	binary.LittleEndian.PutUint64(b[120:], d.size)
}
