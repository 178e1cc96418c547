package detector

import "strings"

// Tag identifies the format a blob is dispatched as. Exactly one tag is
// chosen per dispatch decision; Unknown is terminal and never probed.
type Tag uint8

const (
	Unknown Tag = iota
	Word
	Excel
	PowerPoint
	OpenDocument
	PDF
	Zip
	Msg
	Eml
	Mbox
)

var tagNames = [...]string{
	Unknown:      "unknown",
	Word:         "word",
	Excel:        "excel",
	PowerPoint:   "powerpoint",
	OpenDocument: "opendocument",
	PDF:          "pdf",
	Zip:          "zip",
	Msg:          "msg",
	Eml:          "eml",
	Mbox:         "mbox",
}

// String returns the lower-case name of the tag.
func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return tagNames[Unknown]
}

// IsContainer reports whether blobs of this format are expanded into
// children rather than probed directly.
func (t Tag) IsContainer() bool {
	switch t {
	case Zip, Msg, Eml, Mbox:
		return true
	}
	return false
}

// ParseTag returns the tag with the given name (case-insensitive).
func ParseTag(name string) (Tag, bool) {
	for i, n := range tagNames {
		if strings.EqualFold(n, name) {
			return Tag(i), true
		}
	}
	return Unknown, false
}

// Tags returns every known tag except Unknown.
func Tags() []Tag {
	tags := make([]Tag, 0, len(tagNames)-1)
	for i := 1; i < len(tagNames); i++ {
		tags = append(tags, Tag(i))
	}
	return tags
}
