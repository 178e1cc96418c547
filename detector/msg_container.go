package detector

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/gobeaver/lockscan/compound"
)

// Outlook message layout.
const (
	propertyPrefix        = "__substg1.0_"
	attachmentPrefix      = "__attach_version1.0_#"
	embeddedMessageName   = "__substg1.0_3701000D"
	attachmentDataName    = "__substg1.0_37010102"
	propMessageClass      = "001A"
	propSubject           = "0037"
	propAttachLongName    = "3707"
	propAttachShortName   = "3704"
	propDisplayName       = "3001"
	typeUnicode           = "001F"
	typeString8           = "001E"
	maxPropertyStreamSize = 1 * MB
)

// mailClasses are the message classes whose attachments are inspected.
// Calendar items, contacts, tasks and notes are not mail.
var mailClasses = map[string]bool{
	"IPM.NOTE":                              true,
	"IPM.NOTE.SMIME":                        true,
	"IPM.NOTE.SMIME.MULTIPARTSIGNED":        true,
	"IPM.NOTE.RECEIPT.SMIME":                true,
	"IPM.NOTE.SECURE":                       true,
	"IPM.NOTE.SECURE.SIGN":                  true,
	"IPM.NOTE.MICROSOFT.VOICEMAIL":          true,
	"IPM.NOTE.MICROSOFT.VOICEMAIL.UM":       true,
	"IPM.NOTE.MICROSOFT.VOICEMAIL.UM.CA":    true,
	"IPM.NOTE.MICROSOFT.MISSED":             true,
	"IPM.NOTE.MICROSOFT.MISSED.VOICE":       true,
	"IPM.NOTE.MICROSOFT.FAX":                true,
	"IPM.NOTE.MICROSOFT.FAX.CA":             true,
	"IPM.NOTE.MICROSOFT.CONVERSATION":       true,
	"IPM.NOTE.MICROSOFT.CONVERSATION.VOICE": true,
	"REPORT.IPM.NOTE.DR":                    true,
	"REPORT.IPM.NOTE.NDR":                   true,
	"REPORT.IPM.NOTE.DELAYED":               true,
	"REPORT.IPM.NOTE.RELAYED":               true,
	"REPORT.IPM.NOTE.EXPANDED":              true,
	"REPORT.IPM.NOTE.IPNRN":                 true,
	"REPORT.IPM.NOTE.IPNNRN":                true,
	"REPORT.IPM.NOTE.SMIME.DR":              true,
	"REPORT.IPM.NOTE.SMIME.NDR":             true,
	"REPORT.IPM.NOTE.SMIME.IPNRN":           true,
	"REPORT.IPM.NOTE.SMIME.IPNNRN":          true,
}

// IsMailClass reports whether an Outlook message class is an email variant
// whose attachments should be inspected.
func IsMailClass(class string) bool {
	return mailClasses[strings.ToUpper(strings.TrimSpace(class))]
}

// MsgContainer expands Outlook .msg files into their attachments. Embedded
// messages are re-serialized as standalone .msg blobs.
type MsgContainer struct{}

// DefaultMsgContainer creates an Outlook message container.
func DefaultMsgContainer() *MsgContainer {
	return &MsgContainer{}
}

// Children implements Container. Messages that are not mail (appointments,
// contacts, tasks) yield no children.
func (c *MsgContainer) Children(_ context.Context, data []byte, limits Limits) ([]Child, error) {
	root, err := compound.Open(data)
	if err != nil {
		return nil, NewCorruptError(Msg, "unreadable compound file", err)
	}

	class := stringProperty(root, propMessageClass)
	if !IsMailClass(class) {
		return nil, nil
	}

	var attachments []*compound.Storage
	for _, s := range root.Storages {
		if strings.HasPrefix(strings.ToLower(s.Name), strings.ToLower(attachmentPrefix)) {
			attachments = append(attachments, s)
		}
	}
	if limits.MaxEntries > 0 && len(attachments) > limits.MaxEntries {
		return nil, limitError("message has too many attachments: %d (max: %d)",
			len(attachments), limits.MaxEntries)
	}

	children := make([]Child, 0, len(attachments))
	for _, att := range attachments {
		if embedded := att.Storage(embeddedMessageName); embedded != nil {
			children = append(children, embeddedChild(att, embedded, limits))
			continue
		}

		st := att.Stream(attachmentDataName)
		if st == nil {
			// Reference-only or OLE attachment; nothing to inspect
			continue
		}
		children = append(children, Child{
			Name: attachmentName(att),
			Open: func() ([]byte, error) {
				return streamBytes(st, limits.MaxEntrySize)
			},
		})
	}

	return children, nil
}

func embeddedChild(att, embedded *compound.Storage, limits Limits) Child {
	name := stringProperty(att, propDisplayName)
	if name == "" {
		name = stringProperty(embedded, propSubject)
	}
	name = sanitizeFileName(name)
	if name == "" {
		name = "message"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".msg") {
		name += ".msg"
	}

	return Child{
		Name: name,
		Open: func() ([]byte, error) {
			if limits.MaxEntrySize > 0 && embedded.TotalSize() > limits.MaxEntrySize {
				return nil, limitError("embedded message %s is %s (max: %s)",
					name, FormatSizeReadable(embedded.TotalSize()), FormatSizeReadable(limits.MaxEntrySize))
			}
			blob, err := compound.Encode(embedded)
			if err != nil {
				return nil, NewCorruptError(Msg, "cannot extract embedded message "+name, err)
			}
			return blob, nil
		},
	}
}

// attachmentName prefers the long file name, then the 8.3 name, then the
// display name.
func attachmentName(att *compound.Storage) string {
	for _, id := range []string{propAttachLongName, propAttachShortName, propDisplayName} {
		if name := stringProperty(att, id); name != "" {
			return name
		}
	}
	return ""
}

func streamBytes(st *compound.Stream, max int64) ([]byte, error) {
	data, err := st.Bytes(max)
	if errors.Is(err, compound.ErrTooLarge) {
		return nil, limitError("%v", err)
	}
	if err != nil {
		return nil, NewCorruptError(Msg, "unreadable attachment", err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// stringProperty reads a string property in either its Unicode or 8-bit
// form. Missing or unreadable properties yield "".
func stringProperty(s *compound.Storage, id string) string {
	if st := s.Stream(propertyPrefix + id + typeUnicode); st != nil {
		raw, err := st.Bytes(maxPropertyStreamSize)
		if err != nil {
			return ""
		}
		text, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(raw)
		if err != nil {
			return ""
		}
		return trimProperty(text)
	}
	if st := s.Stream(propertyPrefix + id + typeString8); st != nil {
		raw, err := st.Bytes(maxPropertyStreamSize)
		if err != nil {
			return ""
		}
		text, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return ""
		}
		return trimProperty(text)
	}
	return ""
}

func trimProperty(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}

// sanitizeFileName replaces characters that are invalid in file names.
func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\\', '/', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < ' ' {
			return -1
		}
		return r
	}, strings.TrimSpace(name))
}

