package detector

import (
	"bytes"
	"context"
	"strings"

	"github.com/jhillyerd/enmime"
)

// EmlContainer expands RFC 822 / MIME messages into their attachments.
// Bodies are decoded from their transfer encoding before being inspected.
type EmlContainer struct{}

// DefaultEmlContainer creates a MIME message container.
func DefaultEmlContainer() *EmlContainer {
	return &EmlContainer{}
}

// Children implements Container.
func (c *EmlContainer) Children(_ context.Context, data []byte, limits Limits) ([]Child, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(data))
	if err != nil {
		return nil, NewCorruptError(Eml, "unparseable MIME message", err)
	}

	parts := make([]*enmime.Part, 0, len(env.Attachments)+len(env.Inlines))
	parts = append(parts, env.Attachments...)
	for _, p := range env.Inlines {
		if p.FileName != "" {
			parts = append(parts, p)
		}
	}
	for _, p := range env.OtherParts {
		if p.FileName != "" || strings.EqualFold(p.ContentType, MIMEMessage) {
			parts = append(parts, p)
		}
	}

	if limits.MaxEntries > 0 && len(parts) > limits.MaxEntries {
		return nil, limitError("message has too many attachments: %d (max: %d)",
			len(parts), limits.MaxEntries)
	}

	children := make([]Child, 0, len(parts))
	for _, p := range parts {
		if len(p.Content) == 0 {
			continue
		}
		if limits.MaxEntrySize > 0 && int64(len(p.Content)) > limits.MaxEntrySize {
			return nil, limitError("attachment %s is %s (max: %s)",
				p.FileName, FormatSizeReadable(int64(len(p.Content))), FormatSizeReadable(limits.MaxEntrySize))
		}
		content := p.Content
		children = append(children, Child{
			Name: partName(p),
			Open: func() ([]byte, error) { return content, nil },
		})
	}

	return children, nil
}

// partName returns the attachment file name, or a name synthesized from the
// content type when the part has none.
func partName(p *enmime.Part) string {
	if p.FileName != "" {
		return p.FileName
	}
	if ext := ExtensionForMIME(p.ContentType); ext != "" {
		return "attachment" + ext
	}
	return ""
}
