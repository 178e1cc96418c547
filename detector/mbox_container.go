package detector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/emersion/go-mbox"
)

// MboxContainer expands mbox mailboxes into their messages. Each message is
// inspected as an RFC 822 message named message-N.eml.
type MboxContainer struct{}

// DefaultMboxContainer creates an mbox container.
func DefaultMboxContainer() *MboxContainer {
	return &MboxContainer{}
}

// Children implements Container.
func (c *MboxContainer) Children(ctx context.Context, data []byte, limits Limits) ([]Child, error) {
	reader := mbox.NewReader(bytes.NewReader(data))

	var children []Child
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, NewCorruptError(Mbox, fmt.Sprintf("cannot read message %d", n), err)
		}
		if limits.MaxEntries > 0 && n > limits.MaxEntries {
			return nil, limitError("mailbox contains too many messages (max: %d)", limits.MaxEntries)
		}

		var r io.Reader = msg
		if limits.MaxEntrySize > 0 {
			r = io.LimitReader(msg, limits.MaxEntrySize+1)
		}
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, NewCorruptError(Mbox, fmt.Sprintf("cannot read message %d", n), err)
		}
		if limits.MaxEntrySize > 0 && int64(len(body)) > limits.MaxEntrySize {
			return nil, limitError("message %d exceeds %s", n, FormatSizeReadable(limits.MaxEntrySize))
		}

		children = append(children, Child{
			Name: fmt.Sprintf("message-%d.eml", n),
			Open: func() ([]byte, error) { return body, nil },
		})
	}

	return children, nil
}
