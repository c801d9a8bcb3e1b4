package chat

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrMissingParticipant = errors.New("message must carry sender and receiver ids")
	ErrEmptyBody          = errors.New("message body is empty")
)

// Message is one chat turn between two participants. The ID is assigned by
// the sending client so the server echo can be matched against the local
// copy; the server backfills it for clients that omit one.
type Message struct {
	ID         string    `json:"id,omitempty"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Body       string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`

	// Pending marks a locally appended message whose server echo has not
	// arrived yet. Never serialized.
	Pending bool `json:"-"`
}

// Key returns the conversation key for the message's participant pair.
func (m Message) Key() ConversationKey {
	return NewKey(m.SenderID, m.ReceiverID)
}

// Validate checks the fields a message needs before it can be routed.
func (m Message) Validate() error {
	if m.SenderID == "" || m.ReceiverID == "" {
		return ErrMissingParticipant
	}
	if strings.TrimSpace(m.Body) == "" {
		return ErrEmptyBody
	}
	return nil
}

// sameTurn matches two messages without relying on ids. History rows that
// predate id assignment are deduplicated with this.
func (m Message) sameTurn(o Message) bool {
	return m.SenderID == o.SenderID &&
		m.ReceiverID == o.ReceiverID &&
		m.Body == o.Body &&
		m.Timestamp.Equal(o.Timestamp)
}
