package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/peoplegrid/backend/internal/model/chat"
)

// Service keeps the per-conversation message log. Storage is in-memory,
// keyed by the canonical conversation key; durable persistence lives behind
// another collaborator and is out of scope here.
type Service struct {
	mu   sync.RWMutex
	logs map[string][]chat.Message
}

// NewService bootstraps an empty message log.
func NewService() *Service {
	return &Service{
		logs: make(map[string][]chat.Message),
	}
}

// Append records a message under its conversation. Messages arriving
// without an id or timestamp get them backfilled so later readers can
// deduplicate.
func (s *Service) Append(_ context.Context, message chat.Message) (chat.Message, error) {
	if err := message.Validate(); err != nil {
		return chat.Message{}, err
	}

	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}
	message.Pending = false

	key := message.Key().String()

	s.mu.Lock()
	s.logs[key] = append(s.logs[key], message)
	s.mu.Unlock()

	return message, nil
}

// History returns the stored messages for the conversation in append order.
// A conversation with no traffic yields an empty slice, not an error; a new
// pair is indistinguishable from a quiet one.
func (s *Service) History(_ context.Context, key chat.ConversationKey) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := s.logs[key.String()]
	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}
