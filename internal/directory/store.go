package directory

import (
	"strings"

	model "github.com/peoplegrid/backend/internal/model/directory"
)

// Store exposes directory retrieval for HTTP handlers and the resolver.
type Store interface {
	Search(query string) []model.Participant
	FindByID(id string) (model.Participant, bool)
	Exists(identity string) bool
}

// MemoryStore implements Store with an in-memory slice. The directory of
// record lives in an external store; this holds the rows synced from it.
type MemoryStore struct {
	items []model.Participant
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied records.
func NewMemoryStore(items []model.Participant) *MemoryStore {
	return &MemoryStore{items: append([]model.Participant(nil), items...)}
}

// Search returns records whose name, email, organization or role contains
// the query, case-insensitively. An empty query returns every record.
func (s *MemoryStore) Search(query string) []model.Participant {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Participant, 0, len(s.items))
	for _, item := range s.items {
		if q == "" || matches(item, q) {
			out = append(out, item)
		}
	}
	return out
}

// FindByID looks up a record by identifier.
func (s *MemoryStore) FindByID(id string) (model.Participant, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return model.Participant{}, false
}

// Exists reports whether a record is registered under the identity, using
// the same normalization the resolver applies.
func (s *MemoryStore) Exists(identity string) bool {
	want := NormalizeIdentity(identity)
	if want == "" {
		return false
	}
	for _, item := range s.items {
		if NormalizeIdentity(item.Email) == want {
			return true
		}
	}
	return false
}

// NormalizeIdentity canonicalizes an external identity for comparison. The
// backing store is loosely typed, so stored values may carry stray case and
// whitespace.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

func matches(p model.Participant, q string) bool {
	for _, field := range []string{p.Name, p.Email, p.Organization, p.Role} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
