package chat

// Timeline is the ordered, session-local message sequence for one
// conversation. It is append-only: history rows seed it in server order and
// live pushes extend it in receipt order. No sorting is performed across the
// history/live boundary.
//
// Timeline is not safe for concurrent use; the owning session serializes
// access.
type Timeline struct {
	key  ConversationKey
	msgs []Message
	ids  map[string]int
}

// NewTimeline returns an empty timeline scoped to one conversation.
func NewTimeline(key ConversationKey) *Timeline {
	return &Timeline{
		key: key,
		ids: make(map[string]int),
	}
}

// Key returns the conversation this timeline belongs to.
func (t *Timeline) Key() ConversationKey { return t.key }

// Append admits a message to the timeline. Messages whose participant pair
// does not match the conversation are dropped. A message whose id is already
// present does not append again; if the stored copy is pending, the arrival
// confirms it instead. Returns true when the timeline changed.
func (t *Timeline) Append(m Message) bool {
	if !t.key.Matches(m.SenderID, m.ReceiverID) {
		return false
	}

	if m.ID != "" {
		if i, ok := t.ids[m.ID]; ok {
			if t.msgs[i].Pending {
				t.msgs[i].Pending = false
				return true
			}
			return false
		}
	} else {
		for _, held := range t.msgs {
			if held.sameTurn(m) {
				return false
			}
		}
	}

	t.msgs = append(t.msgs, m)
	if m.ID != "" {
		t.ids[m.ID] = len(t.msgs) - 1
	}
	return true
}

// Messages returns a snapshot copy of the timeline in append order.
func (t *Timeline) Messages() []Message {
	out := make([]Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

// Len returns the number of messages held.
func (t *Timeline) Len() int { return len(t.msgs) }
