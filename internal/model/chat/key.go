package chat

// ConversationKey canonically identifies a two-party conversation. UserA
// always sorts before UserB so both participants derive the same key
// without negotiating.
type ConversationKey struct {
	UserA string
	UserB string
}

// NewKey derives the canonical key for the pair (a, b). NewKey(a, b) and
// NewKey(b, a) are equal.
func NewKey(a, b string) ConversationKey {
	if b < a {
		a, b = b, a
	}
	return ConversationKey{UserA: a, UserB: b}
}

// String renders the key as a room name, "a:b" with sorted ids.
func (k ConversationKey) String() string {
	return k.UserA + ":" + k.UserB
}

// Contains reports whether id is one of the two participants.
func (k ConversationKey) Contains(id string) bool {
	return id == k.UserA || id == k.UserB
}

// Matches reports whether the unordered pair {a, b} equals this key's pair.
func (k ConversationKey) Matches(a, b string) bool {
	return NewKey(a, b) == k
}
