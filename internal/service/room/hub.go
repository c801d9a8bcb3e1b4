package room

import (
	"sync"

	"github.com/peoplegrid/backend/internal/model/chat"
)

// Subscriber is one connection's membership in a room. Deliveries are
// buffered; a subscriber that stops draining has messages dropped rather
// than stalling the broadcast.
type Subscriber struct {
	ch chan chat.Message
}

// NewSubscriber allocates a subscriber with the given delivery buffer.
func NewSubscriber(buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 16
	}
	return &Subscriber{ch: make(chan chat.Message, buffer)}
}

// C is the delivery channel. It is closed when the subscriber leaves its
// last room via LeaveAll.
func (s *Subscriber) C() <-chan chat.Message { return s.ch }

// Hub groups live connections into conversation rooms and fans broadcast
// messages out to every member. Room identity is computed here from the raw
// participant ids; clients never transmit a precomputed room name.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscriber]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Subscriber]struct{})}
}

// Join registers the subscriber for the conversation between the two ids
// and returns the canonical key both sides agree on.
func (h *Hub) Join(userA, userB string, sub *Subscriber) chat.ConversationKey {
	key := chat.NewKey(userA, userB)
	name := key.String()

	h.mu.Lock()
	members, ok := h.rooms[name]
	if !ok {
		members = make(map[*Subscriber]struct{})
		h.rooms[name] = members
		roomsActive.Inc()
	}
	members[sub] = struct{}{}
	h.mu.Unlock()

	joinsTotal.Inc()
	return key
}

// Leave removes the subscriber from one room, dropping the room once empty.
func (h *Hub) Leave(key chat.ConversationKey, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(key.String(), sub)
}

// LeaveAll removes the subscriber from every room and closes its delivery
// channel. Safe to call for a subscriber that never joined.
func (h *Hub) LeaveAll(sub *Subscriber) {
	h.mu.Lock()
	for name := range h.rooms {
		h.leaveLocked(name, sub)
	}
	h.mu.Unlock()
	close(sub.ch)
}

func (h *Hub) leaveLocked(name string, sub *Subscriber) {
	members, ok := h.rooms[name]
	if !ok {
		return
	}
	if _, member := members[sub]; !member {
		return
	}
	delete(members, sub)
	if len(members) == 0 {
		delete(h.rooms, name)
		roomsActive.Dec()
	}
}

// Broadcast delivers the message to every member of its conversation's
// room, the sender's own connection included. Members with a full buffer
// miss the message.
func (h *Hub) Broadcast(message chat.Message) {
	name := message.Key().String()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.rooms[name] {
		select {
		case sub.ch <- message:
			deliveredTotal.Inc()
		default:
			droppedTotal.Inc()
		}
	}
}

// Members reports the current member count for the pair's room.
func (h *Hub) Members(userA, userB string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[chat.NewKey(userA, userB).String()])
}
