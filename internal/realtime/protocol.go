package realtime

import "encoding/json"

// Event names shared by the channel client and the websocket handler.
const (
	EventJoinRoom       = "join_room"
	EventJoinedRoom     = "joined_room"
	EventSendMessage    = "send_message"
	EventReceiveMessage = "receive_message"
	EventError          = "error"
)

// Envelope frames every message crossing the realtime connection.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope wraps a payload under the given event type.
func NewEnvelope(eventType string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: eventType, Data: data}, nil
}

// JoinRoomPayload asks the server to subscribe the connection to the
// conversation between two participants. The server derives the canonical
// room from the raw ids; clients never send a precomputed room name.
type JoinRoomPayload struct {
	User1 string `json:"user1"`
	User2 string `json:"user2"`
}

// JoinedRoomPayload acknowledges a join with the room the server derived.
type JoinedRoomPayload struct {
	Room string `json:"room"`
}

// ErrorPayload reports a request the server rejected.
type ErrorPayload struct {
	Message string `json:"message"`
}
