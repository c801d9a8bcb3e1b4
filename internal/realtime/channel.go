package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/peoplegrid/backend/internal/model/chat"
)

// ErrClosed reports an operation on a channel after Close.
var ErrClosed = errors.New("realtime: channel closed")

const closeGracePeriod = time.Second

// Config carries the endpoint and callbacks for one channel. Callbacks are
// fixed at connect time; the read loop invokes them one event at a time, in
// the order the server emits them.
type Config struct {
	// URL is the websocket endpoint, e.g. "ws://localhost:5002/ws".
	URL string

	// Dialer overrides websocket.DefaultDialer when set.
	Dialer *websocket.Dialer

	// OnMessage receives every inbound chat message. The channel does no
	// conversation filtering; the owning session decides relevance.
	OnMessage func(chat.Message)

	// OnError is notified once if the connection fails mid-stream. The
	// channel is unusable afterwards but Close must still be called.
	OnError func(error)
}

// Channel is one live connection to the realtime endpoint. A session owns
// exactly one channel and closes it on teardown; channels are never shared
// or reached through globals.
type Channel struct {
	conn      *websocket.Conn
	onMessage func(chat.Message)
	onError   func(error)

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// Connect dials the endpoint and starts the receive loop. The returned
// channel is ready for JoinRoom and Send.
func Connect(ctx context.Context, cfg Config) (*Channel, error) {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("realtime: dial %s: status %d: %w", cfg.URL, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("realtime: dial %s: %w", cfg.URL, err)
	}

	ch := &Channel{
		conn:      conn,
		onMessage: cfg.OnMessage,
		onError:   cfg.OnError,
		done:      make(chan struct{}),
	}
	go ch.readLoop()
	return ch, nil
}

// JoinRoom subscribes the connection to the conversation between the two
// ids. The server computes the room; the raw ids travel as-is.
func (c *Channel) JoinRoom(user1, user2 string) error {
	return c.write(EventJoinRoom, JoinRoomPayload{User1: user1, User2: user2})
}

// Send emits one outbound message. Fire-and-forget: no acknowledgement is
// awaited, the server echo over the push stream confirms delivery.
func (c *Channel) Send(message chat.Message) error {
	return c.write(EventSendMessage, message)
}

// Close tears the connection down. Idempotent: only the first call has any
// effect, later calls return nil without touching the connection.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		deadline := time.Now().Add(closeGracePeriod)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
	return nil
}

func (c *Channel) write(eventType string, payload any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	env, err := NewEnvelope(eventType, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(env)
}

func (c *Channel) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// Expected: Close tore the connection down.
			default:
				if c.onError != nil {
					c.onError(err)
				}
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("[realtime] dropping malformed frame: %v", err)
			continue
		}

		switch env.Type {
		case EventReceiveMessage:
			var msg chat.Message
			if err := json.Unmarshal(env.Data, &msg); err != nil {
				log.Printf("[realtime] dropping malformed message event: %v", err)
				continue
			}
			if c.onMessage != nil {
				c.onMessage(msg)
			}
		case EventJoinedRoom:
			// Informational ack, nothing to do.
		case EventError:
			var payload ErrorPayload
			_ = json.Unmarshal(env.Data, &payload)
			log.Printf("[realtime] server rejected request: %s", payload.Message)
		default:
			log.Printf("[realtime] ignoring unknown event %q", env.Type)
		}
	}
}
