package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/peoplegrid/backend/internal/model/chat"
	"github.com/peoplegrid/backend/internal/realtime"
	historyService "github.com/peoplegrid/backend/internal/service/history"
	"github.com/peoplegrid/backend/internal/service/room"
)

var connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "peoplegrid",
	Subsystem: "chat",
	Name:      "connections_active",
	Help:      "Live websocket connections.",
})

// Handler upgrades HTTP requests to the realtime chat connection. Every
// connection may join any number of conversation rooms; room identity is
// derived server-side from the raw ids in join_room requests.
type Handler struct {
	hub        *room.Hub
	historySvc *historyService.Service
	buffer     int
	upgrader   websocket.Upgrader
}

// New creates a websocket handler. buffer bounds each connection's outbound
// queue.
func New(hub *room.Hub, historySvc *historyService.Service, buffer int) *Handler {
	return &Handler{
		hub:        hub,
		historySvc: historySvc,
		buffer:     buffer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}

	connectionsActive.Inc()
	defer connectionsActive.Dec()

	c := &wsConn{
		handler: h,
		socket:  conn,
		sub:     room.NewSubscriber(h.buffer),
		out:     make(chan realtime.Envelope, h.buffer),
	}
	c.run(r.Context())
}

// wsConn is the per-connection state: the hub subscription plus the
// outbound queue serializing all writes through one goroutine.
type wsConn struct {
	handler *Handler
	socket  *websocket.Conn
	sub     *room.Subscriber
	out     chan realtime.Envelope
}

func (c *wsConn) run(ctx context.Context) {
	writerDone := make(chan struct{})
	go c.writeLoop(writerDone)

	forwardDone := make(chan struct{})
	go c.forwardLoop(forwardDone)

	c.readLoop(ctx)

	// Teardown order matters: leaving the hub closes the subscriber
	// channel, which ends forwardLoop; only then is out safe to close.
	c.handler.hub.LeaveAll(c.sub)
	<-forwardDone
	close(c.out)
	<-writerDone
	_ = c.socket.Close()
}

// readLoop processes inbound envelopes until the peer goes away.
func (c *wsConn) readLoop(ctx context.Context) {
	for {
		_, data, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[ws] read error: %v", err)
			}
			return
		}

		var env realtime.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.reject("malformed envelope")
			continue
		}

		switch env.Type {
		case realtime.EventJoinRoom:
			c.handleJoinRoom(env.Data)
		case realtime.EventSendMessage:
			c.handleSendMessage(ctx, env.Data)
		default:
			c.reject("unknown event type " + env.Type)
		}
	}
}

func (c *wsConn) handleJoinRoom(data json.RawMessage) {
	var payload realtime.JoinRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.reject("malformed join_room payload")
		return
	}
	if payload.User1 == "" || payload.User2 == "" {
		c.reject("join_room requires user1 and user2")
		return
	}

	key := c.handler.hub.Join(payload.User1, payload.User2, c.sub)
	c.send(realtime.EventJoinedRoom, realtime.JoinedRoomPayload{Room: key.String()})
}

func (c *wsConn) handleSendMessage(ctx context.Context, data json.RawMessage) {
	var msg chat.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reject("malformed send_message payload")
		return
	}

	stored, err := c.handler.historySvc.Append(ctx, msg)
	if err != nil {
		c.reject(err.Error())
		return
	}

	// Broadcast the stored copy so backfilled ids reach every member,
	// the sender included.
	c.handler.hub.Broadcast(stored)
}

// forwardLoop moves hub deliveries onto the outbound queue.
func (c *wsConn) forwardLoop(done chan struct{}) {
	defer close(done)
	for msg := range c.sub.C() {
		env, err := realtime.NewEnvelope(realtime.EventReceiveMessage, msg)
		if err != nil {
			log.Printf("[ws] encode delivery: %v", err)
			continue
		}
		c.out <- env
	}
}

// writeLoop is the only writer on the socket. After a write failure it
// keeps draining so producers never block.
func (c *wsConn) writeLoop(done chan struct{}) {
	defer close(done)
	broken := false
	for env := range c.out {
		if broken {
			continue
		}
		if err := c.socket.WriteJSON(env); err != nil {
			log.Printf("[ws] write error: %v", err)
			broken = true
		}
	}
}

func (c *wsConn) send(eventType string, payload any) {
	env, err := realtime.NewEnvelope(eventType, payload)
	if err != nil {
		log.Printf("[ws] encode %s: %v", eventType, err)
		return
	}
	c.out <- env
}

func (c *wsConn) reject(message string) {
	c.send(realtime.EventError, realtime.ErrorPayload{Message: message})
}
