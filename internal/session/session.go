// Package session drives one open conversation view: it resolves both
// participants, loads history, owns the realtime channel and keeps the
// message timeline consistent until the view goes away.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/peoplegrid/backend/internal/directory"
	"github.com/peoplegrid/backend/internal/model/chat"
	model "github.com/peoplegrid/backend/internal/model/directory"
	"github.com/peoplegrid/backend/internal/realtime"
)

// State is the lifecycle phase of a conversation session.
type State int

const (
	StateInitializing State = iota
	StateResolvingIdentity
	StateLoadingHistory
	StateConnected
	StateDisconnected
	StateClosed
)

// String implements fmt.Stringer for logs and status payloads.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateResolvingIdentity:
		return "resolving_identity"
	case StateLoadingHistory:
		return "loading_history"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	// ErrRegistrationRequired means the caller's own identity has no
	// directory record. The fix is completing registration, not retrying.
	ErrRegistrationRequired = errors.New("session: caller is not registered in the directory")

	// ErrPeerNotFound means the requested peer id has no directory record.
	ErrPeerNotFound = errors.New("session: peer not found in the directory")

	// ErrNotConnected rejects a send while the channel is down.
	ErrNotConnected = errors.New("session: channel is not connected")

	// ErrClosed rejects operations on a session that has been closed.
	ErrClosed = errors.New("session: closed")
)

// Resolver maps identities and ids to directory records.
type Resolver interface {
	Resolve(ctx context.Context, identity string) (model.Participant, error)
	ResolveID(ctx context.Context, id string) (model.Participant, error)
}

// HistoryFetcher loads the stored messages for a conversation.
type HistoryFetcher interface {
	Fetch(ctx context.Context, key chat.ConversationKey) ([]chat.Message, error)
}

// Channel is the slice of the realtime connection a session drives.
type Channel interface {
	JoinRoom(user1, user2 string) error
	Send(message chat.Message) error
	Close() error
}

// ChannelFactory opens a realtime channel wired to the session's handlers.
// Injected so sessions never reach for an ambient connection.
type ChannelFactory func(ctx context.Context, onMessage func(chat.Message), onError func(error)) (Channel, error)

// DialFactory returns a ChannelFactory dialing the given websocket endpoint.
func DialFactory(url string) ChannelFactory {
	return func(ctx context.Context, onMessage func(chat.Message), onError func(error)) (Channel, error) {
		ch, err := realtime.Connect(ctx, realtime.Config{
			URL:       url,
			OnMessage: onMessage,
			OnError:   onError,
		})
		if err != nil {
			return nil, err
		}
		return ch, nil
	}
}

// Config assembles a session's collaborators.
type Config struct {
	// Identity is the authenticated caller's external identity (email),
	// supplied by the auth collaborator.
	Identity string

	// PeerID is the directory id of the person being chatted with.
	PeerID string

	Resolver Resolver
	History  HistoryFetcher
	Channel  ChannelFactory

	// OnUpdate, when set, is invoked with a fresh snapshot after every
	// observable change. Called without internal locks held.
	OnUpdate func(Snapshot)

	// Now and NewID default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

// Snapshot is the presentation-facing view of a session at one instant.
type Snapshot struct {
	State    State
	Err      error
	Self     model.Participant
	Peer     model.Participant
	Messages []chat.Message

	// CanSend reports whether composing is currently enabled.
	CanSend bool
}

// Session is the per-view conversation state machine. All mutation happens
// under one mutex; completion handlers re-check the closed flag so a
// teardown beats any in-flight continuation.
type Session struct {
	cfg Config

	mu       sync.Mutex
	state    State
	err      error
	self     model.Participant
	peer     model.Participant
	timeline *chat.Timeline
	channel  Channel
	closed   bool
}

// New builds a session; Open starts it.
func New(cfg Config) *Session {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Session{cfg: cfg, state: StateInitializing}
}

// Open runs the setup sequence: resolve self and peer, load history, then
// connect and join the realtime room. Identity and history failures are
// terminal; a channel failure leaves the session readable but Disconnected.
// Open returns nil if the session is closed while setup is in flight.
func (s *Session) Open(ctx context.Context) error {
	if !s.transition(StateResolvingIdentity) {
		return ErrClosed
	}

	self, err := s.cfg.Resolver.Resolve(ctx, s.cfg.Identity)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return s.failSetup(ErrRegistrationRequired)
		}
		return s.failSetup(fmt.Errorf("resolve caller: %w", err))
	}

	peer, err := s.cfg.Resolver.ResolveID(ctx, s.cfg.PeerID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return s.failSetup(ErrPeerNotFound)
		}
		return s.failSetup(fmt.Errorf("resolve peer: %w", err))
	}

	key := chat.NewKey(self.ID, peer.ID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.self = self
	s.peer = peer
	s.timeline = chat.NewTimeline(key)
	s.state = StateLoadingHistory
	s.mu.Unlock()
	s.notify()

	history, err := s.cfg.History.Fetch(ctx, key)
	if err != nil {
		return s.failSetup(fmt.Errorf("load history: %w", err))
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	for _, m := range history {
		s.timeline.Append(m)
	}
	s.mu.Unlock()
	s.notify()

	channel, err := s.cfg.Channel(ctx, s.handleMessage, s.handleChannelError)
	if err == nil {
		err = channel.JoinRoom(self.ID, peer.ID)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if channel != nil {
			_ = channel.Close()
		}
		return nil
	}
	if err != nil {
		// Degrade to read-only: history stays visible, composing stays off.
		s.channel = channel
		s.state = StateDisconnected
		s.mu.Unlock()
		s.notify()
		return nil
	}
	s.channel = channel
	s.state = StateConnected
	s.mu.Unlock()
	s.notify()
	return nil
}

// Send validates, locally echoes and emits one outbound message. The local
// copy is marked pending until the server echo confirms it.
func (s *Session) Send(text string) error {
	body := strings.TrimSpace(text)
	if body == "" {
		return chat.ErrEmptyBody
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state != StateConnected {
		s.mu.Unlock()
		return ErrNotConnected
	}

	msg := chat.Message{
		ID:         s.cfg.NewID(),
		SenderID:   s.self.ID,
		ReceiverID: s.peer.ID,
		Body:       body,
		Timestamp:  s.cfg.Now().UTC(),
		Pending:    true,
	}
	s.timeline.Append(msg)
	channel := s.channel
	s.mu.Unlock()
	s.notify()

	if err := channel.Send(msg); err != nil {
		s.handleChannelError(err)
		return err
	}
	return nil
}

// Status returns the current presentation snapshot.
func (s *Session) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close tears the session down. Only the first call releases the channel;
// repeated calls are no-ops. Safe on every exit path, including sessions
// that never finished opening.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.state = StateClosed
	channel := s.channel
	s.channel = nil
	s.mu.Unlock()

	if channel != nil {
		_ = channel.Close()
	}
	s.notify()
	return nil
}

// handleMessage admits one live push. Pushes for other conversations and
// redelivered duplicates leave the timeline untouched.
func (s *Session) handleMessage(m chat.Message) {
	s.mu.Lock()
	if s.closed || s.timeline == nil {
		s.mu.Unlock()
		return
	}
	changed := s.timeline.Append(m)
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// handleChannelError degrades the session to read-only. The timeline is
// preserved; reconnecting means reopening the view.
func (s *Session) handleChannelError(err error) {
	s.mu.Lock()
	if s.closed || s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.state = StateDisconnected
	s.err = err
	s.mu.Unlock()
	s.notify()
}

func (s *Session) transition(next State) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.state = next
	s.mu.Unlock()
	s.notify()
	return true
}

// failSetup records a terminal setup error. The channel is never open at
// any call site, so there is nothing to release beyond marking the state.
func (s *Session) failSetup(err error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.state = StateClosed
	s.err = err
	s.mu.Unlock()
	s.notify()
	return err
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:   s.state,
		Err:     s.err,
		Self:    s.self,
		Peer:    s.peer,
		CanSend: s.state == StateConnected,
	}
	if s.timeline != nil {
		snap.Messages = s.timeline.Messages()
	}
	return snap
}

func (s *Session) notify() {
	if s.cfg.OnUpdate == nil {
		return
	}
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.cfg.OnUpdate(snap)
}
