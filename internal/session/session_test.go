package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/peoplegrid/backend/internal/directory"
	"github.com/peoplegrid/backend/internal/model/chat"
	model "github.com/peoplegrid/backend/internal/model/directory"
	"github.com/peoplegrid/backend/internal/session"
)

type fakeResolver struct {
	byEmail map[string]model.Participant
	byID    map[string]model.Participant
}

func (f *fakeResolver) Resolve(_ context.Context, identity string) (model.Participant, error) {
	if p, ok := f.byEmail[directory.NormalizeIdentity(identity)]; ok {
		return p, nil
	}
	return model.Participant{}, directory.ErrNotFound
}

func (f *fakeResolver) ResolveID(_ context.Context, id string) (model.Participant, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return model.Participant{}, directory.ErrNotFound
}

type fakeHistory struct {
	messages []chat.Message
	err      error
	calls    int
}

func (f *fakeHistory) Fetch(_ context.Context, _ chat.ConversationKey) ([]chat.Message, error) {
	f.calls++
	return f.messages, f.err
}

type fakeChannel struct {
	mu     sync.Mutex
	joined [][2]string
	sent   []chat.Message
	closes int

	joinErr error
	sendErr error
}

func (f *fakeChannel) JoinRoom(user1, user2 string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, [2]string{user1, user2})
	return f.joinErr
}

func (f *fakeChannel) Send(m chat.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeChannel) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

// harness bundles a session with handles to its fakes and the captured
// channel callbacks.
type harness struct {
	sess      *session.Session
	resolver  *fakeResolver
	history   *fakeHistory
	channel   *fakeChannel
	dials     int
	dialErr   error
	onMessage func(chat.Message)
	onError   func(error)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	self := model.Participant{ID: "p-1", Name: "Asha", Email: "asha@example.org"}
	peer := model.Participant{ID: "p-2", Name: "Diego", Email: "diego@example.org"}

	h := &harness{
		resolver: &fakeResolver{
			byEmail: map[string]model.Participant{"asha@example.org": self},
			byID:    map[string]model.Participant{"p-1": self, "p-2": peer},
		},
		history: &fakeHistory{},
		channel: &fakeChannel{},
	}

	ids := 0
	h.sess = session.New(session.Config{
		Identity: " Asha@Example.org ",
		PeerID:   "p-2",
		Resolver: h.resolver,
		History:  h.history,
		Channel: func(_ context.Context, onMessage func(chat.Message), onError func(error)) (session.Channel, error) {
			h.dials++
			if h.dialErr != nil {
				return nil, h.dialErr
			}
			h.onMessage = onMessage
			h.onError = onError
			return h.channel, nil
		},
		Now:   func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
		NewID: func() string { ids++; return fmt.Sprintf("local-%d", ids) },
	})
	return h
}

func TestOpenEmptyHistoryReachesConnected(t *testing.T) {
	h := newHarness(t)

	if err := h.sess.Open(context.Background()); err != nil {
		t.Fatalf("Open err: %v", err)
	}

	snap := h.sess.Status()
	if snap.State != session.StateConnected {
		t.Fatalf("expected Connected, got %s", snap.State)
	}
	if len(snap.Messages) != 0 {
		t.Fatalf("expected empty timeline, got %+v", snap.Messages)
	}
	if !snap.CanSend {
		t.Fatal("composing should be enabled")
	}
	if len(h.channel.joined) != 1 || h.channel.joined[0] != [2]string{"p-1", "p-2"} {
		t.Fatalf("unexpected join: %+v", h.channel.joined)
	}
}

func TestOpenUnregisteredCallerClosesWithoutConnecting(t *testing.T) {
	h := newHarness(t)
	h.resolver.byEmail = nil

	err := h.sess.Open(context.Background())
	if !errors.Is(err, session.ErrRegistrationRequired) {
		t.Fatalf("expected ErrRegistrationRequired, got %v", err)
	}

	snap := h.sess.Status()
	if snap.State != session.StateClosed {
		t.Fatalf("expected Closed, got %s", snap.State)
	}
	if !errors.Is(snap.Err, session.ErrRegistrationRequired) {
		t.Fatalf("snapshot error missing: %v", snap.Err)
	}
	if h.dials != 0 {
		t.Fatalf("channel should never be dialed, got %d dials", h.dials)
	}
	if h.history.calls != 0 {
		t.Fatal("history should not be fetched for an unregistered caller")
	}
}

func TestOpenUnknownPeerIsTerminal(t *testing.T) {
	h := newHarness(t)
	delete(h.resolver.byID, "p-2")

	if err := h.sess.Open(context.Background()); !errors.Is(err, session.ErrPeerNotFound) {
		t.Fatalf("expected ErrPeerNotFound, got %v", err)
	}
	if snap := h.sess.Status(); snap.State != session.StateClosed {
		t.Fatalf("expected Closed, got %s", snap.State)
	}
}

func TestOpenPreservesHistoryOrder(t *testing.T) {
	h := newHarness(t)
	t1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	h.history.messages = []chat.Message{
		{ID: "h1", SenderID: "p-1", ReceiverID: "p-2", Body: "hi", Timestamp: t1},
		{ID: "h2", SenderID: "p-2", ReceiverID: "p-1", Body: "hello", Timestamp: t1.Add(time.Minute)},
	}

	if err := h.sess.Open(context.Background()); err != nil {
		t.Fatalf("Open err: %v", err)
	}

	snap := h.sess.Status()
	if len(snap.Messages) != 2 || snap.Messages[0].ID != "h1" || snap.Messages[1].ID != "h2" {
		t.Fatalf("history order lost: %+v", snap.Messages)
	}
}

func TestHistoryFailureIsSessionFatal(t *testing.T) {
	h := newHarness(t)
	h.history.err = errors.New("store unavailable")

	if err := h.sess.Open(context.Background()); err == nil {
		t.Fatal("expected Open to fail")
	}

	snap := h.sess.Status()
	if snap.State != session.StateClosed {
		t.Fatalf("expected Closed, got %s", snap.State)
	}
	if h.dials != 0 {
		t.Fatal("channel should not be dialed after a history failure")
	}
}

func TestInboundPushForOtherPairIgnored(t *testing.T) {
	h := newHarness(t)
	if err := h.sess.Open(context.Background()); err != nil {
		t.Fatalf("Open err: %v", err)
	}

	h.onMessage(chat.Message{ID: "x1", SenderID: "p-8", ReceiverID: "p-9", Body: "crosstalk"})

	if snap := h.sess.Status(); len(snap.Messages) != 0 {
		t.Fatalf("unrelated push mutated timeline: %+v", snap.Messages)
	}
}

func TestChannelErrorDegradesToReadOnly(t *testing.T) {
	h := newHarness(t)
	h.history.messages = []chat.Message{
		{ID: "h1", SenderID: "p-1", ReceiverID: "p-2", Body: "hi", Timestamp: time.Now().UTC()},
	}
	if err := h.sess.Open(context.Background()); err != nil {
		t.Fatalf("Open err: %v", err)
	}

	h.onError(errors.New("connection reset"))

	snap := h.sess.Status()
	if snap.State != session.StateDisconnected {
		t.Fatalf("expected Disconnected, got %s", snap.State)
	}
	if len(snap.Messages) != 1 {
		t.Fatalf("timeline not preserved: %+v", snap.Messages)
	}
	if snap.CanSend {
		t.Fatal("composing must be disabled while disconnected")
	}
	if err := h.sess.Send("still there?"); !errors.Is(err, session.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestDialFailureDegradesToReadOnly(t *testing.T) {
	h := newHarness(t)
	h.dialErr = errors.New("dial refused")
	h.history.messages = []chat.Message{
		{ID: "h1", SenderID: "p-1", ReceiverID: "p-2", Body: "hi", Timestamp: time.Now().UTC()},
	}

	if err := h.sess.Open(context.Background()); err != nil {
		t.Fatalf("Open should not fail on channel errors, got %v", err)
	}

	snap := h.sess.Status()
	if snap.State != session.StateDisconnected {
		t.Fatalf("expected Disconnected, got %s", snap.State)
	}
	if len(snap.Messages) != 1 {
		t.Fatal("history must stay visible")
	}
}

func TestSendRejectsWhitespaceLocally(t *testing.T) {
	h := newHarness(t)
	if err := h.sess.Open(context.Background()); err != nil {
		t.Fatalf("Open err: %v", err)
	}

	if err := h.sess.Send("   \t "); !errors.Is(err, chat.ErrEmptyBody) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
	if len(h.channel.sent) != 0 {
		t.Fatalf("whitespace submission reached the channel: %+v", h.channel.sent)
	}
}

func TestSendEchoesLocallyAndConfirmsOnServerEcho(t *testing.T) {
	h := newHarness(t)
	if err := h.sess.Open(context.Background()); err != nil {
		t.Fatalf("Open err: %v", err)
	}

	if err := h.sess.Send("  hi there  "); err != nil {
		t.Fatalf("Send err: %v", err)
	}

	snap := h.sess.Status()
	if len(snap.Messages) != 1 {
		t.Fatalf("expected local echo, got %+v", snap.Messages)
	}
	local := snap.Messages[0]
	if local.Body != "hi there" {
		t.Fatalf("body not trimmed: %q", local.Body)
	}
	if !local.Pending {
		t.Fatal("local echo should be pending")
	}
	if len(h.channel.sent) != 1 || h.channel.sent[0].ID != local.ID {
		t.Fatalf("outbound message mismatch: %+v", h.channel.sent)
	}

	// Server echo with the same id confirms instead of duplicating.
	h.onMessage(h.channel.sent[0])

	snap = h.sess.Status()
	if len(snap.Messages) != 1 {
		t.Fatalf("echo duplicated the message: %+v", snap.Messages)
	}
	if snap.Messages[0].Pending {
		t.Fatal("echo did not clear pending")
	}
}

func TestCloseIsIdempotentAndStopsProcessing(t *testing.T) {
	h := newHarness(t)
	if err := h.sess.Open(context.Background()); err != nil {
		t.Fatalf("Open err: %v", err)
	}

	if err := h.sess.Close(); err != nil {
		t.Fatalf("Close err: %v", err)
	}
	if err := h.sess.Close(); err != nil {
		t.Fatalf("second Close err: %v", err)
	}
	if got := h.channel.closeCount(); got != 1 {
		t.Fatalf("channel closed %d times", got)
	}

	// Late continuations from the dead connection must not mutate state.
	h.onMessage(chat.Message{ID: "late", SenderID: "p-2", ReceiverID: "p-1", Body: "ghost"})
	h.onError(errors.New("late error"))

	snap := h.sess.Status()
	if snap.State != session.StateClosed {
		t.Fatalf("expected Closed, got %s", snap.State)
	}
	if len(snap.Messages) != 0 {
		t.Fatalf("late push mutated a closed session: %+v", snap.Messages)
	}
	if err := h.sess.Send("hi"); !errors.Is(err, session.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestCloseDuringSetupSuppressesLateResults(t *testing.T) {
	h := newHarness(t)
	h.sess.Close()

	if err := h.sess.Open(context.Background()); !errors.Is(err, session.ErrClosed) {
		t.Fatalf("expected ErrClosed from Open after Close, got %v", err)
	}
	if h.dials != 0 {
		t.Fatal("closed session must not dial")
	}
}
