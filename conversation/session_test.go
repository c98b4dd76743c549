package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-nowplaying/audiomatch"
)

type fakeDisplay struct {
	mu         sync.Mutex
	transcript string
	enabled    bool
	status     string
}

func (d *fakeDisplay) ShowTranscript(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transcript = text
}

func (d *fakeDisplay) SetInputEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}

func (d *fakeDisplay) ShowStatus(status string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = status
}

func (d *fakeDisplay) snapshot() (string, bool, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transcript, d.enabled, d.status
}

type fakeConversation struct {
	page    []Event
	pageErr error
	live    chan Event

	mu      sync.Mutex
	sent    []string
	pending chan error // nil resolves sends immediately
}

func (c *fakeConversation) ID() string { return "room" }

func (c *fakeConversation) FetchEvents(context.Context, int, Order) ([]Event, error) {
	return c.page, c.pageErr
}

func (c *fakeConversation) Subscribe(context.Context) (<-chan Event, error) {
	return c.live, nil
}

func (c *fakeConversation) Send(_ context.Context, text string) <-chan error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	if c.pending != nil {
		return c.pending
	}
	done := make(chan error, 1)
	done <- nil
	return done
}

func (c *fakeConversation) sentTexts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

type fakeTransport struct {
	conv    *fakeConversation
	joinErr error
}

func (t *fakeTransport) Join(context.Context, string) (Conversation, error) {
	if t.joinErr != nil {
		return nil, t.joinErr
	}
	return t.conv, nil
}

type chanMatcher chan audiomatch.Result

func (m chanMatcher) Results() <-chan audiomatch.Result { return m }

func startSession(t *testing.T, s *Session) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx, "room") }()
	return func() {
		cancel()
		select {
		case err := <-errCh:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("session did not stop")
		}
	}
}

func TestSessionLoadsPageThenAppendsLive(t *testing.T) {
	conv := &fakeConversation{
		page: []Event{
			MembershipEvent{Member: "Alice", State: MembershipJoined},
			TextEvent{Sender: "Alice", Body: "hi"},
		},
		live: make(chan Event, 1),
	}
	d := &fakeDisplay{}
	s := NewSession(&fakeTransport{conv: conv}, d, WithLogger(zerolog.Nop()))
	stop := startSession(t, s)
	defer stop()

	require.Eventually(t, func() bool {
		text, _, _ := d.snapshot()
		return text == "Alice joined.\nAlice said: 'hi'"
	}, time.Second, 5*time.Millisecond)

	conv.live <- TextEvent{Sender: "Bob", Body: "yo"}
	require.Eventually(t, func() bool {
		text, _, _ := d.snapshot()
		return text == "Alice joined.\nAlice said: 'hi'\nBob said: 'yo'"
	}, time.Second, 5*time.Millisecond)
}

func TestSessionSubmitDisablesInputUntilCompletion(t *testing.T) {
	conv := &fakeConversation{pending: make(chan error, 1)}
	d := &fakeDisplay{}
	s := NewSession(&fakeTransport{conv: conv}, d, WithLogger(zerolog.Nop()))
	stop := startSession(t, s)
	defer stop()

	s.Submit("hello")
	require.Eventually(t, func() bool {
		_, enabled, _ := d.snapshot()
		return !enabled && len(conv.sentTexts()) == 1
	}, time.Second, 5*time.Millisecond)

	conv.pending <- errors.New("network down")
	require.Eventually(t, func() bool {
		_, enabled, status := d.snapshot()
		return enabled && status == "message not delivered"
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"hello"}, conv.sentTexts())
}

func TestSessionSendsNowPlayingOncePerMatch(t *testing.T) {
	conv := &fakeConversation{}
	matches := make(chanMatcher, 4)
	for _, id := range []string{"a", "a", "b"} {
		matches <- audiomatch.Result{Match: &audiomatch.Match{ID: id, Title: "Song " + id, Artist: "Band"}}
	}
	matches <- audiomatch.Result{Err: audiomatch.ErrNoMatch}
	close(matches)

	d := &fakeDisplay{}
	s := NewSession(&fakeTransport{conv: conv}, d, WithMatcher(matches), WithLogger(zerolog.Nop()))
	stop := startSession(t, s)
	defer stop()

	want := []string{
		NowPlayingText("Song a", "Band"),
		NowPlayingText("Song b", "Band"),
	}
	require.Eventually(t, func() bool {
		return len(conv.sentTexts()) == 2
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, want, conv.sentTexts())
	require.Eventually(t, func() bool {
		_, enabled, _ := d.snapshot()
		return enabled
	}, time.Second, 5*time.Millisecond)
}

func TestSessionJoinFailureShowsNothing(t *testing.T) {
	d := &fakeDisplay{}
	s := NewSession(&fakeTransport{joinErr: errors.New("unauthorized")}, d, WithLogger(zerolog.Nop()))
	stop := startSession(t, s)
	defer stop()

	s.Submit("anyone?")
	require.Eventually(t, func() bool {
		_, _, status := d.snapshot()
		return status == "not connected, message not sent"
	}, time.Second, 5*time.Millisecond)
	text, enabled, _ := d.snapshot()
	require.Equal(t, "", text)
	require.True(t, enabled)
}

func TestSessionFetchFailureKeepsLiveEvents(t *testing.T) {
	conv := &fakeConversation{pageErr: errors.New("timeout"), live: make(chan Event, 1)}
	d := &fakeDisplay{}
	s := NewSession(&fakeTransport{conv: conv}, d, WithLogger(zerolog.Nop()))
	stop := startSession(t, s)
	defer stop()

	conv.live <- MembershipEvent{Member: "Bob", State: MembershipLeft}
	require.Eventually(t, func() bool {
		text, _, _ := d.snapshot()
		return text == "Bob left."
	}, time.Second, 5*time.Millisecond)
}

func TestTransportErrorUnwraps(t *testing.T) {
	base := errors.New("refused")
	err := transportError("join", base)
	require.ErrorIs(t, err, base)
	require.EqualError(t, err, "transport join: refused")
	require.NoError(t, transportError("join", nil))
}

func TestSessionDrainWaitsForQueuedSend(t *testing.T) {
	conv := &fakeConversation{pending: make(chan error, 1)}
	d := &fakeDisplay{}
	s := NewSession(&fakeTransport{conv: conv}, d, WithLogger(zerolog.Nop()))
	stop := startSession(t, s)
	defer stop()

	s.Submit("hi")
	drained := make(chan error, 1)
	go func() { drained <- s.Drain(context.Background()) }()

	require.Eventually(t, func() bool { return len(conv.sentTexts()) == 1 }, time.Second, 5*time.Millisecond)
	select {
	case <-drained:
		t.Fatal("drain returned while the send was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	conv.pending <- nil
	select {
	case err := <-drained:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("drain did not return after the send completed")
	}
	require.Equal(t, []string{"hi"}, conv.sentTexts())
}

func TestSessionDrainIdleAndCancelled(t *testing.T) {
	conv := &fakeConversation{pending: make(chan error)}
	s := NewSession(&fakeTransport{conv: conv}, &fakeDisplay{}, WithLogger(zerolog.Nop()))
	stop := startSession(t, s)
	defer stop()

	require.NoError(t, s.Drain(context.Background()))

	s.Submit("stuck")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, s.Drain(ctx), context.DeadlineExceeded)
}
