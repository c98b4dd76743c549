package conversation

import (
	"context"
)

// SendState tracks whether an outgoing message is in flight.
type SendState int

const (
	// Idle means no send is in flight; input may be enabled.
	Idle SendState = iota
	// Sending means a submitted text awaits its transport completion.
	Sending
)

func (s SendState) String() string {
	if s == Sending {
		return "sending"
	}
	return "idle"
}

// Sender is the send capability of a joined conversation. Send returns a
// future that yields exactly one value once the transport is done with
// text: nil on success, the failure otherwise.
type Sender interface {
	Send(ctx context.Context, text string) <-chan error
}

// Reducer holds the event log and the send flag of one screen.
//
// A Reducer is not safe for concurrent use. All methods must be called
// from the goroutine that owns it (see Session).
type Reducer struct {
	log     []Event
	state   SendState
	lastErr error
}

// NewReducer returns an empty log in the Idle state.
func NewReducer() *Reducer {
	return &Reducer{}
}

// Append adds ev to the end of the log. Duplicates are kept.
func (r *Reducer) Append(ev Event) {
	r.log = append(r.log, ev)
}

// ReplaceAll swaps the whole log for evs, in the given order.
func (r *Reducer) ReplaceAll(evs []Event) {
	r.log = append(make([]Event, 0, len(evs)), evs...)
}

// Render returns the transcript, one line per event in log order.
func (r *Reducer) Render() string {
	return Render(r.log)
}

// Events returns a copy of the log.
func (r *Reducer) Events() []Event {
	return append([]Event(nil), r.log...)
}

// Len is the number of events in the log.
func (r *Reducer) Len() int { return len(r.log) }

// SendState reports whether a send is in flight.
func (r *Reducer) SendState() SendState { return r.state }

// LastSendError is the error reported by the most recent completed send,
// cleared when a new send starts.
func (r *Reducer) LastSendError() error { return r.lastErr }

// SubmitSend moves to Sending and hands text to s. Concurrent submissions
// are not rejected; keeping input disabled while Sending is up to the
// caller. The returned future must be passed to FinishSend on the owning
// goroutine once it resolves.
func (r *Reducer) SubmitSend(ctx context.Context, text string, s Sender) <-chan error {
	r.state = Sending
	r.lastErr = nil
	return s.Send(ctx, text)
}

// FinishSend returns to Idle whatever the outcome.
func (r *Reducer) FinishSend(err error) {
	r.state = Idle
	r.lastErr = err
}
