package conversation

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vovakirdan/wirechat-nowplaying/audiomatch"
)

// Order is the ordering requested for a page of events.
type Order int

const (
	OrderAsc Order = iota
	OrderDesc
)

// DefaultPageSize is the size of the initial page fetched after join.
const DefaultPageSize = 100

// Transport joins conversations.
type Transport interface {
	Join(ctx context.Context, id string) (Conversation, error)
}

// Conversation is a joined conversation.
type Conversation interface {
	Sender
	ID() string
	// FetchEvents returns the first page of the conversation history.
	FetchEvents(ctx context.Context, pageSize int, order Order) ([]Event, error)
	// Subscribe delivers live events until ctx is done.
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// Display shows the session to the user. Its methods are only called from
// the session goroutine.
type Display interface {
	ShowTranscript(text string)
	SetInputEnabled(enabled bool)
	ShowStatus(status string)
}

// Session owns a Reducer and applies every event, send completion, user
// submission and recognizer result to it from a single goroutine (Run).
type Session struct {
	id        string
	transport Transport
	display   Display
	matcher   audiomatch.Matcher
	pageSize  int
	logger    zerolog.Logger

	inbox chan func(context.Context)
	done  chan struct{}

	// owned by Run
	reducer  *Reducer
	bridge   NowPlaying
	conv     Conversation
	inFlight int
	drained  []chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithMatcher feeds recognizer results into the now-playing bridge.
func WithMatcher(m audiomatch.Matcher) Option {
	return func(s *Session) { s.matcher = m }
}

// WithPageSize sets how many events are loaded on join. Non-positive
// values keep DefaultPageSize.
func WithPageSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithLogger replaces the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession creates a session that joins through t and shows its state
// on d. Nothing happens until Run is called.
func NewSession(t Transport, d Display, opts ...Option) *Session {
	s := &Session{
		id:        uuid.NewString(),
		transport: t,
		display:   d,
		pageSize:  DefaultPageSize,
		logger:    log.Logger,
		inbox:     make(chan func(context.Context), 16),
		done:      make(chan struct{}),
		reducer:   NewReducer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("session_id", s.id).Logger()
	return s
}

func (s *Session) ID() string { return s.id }

// Submit queues text entered by the user. It is safe to call from any
// goroutine and drops the text once Run has returned.
func (s *Session) Submit(text string) {
	s.post(func(ctx context.Context) { s.submit(ctx, text) })
}

// Drain waits until every text submitted before the call has been handed
// to the transport and its send has completed. It returns ctx.Err() if ctx
// ends first, and nil once Run has returned.
func (s *Session) Drain(ctx context.Context) error {
	ch := make(chan struct{})
	s.post(func(context.Context) {
		if s.inFlight == 0 {
			close(ch)
			return
		}
		s.drained = append(s.drained, ch)
	})
	select {
	case <-ch:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) post(fn func(context.Context)) {
	select {
	case s.inbox <- fn:
	case <-s.done:
	}
}

type page struct {
	events []Event
	err    error
}

// Run joins conversationID and serves the session until ctx is done. It
// must be called once.
// A failed join leaves the transcript empty; Run keeps serving so the
// display stays responsive, and returns only when ctx ends.
func (s *Session) Run(ctx context.Context, conversationID string) error {
	defer close(s.done)
	logger := s.logger.With().Str("conversation", conversationID).Logger()

	s.display.SetInputEnabled(true)
	s.refresh()

	var live <-chan Event
	var pages <-chan page
	conv, err := s.transport.Join(ctx, conversationID)
	if err != nil {
		logger.Error().Err(transportError("join", err)).Msg("could not join conversation")
		s.display.ShowStatus("could not join " + conversationID)
	} else {
		s.conv = conv
		pages = s.fetch(ctx, conv)
		live, err = conv.Subscribe(ctx)
		if err != nil {
			logger.Error().Err(transportError("subscribe", err)).Msg("live events unavailable")
		}
		logger.Info().Msg("joined conversation")
		s.display.ShowStatus("joined " + conversationID)
	}

	var results <-chan audiomatch.Result
	if s.matcher != nil {
		results = s.matcher.Results()
	}

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Int("events", s.reducer.Len()).Msg("session finished")
			return nil
		case fn := <-s.inbox:
			fn(ctx)
		case p := <-pages:
			pages = nil
			if p.err != nil {
				logger.Error().Err(transportError("fetch", p.err)).Msg("could not load events")
				continue
			}
			// Live events that arrived before the page are overwritten here.
			s.reducer.ReplaceAll(p.events)
			s.refresh()
		case ev, ok := <-live:
			if !ok {
				live = nil
				logger.Warn().Msg("live events stopped")
				continue
			}
			s.reducer.Append(ev)
			s.refresh()
		case res, ok := <-results:
			if !ok {
				results = nil
				logger.Debug().Msg("recognizer stopped")
				continue
			}
			s.observe(ctx, res)
		}
	}
}

func (s *Session) fetch(ctx context.Context, conv Conversation) <-chan page {
	ch := make(chan page, 1)
	go func() {
		evs, err := conv.FetchEvents(ctx, s.pageSize, OrderAsc)
		ch <- page{events: evs, err: err}
	}()
	return ch
}

func (s *Session) submit(ctx context.Context, text string) {
	if s.conv == nil {
		s.logger.Warn().Err(ErrNotJoined).Msg("dropping outgoing message")
		s.display.ShowStatus("not connected, message not sent")
		return
	}
	future := s.reducer.SubmitSend(ctx, text, s.conv)
	s.inFlight++
	s.display.SetInputEnabled(false)
	s.logger.Debug().Int("length", len(text)).Msg("sending message")

	go func() {
		var err error
		select {
		case err = <-future:
		case <-ctx.Done():
			return
		}
		s.post(func(context.Context) { s.finishSend(err) })
	}()
}

func (s *Session) finishSend(err error) {
	s.reducer.FinishSend(err)
	if s.inFlight--; s.inFlight == 0 {
		for _, ch := range s.drained {
			close(ch)
		}
		s.drained = nil
	}
	s.display.SetInputEnabled(true)
	if err != nil {
		s.logger.Warn().Err(transportError("send", err)).Msg("message not delivered")
		s.display.ShowStatus("message not delivered")
		return
	}
	s.display.ShowStatus("")
}

func (s *Session) observe(ctx context.Context, res audiomatch.Result) {
	if res.Err != nil || res.Match == nil {
		if res.Err != nil && !errors.Is(res.Err, audiomatch.ErrNoMatch) {
			s.logger.Warn().Err(res.Err).Msg("audio recognition failed")
			return
		}
		s.logger.Debug().Msg("no audio match")
		return
	}
	text, ok := s.bridge.Observe(*res.Match)
	if !ok {
		return
	}
	s.logger.Info().Str("match_id", res.Match.ID).Str("title", res.Match.Title).Msg("now playing")
	s.submit(ctx, text)
}

func (s *Session) refresh() {
	s.display.ShowTranscript(s.reducer.Render())
}
