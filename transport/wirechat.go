// Package transport implements conversation.Transport on top of the
// WireChat SDK: REST for room lookup and history, WebSocket for live
// events and sends.
package transport

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-nowplaying/conversation"
	"github.com/vovakirdan/wirechat-nowplaying/wirechat"
	"github.com/vovakirdan/wirechat-nowplaying/wirechat/rest"
)

// liveBuffer bounds how many live events queue up before the WebSocket
// read loop waits for the session to catch up.
const liveBuffer = 256

// leaveTimeout bounds the leave frame sent when a subscription ends.
const leaveTimeout = 2 * time.Second

// Wirechat joins WireChat rooms. One Wirechat serves one conversation at
// a time: joining again rebinds the client callbacks to the new room.
type Wirechat struct {
	client *wirechat.Client
	logger zerolog.Logger
}

var _ conversation.Transport = (*Wirechat)(nil)

// NewWirechat wraps client, which must have been built with a REST base
// URL.
func NewWirechat(client *wirechat.Client, logger zerolog.Logger) *Wirechat {
	return &Wirechat{client: client, logger: logger.With().Str("component", "transport").Logger()}
}

// Join resolves room by name, connects if needed and subscribes to it.
func (w *Wirechat) Join(ctx context.Context, room string) (conversation.Conversation, error) {
	if w.client.REST == nil {
		return nil, errors.New("wirechat client has no REST base URL")
	}
	info, err := w.client.REST.FindRoom(ctx, room)
	if err != nil {
		return nil, errors.Wrapf(err, "look up room %q", room)
	}

	if w.client.State() != wirechat.StateConnected {
		if err := w.client.Connect(ctx); err != nil {
			return nil, errors.Wrap(err, "connect")
		}
	}

	c := newRoom(w.client, info, w.logger)
	c.bind()
	if err := w.client.Join(ctx, room); err != nil {
		return nil, errors.Wrapf(err, "join room %q", room)
	}
	w.logger.Debug().Str("room", room).Int64("room_id", info.ID).Msg("joined room")
	return c, nil
}

// Room is a joined WireChat room.
type Room struct {
	client *wirechat.Client
	info   rest.RoomInfo
	logger zerolog.Logger
	events chan conversation.Event

	mu   sync.Mutex
	stop <-chan struct{}
}

var _ conversation.Conversation = (*Room)(nil)

func newRoom(client *wirechat.Client, info *rest.RoomInfo, logger zerolog.Logger) *Room {
	return &Room{
		client: client,
		info:   *info,
		logger: logger.With().Str("room", info.Name).Logger(),
		events: make(chan conversation.Event, liveBuffer),
	}
}

func (r *Room) ID() string { return r.info.Name }

// bind routes the client callbacks for this room into r.events.
func (r *Room) bind() {
	r.client.OnMessage(func(ev wirechat.MessageEvent) {
		if ev.Room != r.info.Name {
			return
		}
		r.push(conversation.TextEvent{Meta: meta(ev.ID, ev.TS), Sender: ev.User, Body: ev.Text})
	})
	r.client.OnUserJoined(r.membership(conversation.MembershipJoined))
	r.client.OnUserLeft(r.membership(conversation.MembershipLeft))
	r.client.OnUserInvited(r.membership(conversation.MembershipInvited))
	r.client.OnUnhandled(func(ev wirechat.RawEvent) {
		if !strings.HasPrefix(ev.Event, "user_") {
			r.logger.Debug().Str("event", ev.Event).Msg("ignoring event")
			return
		}
		var ue wirechat.UserEvent
		if err := json.Unmarshal(ev.Data, &ue); err != nil || ue.Room != r.info.Name {
			return
		}
		state := conversation.ParseMembershipState(strings.TrimPrefix(ev.Event, "user_"))
		r.push(conversation.MembershipEvent{Meta: meta(0, ue.TS), Member: ue.User, State: state})
	})
	r.client.OnError(func(err error) {
		r.logger.Warn().Err(err).Msg("wirechat error")
	})
}

func (r *Room) membership(state conversation.MembershipState) func(wirechat.UserEvent) {
	return func(ev wirechat.UserEvent) {
		if ev.Room != r.info.Name {
			return
		}
		r.push(conversation.MembershipEvent{Meta: meta(0, ev.TS), Member: ev.User, State: state})
	}
}

// push runs on the client read goroutine.
func (r *Room) push(ev conversation.Event) {
	r.mu.Lock()
	stop := r.stop
	r.mu.Unlock()
	select {
	case r.events <- ev:
	case <-stop:
	}
}

// FetchEvents loads the latest pageSize messages. The server returns
// them newest first.
func (r *Room) FetchEvents(ctx context.Context, pageSize int, order conversation.Order) ([]conversation.Event, error) {
	if pageSize <= 0 || pageSize > rest.MaxPageSize {
		pageSize = rest.MaxPageSize
	}
	resp, err := r.client.REST.GetMessages(ctx, r.info.ID, rest.PageQuery{Limit: pageSize})
	if err != nil {
		return nil, errors.Wrap(err, "get messages")
	}

	evs := make([]conversation.Event, len(resp.Messages))
	for i, m := range resp.Messages {
		evs[i] = conversation.TextEvent{
			Meta:   conversation.Meta{ID: strconv.FormatInt(m.ID, 10), At: m.CreatedAt},
			Sender: m.User,
			Body:   m.Body,
		}
	}
	if order == conversation.OrderAsc {
		for i, j := 0, len(evs)-1; i < j; i, j = i+1, j-1 {
			evs[i], evs[j] = evs[j], evs[i]
		}
	}
	r.logger.Debug().Int("count", len(evs)).Bool("has_more", resp.HasMore).Msg("fetched events")
	return evs, nil
}

// Subscribe returns the live event channel. Once ctx is done the room is
// left and further events are discarded, so the read loop never blocks on
// a gone session.
func (r *Room) Subscribe(ctx context.Context) (<-chan conversation.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		return nil, errors.New("room already subscribed")
	}
	r.stop = ctx.Done()
	go r.leaveWhenDone(ctx)
	return r.events, nil
}

func (r *Room) leaveWhenDone(ctx context.Context) {
	<-ctx.Done()
	leaveCtx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	err := r.client.Leave(leaveCtx, r.info.Name)
	switch {
	case err == nil:
		r.logger.Debug().Msg("left room")
	case wirechat.IsConnectionError(err):
		r.logger.Debug().Err(err).Msg("connection gone before leave")
	default:
		r.logger.Warn().Err(err).Msg("leave room")
	}
}

// Send writes text to the room. The future resolves once the frame is on
// the wire.
func (r *Room) Send(ctx context.Context, text string) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- r.client.Send(ctx, r.info.Name, text)
	}()
	return done
}

func meta(id int64, ts int64) conversation.Meta {
	m := conversation.Meta{}
	if id != 0 {
		m.ID = strconv.FormatInt(id, 10)
	}
	if ts != 0 {
		m.At = time.Unix(ts, 0)
	}
	return m
}
