package wirechat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func TestDispatcherMessage(t *testing.T) {
	var got MessageEvent
	var errCalled bool
	var d Dispatcher
	d.SetOnMessage(func(ev MessageEvent) { got = ev })
	d.SetOnError(func(err error) { errCalled = true; _ = err })

	raw, _ := json.Marshal(MessageEvent{Room: "general", User: "alice", Text: "hi"})
	d.Dispatch(Outbound{Type: outboundEvent, Event: eventMessage, Data: raw})

	if got.Room != "general" || got.User != "alice" || got.Text != "hi" {
		t.Fatalf("unexpected event: %+v", got)
	}
	if errCalled {
		t.Fatalf("unexpected error callback")
	}
}

func TestDispatcherError(t *testing.T) {
	var errGot error
	var d Dispatcher
	d.SetOnError(func(err error) { errGot = err })

	d.Dispatch(Outbound{Type: outboundError, Error: &Error{Code: "unauthorized", Msg: "no token"}})
	if errGot == nil {
		t.Fatalf("expected error callback")
	}
	if CodeOf(errGot) != ErrorUnauthorized {
		t.Fatalf("code = %v, want unauthorized", CodeOf(errGot))
	}
	if !IsProtocolError(errGot) {
		t.Fatalf("expected protocol error")
	}
}

func TestDispatcherMembershipAndUnhandled(t *testing.T) {
	var invited, joined UserEvent
	var raw RawEvent
	var d Dispatcher
	d.SetOnUserInvited(func(ev UserEvent) { invited = ev })
	d.SetOnUserJoined(func(ev UserEvent) { joined = ev })
	d.SetOnUnhandled(func(ev RawEvent) { raw = ev })

	data, _ := json.Marshal(UserEvent{Room: "r", User: "bob"})
	d.Dispatch(Outbound{Type: outboundEvent, Event: eventUserInvited, Data: data})
	d.Dispatch(Outbound{Type: outboundEvent, Event: eventUserJoined, Data: data})
	d.Dispatch(Outbound{Type: outboundEvent, Event: "user_banned", Data: data})

	if invited.User != "bob" || joined.User != "bob" {
		t.Fatalf("unexpected membership events: %+v %+v", invited, joined)
	}
	if raw.Event != "user_banned" {
		t.Fatalf("unhandled event = %q", raw.Event)
	}
}

func TestDispatcherBadPayload(t *testing.T) {
	var errGot error
	var d Dispatcher
	d.SetOnMessage(func(MessageEvent) { t.Fatalf("message callback must not fire") })
	d.SetOnError(func(err error) { errGot = err })

	d.Dispatch(Outbound{Type: outboundEvent, Event: eventMessage, Data: json.RawMessage(`{"room":1`)})
	if CodeOf(errGot) != ErrorSerialization {
		t.Fatalf("code = %v, want serialization_error", CodeOf(errGot))
	}
}

func TestClientSendNotConnected(t *testing.T) {
	cfg := DefaultConfig()
	c := NewClient(cfg)
	err := c.Send(testCtx(), "room", "hi")
	if err == nil {
		t.Fatalf("expected error when not connected")
	}
	if CodeOf(err) != ErrorNotConnected {
		t.Fatalf("code = %v, want not_connected", CodeOf(err))
	}
}

func TestClientConnectEmptyURL(t *testing.T) {
	c := NewClient(DefaultConfig())
	err := c.Connect(context.Background())
	if CodeOf(err) != ErrorInvalidConfig {
		t.Fatalf("code = %v, want invalid_config", CodeOf(err))
	}
}

func TestClientRoundTrip(t *testing.T) {
	srv := newEchoServer(t)
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.URL = "ws" + strings.TrimPrefix(srv.URL, "http")
	cfg.User = "alice"
	c := NewClient(cfg)

	var mu sync.Mutex
	var states []ConnectionState
	c.OnStateChanged(func(ev StateEvent) {
		mu.Lock()
		states = append(states, ev.NewState)
		mu.Unlock()
	})
	msgs := make(chan MessageEvent, 1)
	c.OnMessage(func(ev MessageEvent) { msgs <- ev })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := c.Join(ctx, "general"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := c.Send(ctx, "general", "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case ev := <-msgs:
		if ev.User != "alice" || ev.Text != "hello" || ev.Room != "general" {
			t.Fatalf("unexpected echo: %+v", ev)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for echo")
	}

	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if c.State() != StateClosed {
		t.Fatalf("state = %v, want closed", c.State())
	}
	if err := c.Send(ctx, "general", "late"); CodeOf(err) != ErrorNotConnected {
		t.Fatalf("send after close: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) < 3 || states[0] != StateConnecting || states[1] != StateConnected {
		t.Fatalf("unexpected states: %v", states)
	}
}

func TestClientConnectRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	cfg := DefaultConfig()
	cfg.URL = url
	c := NewClient(cfg)
	err := c.Connect(context.Background())
	if !IsConnectionError(err) {
		t.Fatalf("expected connection error, got %v", err)
	}
	if c.State() != StateError {
		t.Fatalf("state = %v, want error", c.State())
	}
	var we *WirechatError
	if !errors.As(err, &we) || we.Wrapped == nil {
		t.Fatalf("expected wrapped dial error, got %#v", err)
	}
}

// newEchoServer accepts one hello, then echoes every msg back as a
// message event from the hello user.
func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer ws.CloseNow()
		ctx := r.Context()

		var hello struct {
			Type string       `json:"type"`
			Data HelloPayload `json:"data"`
		}
		if err := wsjson.Read(ctx, ws, &hello); err != nil || hello.Type != inboundHello {
			return
		}
		for {
			var in struct {
				Type string     `json:"type"`
				Data MsgPayload `json:"data"`
			}
			if err := wsjson.Read(ctx, ws, &in); err != nil {
				return
			}
			if in.Type != inboundMsg {
				continue
			}
			data, _ := json.Marshal(MessageEvent{Room: in.Data.Room, User: hello.Data.User, Text: in.Data.Text})
			if err := wsjson.Write(ctx, ws, Outbound{Type: outboundEvent, Event: eventMessage, Data: data}); err != nil {
				return
			}
		}
	}))
}

// testCtx returns a cancellable context for unit tests.
func testCtx() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestDispatcherHistoryIsUnhandled(t *testing.T) {
	var raw RawEvent
	var d Dispatcher
	d.SetOnMessage(func(MessageEvent) { t.Fatalf("history must not reach the message callback") })
	d.SetOnUnhandled(func(ev RawEvent) { raw = ev })

	d.Dispatch(Outbound{Type: outboundEvent, Event: "history", Data: json.RawMessage(`{"room":"general","messages":[]}`)})
	if raw.Event != "history" {
		t.Fatalf("unhandled event = %q, want history", raw.Event)
	}
}
