package wirechat

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync"

	"github.com/vovakirdan/wirechat-nowplaying/wirechat/internal"
	"github.com/vovakirdan/wirechat-nowplaying/wirechat/rest"

	"github.com/coder/websocket"
)

// Client provides high-level SDK for WireChat.
type Client struct {
	cfg        Config
	logger     Logger
	writeCh    chan outgoing
	dispatcher Dispatcher

	// REST is non-nil when Config.RESTBaseURL is set.
	REST *rest.Client

	mu      sync.Mutex
	conn    *internal.Conn
	state   ConnectionState
	onState func(StateEvent)
	cancel  context.CancelFunc
	runDone <-chan struct{}
}

// outgoing pairs a frame with the channel its write result is reported on.
type outgoing struct {
	in   Inbound
	done chan error
}

// NewClient constructs a client with provided config.
// Use DefaultConfig() as a starting point and modify as needed.
// Set timeout to 0 to disable it.
func NewClient(cfg Config) *Client {
	c := &Client{
		cfg:     cfg,
		logger:  noopLogger{},
		writeCh: make(chan outgoing, 16),
	}
	if cfg.RESTBaseURL != "" {
		c.REST = rest.NewClient(cfg.RESTBaseURL)
		if cfg.Token != "" {
			c.REST.SetToken(cfg.Token)
		}
	}
	return c
}

// SetLogger overrides logger (optional).
func (c *Client) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.logger = l
}

// OnMessage registers callback for message events.
func (c *Client) OnMessage(fn func(MessageEvent)) { c.dispatcher.SetOnMessage(fn) }

// OnUserJoined registers callback for user joined events.
func (c *Client) OnUserJoined(fn func(UserEvent)) { c.dispatcher.SetOnUserJoined(fn) }

// OnUserLeft registers callback for user left events.
func (c *Client) OnUserLeft(fn func(UserEvent)) { c.dispatcher.SetOnUserLeft(fn) }

// OnUserInvited registers callback for user invited events.
func (c *Client) OnUserInvited(fn func(UserEvent)) { c.dispatcher.SetOnUserInvited(fn) }

// OnUnhandled registers callback for events without a typed callback.
func (c *Client) OnUnhandled(fn func(RawEvent)) { c.dispatcher.SetOnUnhandled(fn) }

// OnError registers callback for errors.
func (c *Client) OnError(fn func(error)) { c.dispatcher.SetOnError(fn) }

// OnStateChanged registers callback for connection state transitions.
func (c *Client) OnStateChanged(fn func(StateEvent)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the server, sends hello, and starts internal loops.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	if !c.state.CanConnect() {
		c.mu.Unlock()
		return NewError(ErrorConnection, "already connected")
	}
	c.applyLocked(StateConnecting, nil)

	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return c.fail(WrapError(ErrorInvalidConfig, "parse URL", err))
	}

	dialCtx := ctx
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}

	ws, _, err := websocket.Dial(dialCtx, u.String(), nil)
	if err != nil {
		return c.fail(WrapError(ErrorConnection, "dial "+u.Redacted(), err))
	}
	conn := internal.NewConn(ws, c.cfg.ReadTimeout, c.cfg.WriteTimeout, c.cfg.ReadLimit)

	hello := Inbound{
		Type: inboundHello,
		Data: HelloPayload{
			Protocol: ProtocolVersion,
			Token:    c.cfg.Token,
			User:     c.cfg.User,
		},
	}
	if err := conn.Write(ctx, hello); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "handshake error")
		return c.fail(WrapError(ErrorConnection, "send hello", err))
	}

	c.drainStale()
	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.conn = conn
	c.cancel = cancel
	c.runDone = runCtx.Done()
	c.mu.Unlock()
	c.setState(StateConnected, nil)
	c.logger.Info("connected", map[string]any{"url": u.Redacted()})

	go c.readLoop(runCtx, conn)
	go c.writeLoop(runCtx, conn)
	return nil
}

// Join subscribes to a room.
func (c *Client) Join(ctx context.Context, room string) error {
	return c.send(ctx, Inbound{Type: inboundJoin, Data: RoomPayload{Room: room}})
}

// Leave unsubscribes from a room.
func (c *Client) Leave(ctx context.Context, room string) error {
	return c.send(ctx, Inbound{Type: inboundLeave, Data: RoomPayload{Room: room}})
}

// Send publishes a message to a room. It returns once the frame has been
// written to the socket, or with the error that prevented it.
func (c *Client) Send(ctx context.Context, room, text string) error {
	return c.send(ctx, Inbound{Type: inboundMsg, Data: MsgPayload{Room: room, Text: text}})
}

// Close shuts down client and closes WebSocket.
func (c *Client) Close() error {
	c.mu.Lock()
	cancel := c.cancel
	conn := c.conn
	c.cancel = nil
	c.conn = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.setState(StateClosed, nil)
	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client close")
	}
	return nil
}

func (c *Client) send(ctx context.Context, in Inbound) error {
	c.mu.Lock()
	connected := c.state == StateConnected
	runDone := c.runDone
	c.mu.Unlock()
	if !connected {
		return NewError(ErrorNotConnected, "not connected")
	}

	req := outgoing{in: in, done: make(chan error, 1)}
	select {
	case c.writeCh <- req:
	case <-runDone:
		return NewError(ErrorDisconnected, "connection closed before write")
	case <-ctx.Done():
		return WrapError(ErrorTimeout, "send canceled", ctx.Err())
	}

	select {
	case err := <-req.done:
		return err
	case <-runDone:
		return NewError(ErrorDisconnected, "connection closed during write")
	case <-ctx.Done():
		return WrapError(ErrorTimeout, "send canceled", ctx.Err())
	}
}

func (c *Client) readLoop(ctx context.Context, conn *internal.Conn) {
	for {
		var out Outbound
		if err := conn.Read(ctx, &out); err != nil {
			if isExpectedDisconnect(ctx, err) {
				c.stop(nil)
				return
			}
			werr := WrapError(ErrorDisconnected, "read", err)
			c.dispatcher.fireError(werr)
			c.logger.Warn("read loop exit", map[string]any{"error": err.Error()})
			c.stop(werr)
			return
		}
		c.dispatcher.Dispatch(out)
	}
}

func (c *Client) writeLoop(ctx context.Context, conn *internal.Conn) {
	for {
		select {
		case req := <-c.writeCh:
			err := conn.Write(ctx, req.in)
			if err != nil {
				err = WrapError(ErrorConnection, "write "+req.in.Type, err)
			}
			req.done <- err
			if err != nil {
				c.dispatcher.fireError(err)
				c.logger.Warn("write loop exit", map[string]any{"error": err.Error()})
				c.stop(err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// stop tears down the run loops after a connection loss. A client that
// was closed explicitly stays in StateClosed.
func (c *Client) stop(cause error) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
	c.transition(StateConnected, StateDisconnected, cause)
}

// drainStale answers requests abandoned by a previous connection.
func (c *Client) drainStale() {
	for {
		select {
		case req := <-c.writeCh:
			req.done <- NewError(ErrorDisconnected, "stale request from previous connection")
		default:
			return
		}
	}
}

func (c *Client) fail(err *WirechatError) error {
	c.setState(StateError, err)
	return err
}

func (c *Client) setState(next ConnectionState, err error) {
	c.mu.Lock()
	c.applyLocked(next, err)
}

func (c *Client) transition(from, next ConnectionState, err error) {
	c.mu.Lock()
	if c.state != from {
		c.mu.Unlock()
		return
	}
	c.applyLocked(next, err)
}

// applyLocked expects c.mu held and releases it before firing callbacks.
func (c *Client) applyLocked(next ConnectionState, err error) {
	old := c.state
	if old == next {
		c.mu.Unlock()
		return
	}
	c.state = next
	fn := c.onState
	c.mu.Unlock()
	c.logger.Debug("state changed", map[string]any{"from": old.String(), "to": next.String()})
	if fn != nil {
		fn(StateEvent{OldState: old, NewState: next, Error: err})
	}
}

func isExpectedDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
