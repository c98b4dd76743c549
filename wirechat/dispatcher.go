package wirechat

import "encoding/json"

// Dispatcher routes outbound events to registered callbacks.
// Callbacks run on the client's read goroutine and must not block.
type Dispatcher struct {
	onMessage     func(MessageEvent)
	onUserJoined  func(UserEvent)
	onUserLeft    func(UserEvent)
	onUserInvited func(UserEvent)
	onUnhandled   func(RawEvent)
	onError       func(error)
}

func (d *Dispatcher) SetOnMessage(fn func(MessageEvent))  { d.onMessage = fn }
func (d *Dispatcher) SetOnUserJoined(fn func(UserEvent))  { d.onUserJoined = fn }
func (d *Dispatcher) SetOnUserLeft(fn func(UserEvent))    { d.onUserLeft = fn }
func (d *Dispatcher) SetOnUserInvited(fn func(UserEvent)) { d.onUserInvited = fn }
func (d *Dispatcher) SetOnUnhandled(fn func(RawEvent))    { d.onUnhandled = fn }
func (d *Dispatcher) SetOnError(fn func(error))           { d.onError = fn }

// Dispatch decodes one server frame and fires the matching callback.
// Events without a typed callback go to the unhandled hook.
func (d *Dispatcher) Dispatch(out Outbound) {
	if out.Type == outboundError && out.Error != nil {
		d.fireError(FromProtocolError(out.Error))
		return
	}
	switch out.Event {
	case eventMessage:
		dispatchTyped(d, out, "message", d.onMessage)
	case eventUserJoined:
		dispatchTyped(d, out, "user_joined", d.onUserJoined)
	case eventUserLeft:
		dispatchTyped(d, out, "user_left", d.onUserLeft)
	case eventUserInvited:
		dispatchTyped(d, out, "user_invited", d.onUserInvited)
	default:
		if d.onUnhandled != nil && out.Event != "" {
			d.onUnhandled(RawEvent{Event: out.Event, Data: out.Data})
		}
	}
}

func dispatchTyped[T any](d *Dispatcher, out Outbound, name string, fn func(T)) {
	if fn == nil {
		return
	}
	var ev T
	if err := json.Unmarshal(out.Data, &ev); err != nil {
		d.fireError(WrapError(ErrorSerialization, "failed to unmarshal "+name+" event", err))
		return
	}
	fn(ev)
}

func (d *Dispatcher) fireError(err error) {
	if d.onError != nil && err != nil {
		d.onError(err)
	}
}
