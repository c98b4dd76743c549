package wirechat

import "encoding/json"

// ProtocolVersion is sent in the hello frame.
const ProtocolVersion = 1

// Frame types the client sends.
const (
	inboundHello = "hello"
	inboundJoin  = "join"
	inboundLeave = "leave"
	inboundMsg   = "msg"
)

// Frame types and event names the server sends.
const (
	outboundEvent = "event"
	outboundError = "error"

	eventMessage     = "message"
	eventUserJoined  = "user_joined"
	eventUserLeft    = "user_left"
	eventUserInvited = "user_invited"
)

// Inbound is a client frame; Data is one of the payloads below.
type Inbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Outbound is a server frame. Event frames carry Event and Data, error
// frames carry Error.
type Outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

type HelloPayload struct {
	Protocol int    `json:"protocol,omitempty"`
	Token    string `json:"token,omitempty"`
	User     string `json:"user,omitempty"`
}

// RoomPayload names the room of a join or leave frame.
type RoomPayload struct {
	Room string `json:"room"`
}

type MsgPayload struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

// Error is the body of a server error frame.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Msg
}
