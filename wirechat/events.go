package wirechat

// MessageEvent emitted when someone sends message.
type MessageEvent struct {
	ID   int64  `json:"id,omitempty"`
	Room string `json:"room"`
	User string `json:"user"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// UserEvent emitted when user joins/leaves or is invited.
type UserEvent struct {
	Room string `json:"room"`
	User string `json:"user"`
	TS   int64  `json:"ts,omitempty"`
}

// RawEvent is an event the dispatcher has no typed callback for.
type RawEvent struct {
	Event string
	Data  []byte
}
