// Package conversation turns a stream of chat events into a plain-text
// transcript and gates outgoing sends for a single chat screen.
package conversation

import "time"

// MembershipState is the membership transition carried by a MembershipEvent.
type MembershipState int

const (
	// MembershipUnknown stands in for any state the transport reported that
	// this package does not model.
	MembershipUnknown MembershipState = iota
	MembershipInvited
	MembershipJoined
	MembershipLeft
)

func (s MembershipState) String() string {
	switch s {
	case MembershipInvited:
		return "invited"
	case MembershipJoined:
		return "joined"
	case MembershipLeft:
		return "left"
	default:
		return "unknown"
	}
}

// ParseMembershipState maps a wire name to a state. Unrecognized names
// yield MembershipUnknown.
func ParseMembershipState(name string) MembershipState {
	switch name {
	case "invited":
		return MembershipInvited
	case "joined":
		return MembershipJoined
	case "left":
		return MembershipLeft
	default:
		return MembershipUnknown
	}
}

// Meta is transport bookkeeping attached to an event. It never affects
// rendering.
type Meta struct {
	ID string
	At time.Time
}

// Event is one immutable record of conversation activity: either a
// MembershipEvent or a TextEvent.
type Event interface {
	EventMeta() Meta
	isEvent()
}

// MembershipEvent reports that Member was invited, joined or left.
type MembershipEvent struct {
	Meta
	Member string
	State  MembershipState
}

// TextEvent is a message body posted by Sender. An empty Sender means the
// transport could not tell who sent it.
type TextEvent struct {
	Meta
	Sender string
	Body   string
}

func (e MembershipEvent) EventMeta() Meta { return e.Meta }
func (e TextEvent) EventMeta() Meta       { return e.Meta }

func (MembershipEvent) isEvent() {}
func (TextEvent) isEvent()       {}
