package conversation

import (
	"fmt"
	"strings"
)

// UnknownSender is shown for text events without a sender.
const UnknownSender = "A user"

// FormatLine renders a single event as one transcript line.
func FormatLine(ev Event) string {
	switch e := ev.(type) {
	case MembershipEvent:
		return formatMembership(e)
	case *MembershipEvent:
		return formatMembership(*e)
	case TextEvent:
		return formatText(e)
	case *TextEvent:
		return formatText(*e)
	default:
		return ""
	}
}

func formatMembership(e MembershipEvent) string {
	switch e.State {
	case MembershipInvited:
		return e.Member + " was invited."
	case MembershipJoined:
		return e.Member + " joined."
	case MembershipLeft:
		return e.Member + " left."
	default:
		return e.Member + " changed membership."
	}
}

func formatText(e TextEvent) string {
	sender := e.Sender
	if sender == "" {
		sender = UnknownSender
	}
	return fmt.Sprintf("%s said: '%s'", sender, e.Body)
}

// Render joins the formatted lines of evs with newlines.
func Render(evs []Event) string {
	lines := make([]string, len(evs))
	for i, ev := range evs {
		lines[i] = FormatLine(ev)
	}
	return strings.Join(lines, "\n")
}
