package conversation

import (
	"fmt"

	"github.com/vovakirdan/wirechat-nowplaying/audiomatch"
)

// NowPlayingText is the message posted for a recognized track.
func NowPlayingText(title, artist string) string {
	return fmt.Sprintf("I am currently listening to: %s by %s - Via ShazamKit", title, artist)
}

// NowPlaying turns recognizer matches into outgoing messages, suppressing
// a match whose ID equals the previous one.
type NowPlaying struct {
	lastID string
}

// Observe returns the message to send for m, or false when m repeats the
// last match or lacks a title, artist or ID.
func (n *NowPlaying) Observe(m audiomatch.Match) (string, bool) {
	if m.Title == "" || m.Artist == "" || m.ID == "" || m.ID == n.lastID {
		return "", false
	}
	n.lastID = m.ID
	return NowPlayingText(m.Title, m.Artist), true
}

// LastID is the ID of the last match that produced a message.
func (n *NowPlaying) LastID() string { return n.lastID }
