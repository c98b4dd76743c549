// Package audiomatch describes the ambient music recognizer the chat screen
// listens to, and provides a recognizer driven by a JSON-lines feed.
package audiomatch

import (
	"fmt"

	"github.com/pkg/errors"
)

// Match is a recognized track.
type Match struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Result is delivered for every recognition attempt: either Match is set,
// or Err explains why nothing was recognized.
type Result struct {
	Match *Match
	Err   error
}

// Matcher streams recognition results. The channel is closed when the
// recognizer stops.
type Matcher interface {
	Results() <-chan Result
}

// ErrNoMatch is reported when a signature was captured but nothing
// matched it.
var ErrNoMatch = errors.New("no match")

// MatchError is a recognition failure.
type MatchError struct {
	Reason string
	Err    error
}

func (e *MatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("audio match: %s: %v", e.Reason, e.Err)
	}
	return "audio match: " + e.Reason
}

func (e *MatchError) Unwrap() error { return e.Err }
