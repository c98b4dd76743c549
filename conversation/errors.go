package conversation

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotJoined is reported when input arrives before a conversation was
// joined, or after joining failed.
var ErrNotJoined = errors.New("conversation not joined")

// TransportError is a join, fetch or send failure reported by the
// transport.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func transportError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}
