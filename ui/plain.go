package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Plain prints the transcript to a writer as it grows. Only lines not
// printed before are written; when the transcript is replaced by
// something that does not extend it, the whole text is printed again
// after a separator.
type Plain struct {
	w       io.Writer
	printed string
}

func NewPlain(w io.Writer) *Plain {
	return &Plain{w: w}
}

func (p *Plain) ShowTranscript(text string) {
	switch {
	case text == p.printed:
		return
	case p.printed == "":
		fmt.Fprintln(p.w, text)
	case strings.HasPrefix(text, p.printed+"\n"):
		fmt.Fprintln(p.w, strings.TrimPrefix(text, p.printed+"\n"))
	default:
		fmt.Fprintln(p.w, "----")
		if text != "" {
			fmt.Fprintln(p.w, text)
		}
	}
	p.printed = text
}

// SetInputEnabled is a no-op: stdin cannot be paused, so lines typed
// during a send are submitted as they arrive.
func (p *Plain) SetInputEnabled(bool) {}

func (p *Plain) ShowStatus(status string) {
	if status != "" {
		fmt.Fprintf(p.w, "* %s\n", status)
	}
}

// ReadInput forwards each non-empty line of r to submit until r is
// exhausted or ctx is done. A line of "/quit" ends input.
func ReadInput(ctx context.Context, r io.Reader, submit func(string)) error {
	lines := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errCh <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errCh:
					return errors.Wrap(err, "read input")
				default:
					return nil
				}
			}
			msg := strings.TrimSpace(line)
			if msg == "" {
				continue
			}
			if msg == "/quit" {
				return nil
			}
			submit(msg)
		}
	}
}
