package audiomatch

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// feedRecord is one line of a match feed. A line is a match when id, title
// and artist are present, a failure when error is set, and a plain miss
// when no_match is true.
type feedRecord struct {
	Match
	Error   string `json:"error,omitempty"`
	NoMatch bool   `json:"no_match,omitempty"`
}

// FeedMatcher reads recognition results from a JSON-lines stream, such as
// the output of an external fingerprinting process.
type FeedMatcher struct {
	r   io.Reader
	out chan Result
}

func NewFeedMatcher(r io.Reader) *FeedMatcher {
	return &FeedMatcher{r: r, out: make(chan Result, 8)}
}

func (f *FeedMatcher) Results() <-chan Result { return f.out }

// Run decodes the feed until EOF or ctx is done, then closes Results.
// Malformed lines become Result errors; only read failures stop the feed.
func (f *FeedMatcher) Run(ctx context.Context) error {
	defer close(f.out)

	sc := bufio.NewScanner(f.r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		res := decodeLine(line)
		if res.Err != nil {
			log.Debug().Int("line", lineNo).Err(res.Err).Msg("match feed entry without match")
		}
		select {
		case f.out <- res:
		case <-ctx.Done():
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return errors.Wrap(err, "read match feed")
	}
	return nil
}

func decodeLine(line string) Result {
	var rec feedRecord
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return Result{Err: &MatchError{Reason: "malformed feed line", Err: err}}
	}
	switch {
	case rec.Error != "":
		return Result{Err: &MatchError{Reason: rec.Error}}
	case rec.NoMatch:
		return Result{Err: ErrNoMatch}
	case rec.ID == "" || rec.Title == "" || rec.Artist == "":
		return Result{Err: &MatchError{Reason: "incomplete match", Err: ErrNoMatch}}
	}
	m := rec.Match
	return Result{Match: &m}
}
