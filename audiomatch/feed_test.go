package audiomatch

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestFeedMatcherDecodesLines(t *testing.T) {
	feed := strings.Join([]string{
		`{"id":"a","title":"Blue Monday","artist":"New Order"}`,
		``,
		`# comment`,
		`{"no_match":true}`,
		`{"error":"microphone unavailable"}`,
		`not json`,
		`{"id":"b","title":"Only Title"}`,
	}, "\n")

	f := NewFeedMatcher(strings.NewReader(feed))
	done := make(chan error, 1)
	go func() { done <- f.Run(context.Background()) }()

	var got []Result
	for res := range f.Results() {
		got = append(got, res)
	}
	require.NoError(t, <-done)
	require.Len(t, got, 5)

	require.NotNil(t, got[0].Match)
	require.Equal(t, Match{ID: "a", Title: "Blue Monday", Artist: "New Order"}, *got[0].Match)

	require.ErrorIs(t, got[1].Err, ErrNoMatch)

	var me *MatchError
	require.True(t, errors.As(got[2].Err, &me))
	require.Equal(t, "microphone unavailable", me.Reason)

	require.True(t, errors.As(got[3].Err, &me))
	require.Equal(t, "malformed feed line", me.Reason)

	require.Nil(t, got[4].Match)
	require.ErrorIs(t, got[4].Err, ErrNoMatch)
}

func TestFeedMatcherStopsOnCancel(t *testing.T) {
	feed := strings.Repeat(`{"id":"a","title":"t","artist":"x"}`+"\n", 64)
	f := NewFeedMatcher(strings.NewReader(feed))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.Run(ctx))

	n := 0
	for range f.Results() {
		n++
	}
	require.Less(t, n, 64)
}
