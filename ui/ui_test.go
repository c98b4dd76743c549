package ui

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestModelSubmitsOnEnter(t *testing.T) {
	var submitted []string
	m := NewModel("Conversation with Bob", func(s string) { submitted = append(submitted, s) })
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m = typeText(t, m, "hello bob")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, []string{"hello bob"}, submitted)
	require.Equal(t, "", m.input.Value())

	m = typeText(t, m, "   ")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, submitted, 1)
}

func TestModelIgnoresInputWhileSending(t *testing.T) {
	var submitted []string
	m := NewModel("chat", func(s string) { submitted = append(submitted, s) })
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m = typeText(t, m, "queued")

	m = update(t, m, inputEnabledMsg(false))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Empty(t, submitted)
	require.Contains(t, m.View(), "sending...")

	m = update(t, m, inputEnabledMsg(true))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, []string{"queued"}, submitted)
}

func TestModelShowsTranscriptAndStatus(t *testing.T) {
	m := NewModel("chat", nil)
	m = update(t, m, transcriptMsg("Alice joined."))
	require.Equal(t, "loading...", m.View())

	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m = update(t, m, statusMsg("message not delivered"))
	view := m.View()
	require.Contains(t, view, "Alice joined.")
	require.Contains(t, view, "message not delivered")
	require.Contains(t, view, "chat")
}

func TestPlainPrintsOnlyNewLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlain(&buf)

	p.ShowTranscript("")
	p.ShowTranscript("Alice joined.")
	p.ShowTranscript("Alice joined.\nAlice said: 'hi'")
	p.ShowTranscript("Alice joined.\nAlice said: 'hi'")
	p.ShowTranscript("Bob joined.")
	p.ShowStatus("joined alice-bob")
	p.ShowStatus("")

	require.Equal(t, strings.Join([]string{
		"Alice joined.",
		"Alice said: 'hi'",
		"----",
		"Bob joined.",
		"* joined alice-bob",
		"",
	}, "\n"), buf.String())
}

func TestReadInput(t *testing.T) {
	var got []string
	in := strings.NewReader("first\n\n  second  \n/quit\nignored\n")
	require.NoError(t, ReadInput(context.Background(), in, func(s string) { got = append(got, s) }))
	require.Equal(t, []string{"first", "second"}, got)
}
