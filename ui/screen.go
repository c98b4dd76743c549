// Package ui renders a conversation session: a bubbletea screen for
// terminals and a line-oriented fallback for pipes.
package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	inputBorder   = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("63"))
)

type transcriptMsg string
type inputEnabledMsg bool
type statusMsg string

// Model is the chat screen: transcript on top, a single input line at the
// bottom. Enter hands the line to the submit callback.
type Model struct {
	title      string
	submit     func(string)
	viewport   viewport.Model
	input      textinput.Model
	transcript string
	status     string
	enabled    bool
	ready      bool
}

func NewModel(title string, submit func(string)) Model {
	ti := textinput.New()
	ti.Placeholder = "Say something..."
	ti.Prompt = "> "
	ti.CharLimit = 2000
	ti.Focus()
	return Model{
		title:   title,
		submit:  submit,
		input:   ti,
		enabled: true,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// title + status + bordered input
		chrome := 1 + 1 + 3
		height := msg.Height - chrome
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.input.Width = msg.Width - 4 - len(m.input.Prompt)
		m.viewport.SetContent(m.transcript)
		m.viewport.GotoBottom()
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if m.enabled && text != "" && m.submit != nil {
				m.submit(text)
				m.input.Reset()
			}
			return m, nil
		}
	case transcriptMsg:
		m.transcript = string(msg)
		if m.ready {
			m.viewport.SetContent(m.transcript)
			m.viewport.GotoBottom()
		}
	case inputEnabledMsg:
		m.enabled = bool(msg)
		if m.enabled {
			cmds = append(cmds, m.input.Focus())
		} else {
			m.input.Blur()
		}
	case statusMsg:
		m.status = string(msg)
	}

	var cmd tea.Cmd
	if m.enabled {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	if scrollsTranscript(msg) {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// scrollsTranscript keeps printable keys in the input line.
func scrollsTranscript(msg tea.Msg) bool {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return true
	}
	switch k.Type {
	case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
		return true
	default:
		return false
	}
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	input := m.input.View()
	if !m.enabled {
		input = disabledStyle.Render("sending...")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(m.title),
		m.viewport.View(),
		statusStyle.Render(m.status),
		inputBorder.Width(m.viewport.Width-2).Render(input),
	)
}

// Screen runs Model in a bubbletea program and implements
// conversation.Display by posting messages to it.
type Screen struct {
	program *tea.Program
}

func NewScreen(ctx context.Context, title string, submit func(string), opts ...tea.ProgramOption) *Screen {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	return &Screen{program: tea.NewProgram(NewModel(title, submit), opts...)}
}

// Run blocks until the user quits or the context given to NewScreen ends.
func (s *Screen) Run() error {
	_, err := s.program.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "run screen")
	}
	return nil
}

func (s *Screen) ShowTranscript(text string)   { s.program.Send(transcriptMsg(text)) }
func (s *Screen) SetInputEnabled(enabled bool) { s.program.Send(inputEnabledMsg(enabled)) }
func (s *Screen) ShowStatus(status string)     { s.program.Send(statusMsg(status)) }
