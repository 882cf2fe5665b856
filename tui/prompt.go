package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// promptModel asks for a video path
type promptModel struct {
	input    textinput.Model
	fallback string

	value   string
	aborted bool
	done    bool
}

func newPromptModel(fallback string) promptModel {
	ti := textinput.New()
	ti.Prompt = "Video file? "
	ti.PromptStyle = promptStyle
	ti.Placeholder = fallback
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	ti.CharLimit = 4096
	ti.Focus()

	return promptModel{input: ti, fallback: fallback}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyEnter:
			m.value = strings.TrimSpace(m.input.Value())
			if m.value == "" {
				m.value = m.fallback
			}
			m.done = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.aborted = true
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done {
		return ""
	}
	hint := navStyle.Render("(default: ") + defaultStyle.Render(m.fallback) + navStyle.Render(")")
	return fmt.Sprintf("%s\n%s\n%s\n", m.input.View(), hint, navStyle.Render("enter: play • esc: quit"))
}

// PromptPath asks for a video path on in/out. An empty answer selects
// fallback; esc or ctrl+c returns ErrAborted.
func PromptPath(ctx context.Context, in io.Reader, out io.Writer, fallback string) (string, error) {
	p := tea.NewProgram(newPromptModel(fallback),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithoutSignalHandler(),
	)

	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ErrAborted
		}
		return "", fmt.Errorf("prompt failed: %w", err)
	}

	m := final.(promptModel)
	if m.aborted {
		return "", ErrAborted
	}
	return m.value, nil
}
