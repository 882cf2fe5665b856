package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrAborted is returned when the user leaves a screen with esc or ctrl+c
var ErrAborted = errors.New("aborted")

// Messages
type (
	workDoneMsg struct{ err error }
)

// loadingModel shows a spinner while work runs in the background
type loadingModel struct {
	spinner spinner.Model
	status  string
	work    func() error
	cancel  context.CancelFunc

	done    bool
	aborted bool
	err     error
}

func newLoadingModel(status string, work func() error, cancel context.CancelFunc) loadingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return loadingModel{
		spinner: s,
		status:  status,
		work:    work,
		cancel:  cancel,
	}
}

// Init starts the spinner and the work
func (m loadingModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.runWork,
	)
}

func (m loadingModel) runWork() tea.Msg {
	return workDoneMsg{m.work()}
}

// Update handles messages
func (m loadingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			// the work observes the cancelled context and reports back
			m.aborted = true
			m.status = "Cancelling..."
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case workDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m loadingModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("\n   %s %s\n\n", m.spinner.View(), m.status)
}

// RunWithSpinner runs work while a spinner with status is shown on out.
// esc or ctrl+c cancels the context handed to work.
func RunWithSpinner(ctx context.Context, in io.Reader, out io.Writer, status string, work func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newLoadingModel(status, func() error { return work(ctx) }, cancel)
	p := tea.NewProgram(m, tea.WithInput(in), tea.WithOutput(out), tea.WithoutSignalHandler())

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("spinner failed: %w", err)
	}

	fm := final.(loadingModel)
	if fm.aborted {
		return ErrAborted
	}
	return fm.err
}
