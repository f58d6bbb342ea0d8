// Package tui holds the terminal screens of the CLI: a spinner shown while a
// sign-in finishes and a small form for the email and password flows.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrCancelled is returned when the user quits a screen before it completes
var ErrCancelled = errors.New("cancelled")

// Task is the work performed behind the spinner
type Task func(ctx context.Context) error

type taskDoneMsg struct {
	err error
}

// WaitModel shows a spinner with a title until its task returns
type WaitModel struct {
	spinner   spinner.Model
	title     string
	success   string
	task      Task
	ctx       context.Context
	cancel    context.CancelFunc
	err       error
	done      bool
	cancelled bool
	width     int
}

// NewWaitModel creates a spinner screen for task. The task's context is
// cancelled when the user presses ctrl+c or esc.
func NewWaitModel(ctx context.Context, title, success string, task Task) WaitModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = labelStyle

	ctx, cancel := context.WithCancel(ctx)
	return WaitModel{
		spinner: s,
		title:   title,
		success: success,
		task:    task,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Init starts the spinner and the task
func (m WaitModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run)
}

func (m WaitModel) run() tea.Msg {
	return taskDoneMsg{err: m.task(m.ctx)}
}

// Update handles messages for the wait screen
func (m WaitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancel()
			m.cancelled = true
			return m, tea.Quit
		}
		return m, nil

	case taskDoneMsg:
		m.cancel()
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// View renders the wait screen
func (m WaitModel) View() string {
	var sb strings.Builder
	switch {
	case m.cancelled:
		sb.WriteString(statusMessageStyle("Cancelled"))
	case m.done && m.err != nil:
		sb.WriteString(statusMessageStyle(m.err.Error()))
	case m.done:
		sb.WriteString(completeMessageStyle(m.success))
	default:
		sb.WriteString(m.spinner.View())
		sb.WriteString(" ")
		sb.WriteString(m.title)
	}
	return centerText(sb.String(), m.width) + "\n"
}

// Err returns the task error, or ErrCancelled when the user quit first
func (m WaitModel) Err() error {
	if m.cancelled {
		return ErrCancelled
	}
	return m.err
}

// Done reports whether the task returned
func (m WaitModel) Done() bool {
	return m.done
}

// Wait runs task behind a spinner and returns its error
func Wait(ctx context.Context, title, success string, task Task, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(NewWaitModel(ctx, title, success, task), opts...)
	final, err := p.Run()
	if err != nil {
		return err
	}
	return final.(WaitModel).Err()
}
