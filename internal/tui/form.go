package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Field describes one input of a form
type Field struct {
	Label       string
	Placeholder string
	Value       string
	Secret      bool
}

// FormKeyMap holds key bindings for the form
type FormKeyMap struct {
	next   key.Binding
	prev   key.Binding
	submit key.Binding
	quit   key.Binding
}

func newFormKeyMap() *FormKeyMap {
	return &FormKeyMap{
		next: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "Next field"),
		),
		prev: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "Previous field"),
		),
		submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Submit"),
		),
		quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "Cancel"),
		),
	}
}

// FormModel collects the values of a list of fields
type FormModel struct {
	keys      *FormKeyMap
	title     string
	labels    []string
	inputs    []textinput.Model
	focused   int
	submitted bool
	cancelled bool
	width     int
}

// NewFormModel creates a form with the first field focused
func NewFormModel(title string, fields []Field) FormModel {
	m := FormModel{
		keys:   newFormKeyMap(),
		title:  title,
		labels: make([]string, len(fields)),
		inputs: make([]textinput.Model, len(fields)),
	}
	for i, f := range fields {
		ti := textinput.New()
		ti.Placeholder = f.Placeholder
		ti.Width = 40
		ti.SetValue(f.Value)
		if f.Secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		m.labels[i] = f.Label
		m.inputs[i] = ti
	}
	if len(m.inputs) > 0 {
		m.inputs[0].Focus()
	}
	return m
}

// Init initializes the form
func (m FormModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the form
func (m FormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			m.cancelled = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.submit):
			if m.focused == len(m.inputs)-1 {
				m.submitted = true
				return m, tea.Quit
			}
			cmd := m.focus(m.focused + 1)
			return m, cmd
		case key.Matches(msg, m.keys.next):
			cmd := m.focus(m.focused + 1)
			return m, cmd
		case key.Matches(msg, m.keys.prev):
			cmd := m.focus(m.focused - 1)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	}

	if len(m.inputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	return m, cmd
}

func (m *FormModel) focus(index int) tea.Cmd {
	if len(m.inputs) == 0 {
		return nil
	}
	m.inputs[m.focused].Blur()
	m.focused = (index + len(m.inputs)) % len(m.inputs)
	return m.inputs[m.focused].Focus()
}

// View renders the form
func (m FormModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")
	for i, input := range m.inputs {
		sb.WriteString(labelStyle.Render(m.labels[i]))
		sb.WriteString("\n")
		sb.WriteString(input.View())
		sb.WriteString("\n\n")
	}
	sb.WriteString(helpStyle("(tab) Next | (enter) Submit | (esc) Cancel"))

	return docStyle.Render(sb.String())
}

// Values returns the field values in order
func (m FormModel) Values() []string {
	values := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		values[i] = input.Value()
	}
	return values
}

// Submitted reports whether the user submitted the form
func (m FormModel) Submitted() bool {
	return m.submitted && !m.cancelled
}

// Prompt runs a form and returns the values, or ErrCancelled if the user quit
func Prompt(title string, fields []Field, opts ...tea.ProgramOption) ([]string, error) {
	p := tea.NewProgram(NewFormModel(title, fields), opts...)
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	form := final.(FormModel)
	if !form.Submitted() {
		return nil, ErrCancelled
	}
	return form.Values(), nil
}
