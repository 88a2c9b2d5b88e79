package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tendant/idm-forms/pkg/form"
	"github.com/tendant/idm-forms/pkg/validate"
	"github.com/tendant/idm-forms/pkg/view"
)

// Form is the part of a form controller the model drives.
type Form interface {
	UpdateField(name string, value any) error
	Submit(ctx context.Context) error
	Snapshot() form.Snapshot
}

// Field is one text input of a form.
type Field struct {
	Name        string
	Label       string
	Placeholder string
	Secret      bool
}

var (
	LoginFields = []Field{
		{Name: validate.FieldEmail, Label: "Email", Placeholder: "you@example.com"},
		{Name: validate.FieldPassword, Label: "Password", Placeholder: "password", Secret: true},
	}
	SignupFields = []Field{
		{Name: validate.FieldName, Label: "Name", Placeholder: "Ada Lovelace"},
		{Name: validate.FieldEmail, Label: "Email", Placeholder: "you@example.com"},
		{Name: validate.FieldPassword, Label: "Password", Placeholder: "password", Secret: true},
		{Name: validate.FieldConfirmPassword, Label: "Confirm password", Placeholder: "password", Secret: true},
	}
)

const (
	hotPink  = lipgloss.Color("#FF06B7")
	darkGray = lipgloss.Color("#767676")
	red      = lipgloss.Color("#FF5F5F")
	green    = lipgloss.Color("#5FD75F")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(hotPink)
	hintStyle    = lipgloss.NewStyle().Foreground(darkGray)
	errorStyle   = lipgloss.NewStyle().Foreground(red)
	successStyle = lipgloss.NewStyle().Foreground(green)
)

type submittedMsg struct {
	snap form.Snapshot
	err  error
}

// Model is a bubbletea model for one form.
type Model struct {
	ctx          context.Context
	title        string
	busyLabel    string
	doneLabel    string
	form         Form
	fields       []Field
	inputs       []textinput.Model
	focused      int
	withRemember bool
	remember     bool
	reveal       bool
	state        form.State
	done         bool
	err          error
}

type Option func(*Model)

// WithContext sets the context submissions run with.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		m.ctx = ctx
	}
}

// New builds a model for f with one input per field.
func New(title string, f Form, fields []Field, opts ...Option) Model {
	m := Model{
		ctx:       context.Background(),
		title:     title,
		busyLabel: "Submitting...",
		form:      f,
		fields:    fields,
		inputs:    make([]textinput.Model, len(fields)),
	}
	for i, fl := range fields {
		in := textinput.New()
		in.Placeholder = fl.Placeholder
		in.CharLimit = 64
		in.Width = 32
		in.Prompt = ""
		if fl.Secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		m.inputs[i] = in
	}
	if len(m.inputs) > 0 {
		m.inputs[0].Focus()
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// NewLogin builds the login view. ctrl+r toggles "remember me", ctrl+t shows
// or hides the password.
func NewLogin(f *form.LoginForm, opts ...Option) Model {
	m := New("Login", f, LoginFields, opts...)
	m.busyLabel = "Signing in..."
	m.doneLabel = "Signed in."
	m.withRemember = true
	return m
}

func NewSignup(f *form.SignupForm, opts ...Option) Model {
	m := New("Sign up", f, SignupFields, opts...)
	m.busyLabel = "Creating account..."
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// State is the form state as last seen by the view.
func (m Model) State() form.State {
	return m.state
}

// Done reports whether a login went through.
func (m Model) Done() bool {
	return m.done
}

func (m Model) Err() error {
	return m.err
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case submittedMsg:
		m.state = msg.snap.State
		m.err = msg.err
		if msg.err == nil && len(msg.snap.State.Errors) == 0 {
			m.done = m.doneLabel != ""
			m.syncInputs(msg.snap.Values)
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.focused == len(m.inputs)-1 {
				cmd := m.submit()
				return m, cmd
			}
			m.nextInput()
		case tea.KeyShiftTab, tea.KeyUp:
			m.prevInput()
		case tea.KeyTab, tea.KeyDown:
			m.nextInput()
		case tea.KeyCtrlR:
			if m.withRemember {
				m.remember = !m.remember
			}
			return m, nil
		case tea.KeyCtrlT:
			m.toggleReveal()
			return m, nil
		}
		for i := range m.inputs {
			m.inputs[i].Blur()
		}
		m.inputs[m.focused].Focus()
	}

	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}
	return m, tea.Batch(cmds...)
}

// submit is inert while a submission is running.
func (m *Model) submit() tea.Cmd {
	if m.state.Loading {
		return nil
	}
	for i, fl := range m.fields {
		if err := m.form.UpdateField(fl.Name, m.inputs[i].Value()); err != nil {
			m.err = err
			return nil
		}
	}
	if m.withRemember {
		if err := m.form.UpdateField(validate.FieldRemember, m.remember); err != nil {
			m.err = err
			return nil
		}
	}
	m.state.Loading = true
	m.state.Errors = nil
	m.state.Success = ""

	f, ctx := m.form, m.ctx
	return func() tea.Msg {
		err := f.Submit(ctx)
		return submittedMsg{snap: f.Snapshot(), err: err}
	}
}

func (m *Model) toggleReveal() {
	m.reveal = !m.reveal
	for i, fl := range m.fields {
		if !fl.Secret {
			continue
		}
		if m.reveal {
			m.inputs[i].EchoMode = textinput.EchoNormal
		} else {
			m.inputs[i].EchoMode = textinput.EchoPassword
		}
	}
}

func (m *Model) syncInputs(v form.Values) {
	values := map[string]string{
		validate.FieldName:            v.Name,
		validate.FieldEmail:           v.Email,
		validate.FieldPassword:        v.Password,
		validate.FieldConfirmPassword: v.ConfirmPassword,
	}
	for i, fl := range m.fields {
		m.inputs[i].SetValue(values[fl.Name])
	}
	m.remember = v.Remember
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(" " + titleStyle.Render(m.title) + "\n\n")
	for i, fl := range m.fields {
		b.WriteString(" " + labelStyle.Width(32).Render(fl.Label) + "\n")
		b.WriteString(" " + m.inputs[i].View() + "\n\n")
	}
	if m.withRemember {
		box := "[ ]"
		if m.remember {
			box = "[x]"
		}
		b.WriteString(" " + box + " Remember me " + hintStyle.Render("(ctrl+r)") + "\n\n")
	}
	if m.hasSecret() {
		hint := "ctrl+t show password"
		if m.reveal {
			hint = "ctrl+t hide password"
		}
		b.WriteString(" " + hintStyle.Render(hint) + "\n\n")
	}

	switch {
	case m.state.Loading:
		b.WriteString(" " + hintStyle.Render(m.busyLabel) + "\n")
	case m.done:
		b.WriteString(" " + successStyle.Render(m.doneLabel) + "\n")
	case m.state.Success != "":
		b.WriteString(" " + successStyle.Render(view.Sanitize(m.state.Success)) + "\n")
	default:
		b.WriteString(" " + hintStyle.Render("Continue ->") + "\n")
	}
	for _, e := range m.state.Errors {
		b.WriteString(" " + errorStyle.Render("- "+view.Sanitize(e)) + "\n")
	}
	if m.err != nil {
		b.WriteString(" " + errorStyle.Render(m.err.Error()) + "\n")
	}
	return b.String() + "\n"
}

func (m Model) hasSecret() bool {
	for _, fl := range m.fields {
		if fl.Secret {
			return true
		}
	}
	return false
}

func (m *Model) nextInput() {
	m.focused = (m.focused + 1) % len(m.inputs)
}

func (m *Model) prevInput() {
	m.focused--
	if m.focused < 0 {
		m.focused = len(m.inputs) - 1
	}
}

// Run starts an interactive program for m and returns the final model.
func Run(m Model, opts ...tea.ProgramOption) (Model, error) {
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		return m, err
	}
	return final.(Model), nil
}
