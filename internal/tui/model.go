package tui

import (
	"context"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joescharf/crev/internal/review"
)

// ClipboardWriter copies text to the system clipboard.
type ClipboardWriter interface {
	WriteText(text string) error
}

type systemClipboard struct{}

func (systemClipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}

type focusArea int

const (
	focusEditor focusArea = iota
	focusResults
)

// Options configures a Model.
type Options struct {
	// Code is the initial editor text.
	Code string
	// Markdown renders the report through glamour.
	Markdown bool
	// Clipboard overrides the system clipboard.
	Clipboard ClipboardWriter
	// Context bounds every dispatched request.
	Context context.Context
}

// outcomeMsg carries a finished submission back into the update loop.
type outcomeMsg review.Outcome

// Model is the interactive review screen: an editor on top, results below.
type Model struct {
	ctrl      *review.Controller
	ctx       context.Context
	editor    textarea.Model
	results   viewport.Model
	spinner   spinner.Model
	clipboard ClipboardWriter
	markdown  bool

	focus  focusArea
	status review.Status
	flash  string
	width  int
	height int
}

// New creates the review screen for ctrl.
func New(ctrl *review.Controller, opts Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Paste code to review..."
	ta.ShowLineNumbers = true
	ta.CharLimit = 0
	ta.SetWidth(80)
	ta.SetHeight(12)
	ta.SetValue(opts.Code)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = pendingStyle

	cb := opts.Clipboard
	if cb == nil {
		cb = systemClipboard{}
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	m := Model{
		ctrl:      ctrl,
		ctx:       ctx,
		editor:    ta,
		results:   viewport.New(80, 10),
		spinner:   sp,
		clipboard: cb,
		markdown:  opts.Markdown,
		status:    ctrl.Status(),
	}
	m.refreshResults()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refreshResults()
		return m, nil

	case outcomeMsg:
		m.ctrl.Complete(review.Outcome(msg))
		m.status = m.ctrl.Status()
		m.refreshResults()
		return m, nil

	case spinner.TickMsg:
		if m.status.Phase != review.PhasePending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+s":
			return m.submit()
		case "ctrl+y":
			m.copyReport()
			return m, nil
		case "tab":
			m.toggleFocus()
			return m, nil
		}
	}

	var cmd tea.Cmd
	if m.focus == focusEditor {
		m.editor, cmd = m.editor.Update(msg)
	} else {
		m.results, cmd = m.results.Update(msg)
	}
	return m, cmd
}

// submit dispatches the editor text as it is right now. The trigger is
// disabled while a request is pending.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.status.Phase == review.PhasePending {
		return m, nil
	}
	sub := m.ctrl.Begin(m.editor.Value())
	m.status = m.ctrl.Status()
	m.flash = ""
	m.refreshResults()

	ctrl, ctx := m.ctrl, m.ctx
	dispatch := func() tea.Msg {
		return outcomeMsg(ctrl.Dispatch(ctx, sub))
	}
	return m, tea.Batch(m.spinner.Tick, dispatch)
}

func (m *Model) copyReport() {
	if m.status.Phase != review.PhaseSucceeded {
		m.flash = "Nothing to copy"
		return
	}
	v := review.Normalize(m.status.Response)
	if err := m.clipboard.WriteText(v.Report); err != nil {
		m.flash = "Copy failed: " + err.Error()
		return
	}
	m.flash = "Report copied to clipboard"
}

func (m *Model) toggleFocus() {
	if m.focus == focusEditor {
		m.focus = focusResults
		m.editor.Blur()
		return
	}
	m.focus = focusEditor
	m.editor.Focus()
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	inner := max(width-4, 20)
	m.editor.SetWidth(inner)

	editorHeight := max(height/3, 5)
	m.editor.SetHeight(editorHeight)

	// title, two pane borders, status line and help line
	m.results.Width = inner
	m.results.Height = max(height-editorHeight-8, 3)
}

func (m *Model) refreshResults() {
	m.results.SetContent(renderResults(m.status, m.markdown, m.results.Width))
	if m.status.Phase != review.PhaseSucceeded {
		m.results.GotoTop()
	}
}

// Code returns the current editor text.
func (m Model) Code() string {
	return m.editor.Value()
}

// Status returns the status last read from the controller.
func (m Model) Status() review.Status {
	return m.status
}

// Flash returns the transient message shown on the status line.
func (m Model) Flash() string {
	return m.flash
}
