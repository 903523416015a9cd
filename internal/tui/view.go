package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/joescharf/crev/internal/output"
	"github.com/joescharf/crev/internal/review"
)

const (
	placeholderText = output.PlaceholderText
	pendingText     = output.PendingText
	noIssuesText    = output.NoIssuesText
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(1).
			PaddingRight(1)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	focusedPaneStyle = paneStyle.BorderForeground(lipgloss.Color("#7D56F4"))

	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("crev"))
	b.WriteString("\n")

	editorPane, resultsPane := paneStyle, paneStyle
	if m.focus == focusEditor {
		editorPane = focusedPaneStyle
	} else {
		resultsPane = focusedPaneStyle
	}
	b.WriteString(editorPane.Render(m.editor.View()))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(resultsPane.Render(m.results.View()))
	b.WriteString("\n")
	b.WriteString(faintStyle.Render("[Ctrl+S] Review  [Ctrl+Y] Copy report  [Tab] Switch pane  [Esc] Quit"))

	return b.String()
}

func (m Model) statusLine() string {
	var line string
	switch m.status.Phase {
	case review.PhasePending:
		line = m.spinner.View() + " " + pendingStyle.Render(pendingText)
	case review.PhaseSucceeded:
		line = successStyle.Render("Review complete")
	case review.PhaseFailed:
		line = errorStyle.Render("Review failed")
	default:
		line = faintStyle.Render("Ready")
	}
	if m.flash != "" {
		line += "  " + faintStyle.Render(m.flash)
	}
	return line
}

// renderResults is the results pane content for st.
func renderResults(st review.Status, markdown bool, width int) string {
	switch st.Phase {
	case review.PhasePending:
		return pendingStyle.Render(pendingText)
	case review.PhaseFailed:
		msg := "Review failed"
		if st.Err != nil {
			msg += ": " + st.Err.Error()
		}
		return errorStyle.Render(msg)
	case review.PhaseSucceeded:
		return renderView(review.Normalize(st.Response), markdown, width)
	default:
		return faintStyle.Render(placeholderText)
	}
}

func renderView(v review.View, markdown bool, width int) string {
	var b strings.Builder

	b.WriteString(headingStyle.Render("Analysis"))
	b.WriteString("\n")
	b.WriteString(v.Analysis)
	b.WriteString("\n\n")

	b.WriteString(headingStyle.Render("Issues Found"))
	b.WriteString("\n")
	if v.NoIssues {
		b.WriteString(successStyle.Render(noIssuesText))
		b.WriteString("\n")
	} else {
		b.WriteString(issueLines(v.Issues))
	}
	b.WriteString("\n")

	b.WriteString(headingStyle.Render("Full Report"))
	b.WriteString("\n")
	if markdown {
		b.WriteString(renderMarkdown(v.Report, width))
	} else {
		b.WriteString(v.Report)
	}
	return b.String()
}

// renderMarkdown renders the report with glamour, falling back to the raw
// text when rendering fails.
func renderMarkdown(text string, width int) string {
	if width < 10 {
		width = 10
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func issueLines(issues []string) string {
	var b strings.Builder
	for _, issue := range issues {
		b.WriteString("• ")
		b.WriteString(issue)
		b.WriteString("\n")
	}
	return b.String()
}
