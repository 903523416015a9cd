package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/joescharf/crev/internal/review"
)

// Placeholder and busy text shown before a review result is available.
const (
	PlaceholderText = "Submit code to see the review"
	PendingText     = "Reviewing..."
	NoIssuesText    = "No issues found"
)

// UI provides colored output and respects verbose/dry-run modes.
type UI struct {
	Verbose bool
	DryRun  bool
	Out     io.Writer
	ErrOut  io.Writer
}

// New creates a UI with default stdout/stderr writers.
func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	verbosePrefix = color.New(color.FgHiBlue).Sprint("  →")
	issuePrefix   = color.New(color.FgHiYellow).Sprint("•")
	heading       = color.New(color.FgHiCyan, color.Bold).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
)

// PhaseColor returns the phase name colored by submission phase.
func PhaseColor(p review.Phase) string {
	s := p.String()
	switch p {
	case review.PhasePending:
		return yellow(s)
	case review.PhaseSucceeded:
		return green(s)
	case review.PhaseFailed:
		return red(s)
	default:
		return s
	}
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		fmt.Fprintf(u.Out, "%s %s\n", verbosePrefix, fmt.Sprintf(format, a...))
	}
}

func (u *UI) DryRunMsg(format string, a ...any) {
	if u.DryRun {
		u.Warning("[DRY-RUN] "+format, a...)
	}
}

// Review prints the three review sections. The report is written as-is so
// its line breaks and indentation survive.
func (u *UI) Review(v review.View) {
	fmt.Fprintln(u.Out, heading("Analysis"))
	fmt.Fprintln(u.Out, v.Analysis)
	fmt.Fprintln(u.Out)

	fmt.Fprintln(u.Out, heading("Issues Found"))
	if v.NoIssues {
		fmt.Fprintln(u.Out, green(NoIssuesText))
	}
	for _, issue := range v.Issues {
		fmt.Fprintf(u.Out, "%s %s\n", issuePrefix, issue)
	}
	fmt.Fprintln(u.Out)

	fmt.Fprintln(u.Out, heading("Full Report"))
	fmt.Fprint(u.Out, v.Report)
	if !strings.HasSuffix(v.Report, "\n") {
		fmt.Fprintln(u.Out)
	}
}

// Status prints whatever the current submission status calls for.
func (u *UI) Status(st review.Status) {
	switch st.Phase {
	case review.PhasePending:
		u.Info("%s", PendingText)
	case review.PhaseSucceeded:
		u.Review(review.Normalize(st.Response))
	case review.PhaseFailed:
		u.Error("Review failed: %v", st.Err)
	default:
		u.Info("%s", PlaceholderText)
	}
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}
