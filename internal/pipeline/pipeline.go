package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joescharf/crev/internal/llm"
)

// State is carried through every stage of a review.
type State struct {
	Code     string
	Analysis string
	Issues   []string
	Report   string
}

// Stage transforms the review state.
type Stage struct {
	Name string
	Run  func(ctx context.Context, c llm.Completer, st *State) error
}

// Pipeline runs stages in order against one completer.
type Pipeline struct {
	llm    llm.Completer
	stages []Stage
	logger *slog.Logger
}

// New creates the analyze -> find issues -> report pipeline.
// A nil logger discards stage logs.
func New(c llm.Completer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		llm:    c,
		stages: DefaultStages(),
		logger: logger,
	}
}

// DefaultStages returns the three review stages.
func DefaultStages() []Stage {
	return []Stage{
		{Name: "analyzer", Run: analyze},
		{Name: "issue_finder", Run: findIssues},
		{Name: "report_generator", Run: generateReport},
	}
}

// Run reviews code and returns the final state.
func (p *Pipeline) Run(ctx context.Context, code string) (*State, error) {
	st := &State{Code: code}
	for _, stage := range p.stages {
		start := time.Now()
		if err := stage.Run(ctx, p.llm, st); err != nil {
			p.logger.Warn("review stage failed", "stage", stage.Name, "error", err)
			return nil, fmt.Errorf("%s: %w", stage.Name, err)
		}
		p.logger.Debug("review stage done", "stage", stage.Name, "duration", time.Since(start))
	}
	return st, nil
}

func analyze(ctx context.Context, c llm.Completer, st *State) error {
	system, user := buildAnalyzePrompt(st.Code)
	text, err := c.Complete(ctx, system, user)
	if err != nil {
		return err
	}
	st.Analysis = text
	return nil
}

func findIssues(ctx context.Context, c llm.Completer, st *State) error {
	system, user := buildIssuesPrompt(st.Analysis, st.Code)
	text, err := c.Complete(ctx, system, user)
	if err != nil {
		return err
	}
	st.Issues = ParseIssues(llm.StripFence(text))
	return nil
}

func generateReport(ctx context.Context, c llm.Completer, st *State) error {
	system, user := buildReportPrompt(st.Analysis, st.Issues)
	text, err := c.Complete(ctx, system, user)
	if err != nil {
		return err
	}
	st.Report = text
	return nil
}

// ParseIssues keeps the trimmed lines of text that start with a dash.
func ParseIssues(text string) []string {
	var issues []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "-") {
			issues = append(issues, line)
		}
	}
	return issues
}
