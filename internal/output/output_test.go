package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/crev/internal/models"
	"github.com/joescharf/crev/internal/review"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	color.NoColor = true
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestInfo(t *testing.T) {
	u, out, _ := newTestUI()
	u.Info("hello %s", "world")
	assert.Contains(t, out.String(), "hello world")
}

func TestSuccess(t *testing.T) {
	u, out, _ := newTestUI()
	u.Success("done %d", 42)
	assert.Contains(t, out.String(), "done 42")
}

func TestWarning(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Warning("careful %s", "now")
	assert.Contains(t, errOut.String(), "careful now")
}

func TestError(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Error("failed %s", "badly")
	assert.Contains(t, errOut.String(), "failed badly")
}

func TestVerboseLog_Enabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = true
	u.VerboseLog("detail %d", 1)
	assert.Contains(t, out.String(), "detail 1")
}

func TestVerboseLog_Disabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = false
	u.VerboseLog("detail %d", 1)
	assert.Empty(t, out.String())
}

func TestDryRunMsg_Enabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = true
	u.DryRunMsg("would create %s", "file")
	assert.Contains(t, errOut.String(), "[DRY-RUN]")
	assert.Contains(t, errOut.String(), "would create file")
}

func TestDryRunMsg_Disabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = false
	u.DryRunMsg("would create %s", "file")
	assert.Empty(t, errOut.String())
}

func TestPhaseColor(t *testing.T) {
	color.NoColor = true
	assert.Equal(t, "pending", PhaseColor(review.PhasePending))
	assert.Equal(t, "succeeded", PhaseColor(review.PhaseSucceeded))
	assert.Equal(t, "failed", PhaseColor(review.PhaseFailed))
	assert.Equal(t, "idle", PhaseColor(review.PhaseIdle))
}

func TestReview_WithIssues(t *testing.T) {
	u, out, _ := newTestUI()
	u.Review(review.View{
		Analysis: "ok",
		Issues:   []string{"unused variable", "missing return"},
		Report:   "Summary\n  indented line",
	})

	got := out.String()
	assert.Contains(t, got, "Analysis\nok\n")
	assert.Contains(t, got, "Issues Found\n")
	assert.Contains(t, got, "unused variable\n")
	assert.Contains(t, got, "missing return\n")
	assert.NotContains(t, got, NoIssuesText)
	assert.True(t, strings.HasSuffix(got, "Full Report\nSummary\n  indented line\n"), got)
}

func TestReview_NoIssues(t *testing.T) {
	u, out, _ := newTestUI()
	u.Review(review.View{NoIssues: true, Report: "r\n"})

	got := out.String()
	assert.Contains(t, got, NoIssuesText)
	assert.True(t, strings.HasSuffix(got, "Full Report\nr\n"), got)
}

func TestStatus(t *testing.T) {
	t.Run("idle", func(t *testing.T) {
		u, out, _ := newTestUI()
		u.Status(review.Status{Phase: review.PhaseIdle})
		assert.Contains(t, out.String(), PlaceholderText)
	})

	t.Run("pending", func(t *testing.T) {
		u, out, _ := newTestUI()
		u.Status(review.Status{Phase: review.PhasePending})
		assert.Contains(t, out.String(), PendingText)
	})

	t.Run("succeeded", func(t *testing.T) {
		u, out, _ := newTestUI()
		u.Status(review.Status{
			Phase: review.PhaseSucceeded,
			Response: &models.ReviewResponse{
				Analysis: models.Some("fine"),
				Issues:   models.IssueList{"- leak"},
				Report:   models.Some("done"),
			},
		})
		assert.Contains(t, out.String(), "fine")
		assert.Contains(t, out.String(), "leak")
		assert.NotContains(t, out.String(), "- leak")
	})

	t.Run("failed", func(t *testing.T) {
		u, out, errOut := newTestUI()
		u.Status(review.Status{Phase: review.PhaseFailed, Err: errors.New("connection refused")})
		assert.Empty(t, out.String())
		assert.Contains(t, errOut.String(), "Review failed: connection refused")
	})
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"ID", "Issues"})
	require.NotNil(t, table)

	table.Append([]string{"01abc", "3"})
	table.Append([]string{"01def", "0"})
	err := table.Render()
	require.NoError(t, err)

	result := out.String()
	assert.Contains(t, result, "01abc")
	assert.Contains(t, result, "01def")
}
