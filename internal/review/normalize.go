package review

import (
	"regexp"

	"github.com/joescharf/crev/internal/models"
)

// issueMarker matches a leading bullet dash and the whitespace after it.
var issueMarker = regexp.MustCompile(`^-\s*`)

// View is the display-ready form of a review payload.
type View struct {
	Analysis string   `json:"analysis"`
	Issues   []string `json:"issues"`
	NoIssues bool     `json:"no_issues"`
	Report   string   `json:"report"`
}

// CleanIssue strips a leading "- " marker from an issue line.
func CleanIssue(s string) string {
	return issueMarker.ReplaceAllString(s, "")
}

// Normalize derives display values from resp without modifying it.
// Absent analysis and report render empty; an absent or empty issue list
// sets NoIssues instead of producing an empty list.
func Normalize(resp *models.ReviewResponse) View {
	if resp == nil {
		return View{NoIssues: true}
	}

	v := View{
		Analysis: resp.Analysis.Or(""),
		Report:   resp.Report.Or(""),
	}
	if len(resp.Issues) == 0 {
		v.NoIssues = true
		return v
	}
	v.Issues = make([]string, len(resp.Issues))
	for i, issue := range resp.Issues {
		v.Issues[i] = CleanIssue(issue)
	}
	return v
}
