package pipeline

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a senior engineer reviewing a short code snippet. Be specific and concise. Do not invent code that is not shown.`

// buildAnalyzePrompt asks for a short narrative analysis of the code.
func buildAnalyzePrompt(code string) (system string, user string) {
	var b strings.Builder
	b.WriteString("Analyse the code briefly:\n\n")
	b.WriteString(code)
	b.WriteString("\n\nFocus on: purpose, structure and concerns.")
	return systemPrompt, b.String()
}

// buildIssuesPrompt asks for a dash-prefixed issue list.
func buildIssuesPrompt(analysis, code string) (system string, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on:\n%s\n\n", analysis)
	fmt.Fprintf(&b, "Code:\n%s\n\n", code)
	b.WriteString(`List 3-5 specific issues. Format each as "-issue" on its own line.`)
	return systemPrompt, b.String()
}

// buildReportPrompt asks for the final report from the analysis and issues.
func buildReportPrompt(analysis string, issues []string) (system string, user string) {
	var b strings.Builder
	b.WriteString("Create a code review report:\n\n")
	fmt.Fprintf(&b, "Analysis: %s\n\n", analysis)
	b.WriteString("Issues:\n")
	if len(issues) == 0 {
		b.WriteString("(none found)\n")
	}
	for _, issue := range issues {
		b.WriteString(issue)
		b.WriteString("\n")
	}
	b.WriteString("\nFormat Summary, Issues, and Recommendation.")
	return systemPrompt, b.String()
}
