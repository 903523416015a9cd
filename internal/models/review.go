package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// ReviewRequest is the body posted to the review endpoint.
type ReviewRequest struct {
	Code string `json:"code"`
}

// ReviewResponse is the payload returned by the review endpoint.
// Every field is optional: services omit fields or send them in other shapes,
// and decoding never fails because of a single field.
type ReviewResponse struct {
	Analysis OptString `json:"analysis,omitzero"`
	Issues   IssueList `json:"issues,omitzero"`
	Report   OptString `json:"report,omitzero"`
}

// UnmarshalJSON decodes an object payload field by field. A valid JSON value
// that is not an object decodes to an empty response.
func (r *ReviewResponse) UnmarshalJSON(b []byte) error {
	*r = ReviewResponse{}
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	type plain ReviewResponse
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*r = ReviewResponse(p)
	return nil
}

// OptString is a string field that may be absent from a payload.
type OptString struct {
	Value string
	Valid bool
}

// Some returns a present OptString.
func Some(s string) OptString {
	return OptString{Value: s, Valid: true}
}

// Or returns the value if present, otherwise def.
func (o OptString) Or(def string) string {
	if !o.Valid {
		return def
	}
	return o.Value
}

// UnmarshalJSON treats null and non-string values as absent.
func (o *OptString) UnmarshalJSON(b []byte) error {
	*o = OptString{}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	*o = Some(s)
	return nil
}

// MarshalJSON writes an absent value as null.
func (o OptString) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// IssueList is the ordered issue sequence of a review payload.
type IssueList []string

// UnmarshalJSON accepts an array (string elements are kept in order, others
// skipped) or a single string (split into non-blank lines). Any other shape
// decodes to an empty list.
func (l *IssueList) UnmarshalJSON(b []byte) error {
	*l = nil
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}

	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				*l = append(*l, s)
			}
		}
	case string:
		for _, line := range strings.Split(v, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				*l = append(*l, line)
			}
		}
	}
	return nil
}

// Review is a stored review produced by the local review service.
type Review struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	Analysis   string    `json:"analysis"`
	Issues     []string  `json:"issues"`
	Report     string    `json:"report"`
	Model      string    `json:"model"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Response converts a stored review into the wire payload.
func (r *Review) Response() *ReviewResponse {
	return &ReviewResponse{
		Analysis: Some(r.Analysis),
		Issues:   IssueList(r.Issues),
		Report:   Some(r.Report),
	}
}

// Preview returns the first non-blank line of the code, cut to width runes.
func (r *Review) Preview(width int) string {
	line := ""
	for _, l := range strings.Split(r.Code, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			line = t
			break
		}
	}
	runes := []rune(line)
	if width > 3 && len(runes) > width {
		return string(runes[:width-3]) + "..."
	}
	return line
}
