package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewResponse_Decode(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		analysis OptString
		issues   IssueList
		report   OptString
	}{
		{
			name:     "complete payload",
			body:     `{"analysis":"ok","issues":["- unused variable"],"report":"full text"}`,
			analysis: Some("ok"),
			issues:   IssueList{"- unused variable"},
			report:   Some("full text"),
		},
		{
			name:     "missing issues",
			body:     `{"analysis":"ok","report":"x"}`,
			analysis: Some("ok"),
			report:   Some("x"),
		},
		{
			name: "empty object",
			body: `{}`,
		},
		{
			name:     "null fields",
			body:     `{"analysis":null,"issues":null,"report":null}`,
			analysis: OptString{},
		},
		{
			name:     "non-string analysis",
			body:     `{"analysis":42,"report":{"a":1}}`,
			analysis: OptString{},
		},
		{
			name:   "issues as string",
			body:   `{"issues":"-first\n\n  - second  \n"}`,
			issues: IssueList{"-first", "- second"},
		},
		{
			name:   "issues with mixed elements",
			body:   `{"issues":["a",1,null,"b",{"x":"y"}]}`,
			issues: IssueList{"a", "b"},
		},
		{
			name: "issues as object",
			body: `{"issues":{"a":"b"}}`,
		},
		{
			name: "array payload",
			body: `["not","an","object"]`,
		},
		{
			name: "string payload",
			body: `"hello"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp ReviewResponse
			require.NoError(t, json.Unmarshal([]byte(tt.body), &resp))
			assert.Equal(t, tt.analysis, resp.Analysis)
			assert.Equal(t, tt.issues, resp.Issues)
			assert.Equal(t, tt.report, resp.Report)
		})
	}
}

func TestReviewResponse_DecodeInvalidJSON(t *testing.T) {
	var resp ReviewResponse
	assert.Error(t, json.Unmarshal([]byte(`{"analysis":`), &resp))
	assert.Error(t, json.Unmarshal([]byte(`<html>bad gateway</html>`), &resp))
}

func TestReviewResponse_ReportPreservesWhitespace(t *testing.T) {
	var resp ReviewResponse
	require.NoError(t, json.Unmarshal([]byte(`{"report":"  Summary\n\n\tIndented\n  "}`), &resp))
	assert.Equal(t, "  Summary\n\n\tIndented\n  ", resp.Report.Value)
}

func TestReviewResponse_EncodeOmitsAbsent(t *testing.T) {
	data, err := json.Marshal(ReviewResponse{Analysis: Some("ok")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"analysis":"ok"}`, string(data))

	data, err = json.Marshal(ReviewResponse{Analysis: Some(""), Issues: IssueList{"a"}, Report: Some("r")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"analysis":"","issues":["a"],"report":"r"}`, string(data))
}

func TestOptString_Or(t *testing.T) {
	assert.Equal(t, "x", Some("x").Or("def"))
	assert.Equal(t, "def", OptString{}.Or("def"))
}

func TestReview_Response(t *testing.T) {
	r := &Review{Analysis: "a", Issues: []string{"- i"}, Report: "r"}
	resp := r.Response()
	assert.Equal(t, Some("a"), resp.Analysis)
	assert.Equal(t, IssueList{"- i"}, resp.Issues)
	assert.Equal(t, Some("r"), resp.Report)
}

func TestReview_Preview(t *testing.T) {
	assert.Equal(t, "", (&Review{}).Preview(10))
	assert.Equal(t, "abc", (&Review{Code: "\n  abc  \n def"}).Preview(10))
	assert.Equal(t, "abcdefg...", (&Review{Code: "abcdefghijklmnop"}).Preview(10))
}

func TestOptString_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(OptString{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	data, err = json.Marshal(Some("a\nb"))
	require.NoError(t, err)
	assert.Equal(t, `"a\nb"`, string(data))
}
