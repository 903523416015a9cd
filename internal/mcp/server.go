package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/crev/internal/review"
	"github.com/joescharf/crev/internal/store"
)

// Server exposes code review and review history as MCP tools.
type Server struct {
	ctrl    *review.Controller
	store   store.Store
	version string
}

// NewServer creates the MCP server wrapper. The store may be nil, in which
// case only crev_review_code is useful.
func NewServer(ctrl *review.Controller, s store.Store, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{
		ctrl:    ctrl,
		store:   s,
		version: version,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("crev", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.reviewCodeTool())
	srv.AddTool(s.listReviewsTool())
	srv.AddTool(s.getReviewTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// crev_review_code
func (s *Server) reviewCodeTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("crev_review_code",
		mcp.WithDescription("Submit a code snippet for review. Returns JSON with analysis, issues (leading dashes removed), no_issues, and report."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Source code to review, sent verbatim")),
	)
	return tool, s.handleReviewCode
}

func (s *Server) handleReviewCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: code"), nil
	}

	var out review.Outcome
	select {
	case out = <-s.ctrl.Submit(ctx, code):
	case <-ctx.Done():
		return mcp.NewToolResultError(fmt.Sprintf("review cancelled: %v", ctx.Err())), nil
	}
	if out.Err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("review failed: %v", out.Err)), nil
	}

	data, err := json.Marshal(review.Normalize(out.Response))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal review: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// crev_list_reviews
func (s *Server) listReviewsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("crev_list_reviews",
		mcp.WithDescription("List recent stored reviews, newest first. Returns a JSON array with id, created_at, model, issue_count, and a one-line code preview."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of reviews to return (default 10)")),
	)
	return tool, s.handleListReviews
}

func (s *Server) handleListReviews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("review history is not enabled"), nil
	}
	limit := request.GetInt("limit", 10)
	if limit < 0 {
		return mcp.NewToolResultError("limit must not be negative"), nil
	}

	reviews, err := s.store.ListReviews(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reviews: %v", err)), nil
	}

	type reviewOut struct {
		ID         string `json:"id"`
		CreatedAt  string `json:"created_at"`
		Model      string `json:"model"`
		IssueCount int    `json:"issue_count"`
		Preview    string `json:"preview"`
	}

	out := make([]reviewOut, len(reviews))
	for i, r := range reviews {
		out[i] = reviewOut{
			ID:         r.ID,
			CreatedAt:  r.CreatedAt.Format(time.RFC3339),
			Model:      r.Model,
			IssueCount: len(r.Issues),
			Preview:    r.Preview(60),
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal reviews: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// crev_get_review
func (s *Server) getReviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("crev_get_review",
		mcp.WithDescription("Get a stored review by ID, including the reviewed code and normalized result."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Review ID")),
	)
	return tool, s.handleGetReview
}

func (s *Server) handleGetReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("review history is not enabled"), nil
	}
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	r, err := s.store.GetReview(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("review not found: %s", id)), nil
	}

	out := struct {
		ID        string      `json:"id"`
		CreatedAt string      `json:"created_at"`
		Model     string      `json:"model"`
		Code      string      `json:"code"`
		Review    review.View `json:"review"`
	}{
		ID:        r.ID,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
		Model:     r.Model,
		Code:      r.Code,
		Review:    review.Normalize(r.Response()),
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal review: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
