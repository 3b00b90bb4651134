// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes read-only board tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/clubqa/internal/identity"
	"github.com/starford/clubqa/internal/models"
	"github.com/starford/clubqa/internal/qna"
)

const guidelinesURI = "clubqa://posting-guidelines"

// Server wraps the MCP server with board tools.
type Server struct {
	mcp *server.MCPServer
	svc *qna.Service
}

// New creates a new MCP server with all board tools registered.
func New(svc *qna.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"ClubQA",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_questions",
		mcp.WithDescription("Search questions by keyword, tags and answer status. Returns one page of summaries."),
		mcp.WithString("keyword", mcp.Description("Matches title and body; empty matches everything")),
		mcp.WithString("tags", mcp.Description("Comma-separated tag ids; a question matches if it has any of them")),
		mcp.WithString("status", mcp.Description("ALL, ANSWERED or UNANSWERED")),
		mcp.WithString("sort_by", mcp.Description("createdAt, updatedAt, viewCount, answerCount or title")),
		mcp.WithString("sort_direction", mcp.Description("ASC or DESC")),
		mcp.WithNumber("page", mcp.Description("Zero-based page number")),
		mcp.WithNumber("size", mcp.Description("Page size, default 10, max 100")),
	), s.searchQuestions)

	s.mcp.AddTool(mcp.NewTool("get_question",
		mcp.WithDescription("Read a question with its answers and comments. Does not count a view."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Question id")),
	), s.getQuestion)

	s.mcp.AddTool(mcp.NewTool("list_comments",
		mcp.WithDescription("List the comments of a question or an answer in creation order."),
		mcp.WithString("parent_type", mcp.Required(), mcp.Description("QUESTION or ANSWER")),
		mcp.WithString("parent_id", mcp.Required(), mcp.Description("Id of the question or answer")),
	), s.listComments)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List the tag catalog (ids and names) used for tagging and filtering."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("get_posting_guidelines",
		mcp.WithDescription("Returns the board's posting rules: length minimums, tagging and import format."),
	), s.getPostingGuidelines)

	s.mcp.AddResource(
		mcp.NewResource(guidelinesURI, "Posting Guidelines",
			mcp.WithResourceDescription("Rules for well-formed questions, answers and comments."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuidelinesResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchQuestions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := parseTagIDs(req.GetString("tags", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.svc.Search(ctx, models.SearchQuery{
		Page:          req.GetInt("page", 0),
		Size:          req.GetInt("size", 0),
		SortBy:        models.SortField(req.GetString("sort_by", "")),
		SortDirection: models.SortDirection(req.GetString("sort_direction", "")),
		Status:        models.Status(req.GetString("status", "")),
		Keyword:       req.GetString("keyword", ""),
		TagIDs:        tags,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(page)
}

func (s *Server) getQuestion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	q, err := s.svc.GetQuestion(ctx, id, identity.Guest)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(q)
}

func (s *Server) listComments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawType, err := req.RequireString("parent_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	parentID, err := req.RequireString("parent_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	parentType, err := models.ParseParentType(rawType)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	comments, err := s.svc.ListComments(ctx, parentType, parentID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(comments) == 0 {
		return mcp.NewToolResultText("no comments"), nil
	}
	return jsonResult(comments)
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	for _, t := range s.svc.ListTags() {
		fmt.Fprintf(&b, "%d\t%s\n", t.ID, t.Name)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) getPostingGuidelines(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PostingGuidelines), nil
}

func (s *Server) readGuidelinesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      guidelinesURI,
			MIMEType: "text/markdown",
			Text:     PostingGuidelines,
		},
	}, nil
}

// parseTagIDs reads a comma-separated id list.
func parseTagIDs(raw string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid tag id %q", part)
		}
		out = append(out, id)
	}
	return out, nil
}
