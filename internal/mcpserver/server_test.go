package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/clubqa/internal/models"
	"github.com/starford/clubqa/internal/qna"
	"github.com/starford/clubqa/internal/tagcatalog"
	"github.com/starford/clubqa/internal/testutil"
)

func testServer(t *testing.T) (*Server, *qna.Service) {
	t.Helper()
	svc := qna.NewService(testutil.TestDB(t), tagcatalog.MustDefault())
	return New(svc, "test"), svc
}

func seedQuestion(t *testing.T, svc *qna.Service, title string, tags ...int64) *models.Question {
	t.Helper()
	q, err := svc.CreateQuestion(context.Background(), testutil.Alice, qna.CreateQuestionInput{
		Title:  title,
		Body:   "A reproducible description of the problem.",
		TagIDs: tags,
	})
	if err != nil {
		t.Fatal(err)
	}
	return q
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper, so handlers are invoked directly.
	var (
		result *mcp.CallToolResult
		err    error
	)
	switch name {
	case "search_questions":
		result, err = srv.searchQuestions(ctx, req)
	case "get_question":
		result, err = srv.getQuestion(ctx, req)
	case "list_comments":
		result, err = srv.listComments(ctx, req)
	case "list_tags":
		result, err = srv.listTags(ctx, req)
	case "get_posting_guidelines":
		result, err = srv.getPostingGuidelines(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestSearchQuestions(t *testing.T) {
	srv, svc := testServer(t)
	seedQuestion(t, svc, "Heap exploitation primer", 3)
	seedQuestion(t, svc, "JWT signature bypass ideas", 1)

	r := callTool(t, srv, "search_questions", map[string]interface{}{
		"keyword": "heap",
		"tags":    "3, 4",
		"size":    float64(5),
	})
	if r.IsError {
		t.Fatalf("search error: %s", resultText(r))
	}
	var page models.Page[models.QuestionSummary]
	if err := json.Unmarshal([]byte(resultText(r)), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.TotalElements != 1 || page.Size != 5 || page.Items[0].Title != "Heap exploitation primer" {
		t.Errorf("page = %+v", page)
	}

	r = callTool(t, srv, "search_questions", map[string]interface{}{"tags": "x"})
	if !r.IsError {
		t.Error("expected error for malformed tag list")
	}
	r = callTool(t, srv, "search_questions", map[string]interface{}{"status": "closed"})
	if !r.IsError {
		t.Error("expected error for unknown status")
	}
}

func TestGetQuestionAndComments(t *testing.T) {
	srv, svc := testServer(t)
	q := seedQuestion(t, svc, "Frida hook not firing", 7)
	if _, err := svc.AddComment(context.Background(), testutil.Bob, models.ParentQuestion, q.ID, "which android version?"); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "get_question", map[string]interface{}{"id": q.ID})
	if !strings.Contains(resultText(r), "Frida hook not firing") {
		t.Errorf("get_question = %q", resultText(r))
	}

	r = callTool(t, srv, "list_comments", map[string]interface{}{"parent_type": "question", "parent_id": q.ID})
	if !strings.Contains(resultText(r), "which android version?") {
		t.Errorf("list_comments = %q", resultText(r))
	}

	r = callTool(t, srv, "get_question", map[string]interface{}{"id": "missing"})
	if !r.IsError {
		t.Error("expected error for missing question")
	}
	r = callTool(t, srv, "list_comments", map[string]interface{}{"parent_type": "tag", "parent_id": q.ID})
	if !r.IsError {
		t.Error("expected error for bad parent type")
	}
}

func TestListTagsAndGuidelines(t *testing.T) {
	srv, _ := testServer(t)
	text := resultText(callTool(t, srv, "list_tags", map[string]interface{}{}))
	if !strings.HasPrefix(text, "1\tWeb Hacking\n") {
		t.Errorf("list_tags = %q", text)
	}
	if !strings.Contains(resultText(callTool(t, srv, "get_posting_guidelines", nil)), "at least 10 characters") {
		t.Error("guidelines missing title rule")
	}

	contents, err := srv.readGuidelinesResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != guidelinesURI {
		t.Errorf("resource contents = %+v", contents[0])
	}
}
