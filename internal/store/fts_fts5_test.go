//go:build sqlite_fts5

package store

import (
	"context"
	"testing"
	"time"

	"github.com/starford/clubqa/internal/models"
)

func keywordHits(t *testing.T, db *DB, kw string) []string {
	t.Helper()
	rows, _, err := db.Search(context.Background(), SearchParams{SortBy: models.SortCreatedAt, Keyword: kw, Limit: 10})
	if err != nil {
		t.Fatalf("Search(%q): %v", kw, err)
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids
}

func ftsRows(t *testing.T, db *DB, id string) int {
	t.Helper()
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM questions_fts WHERE question_id = ?`, id).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestFTS_IndexFollowsQuestion(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "q1", 0)
	seedQuestion(t, db, "q2", time.Minute)

	if got := ftsRows(t, db, "q1"); got != 1 {
		t.Fatalf("fts rows for q1 = %d, want 1", got)
	}
	if hits := keywordHits(t, db, "title q1"); len(hits) != 1 || hits[0] != "q1" {
		t.Fatalf("hits = %v, want [q1]", hits)
	}

	err := db.UpdateQuestion(ctx, QuestionRow{
		ID:        "q1",
		Title:     "Ghidra scripting for firmware",
		Body:      "How do I batch-rename functions in a stripped binary?",
		TagIDs:    []int64{1},
		UpdatedAt: base.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}
	if got := ftsRows(t, db, "q1"); got != 1 {
		t.Errorf("fts rows for q1 after update = %d, want 1", got)
	}
	if hits := keywordHits(t, db, "ghidra"); len(hits) != 1 || hits[0] != "q1" {
		t.Errorf("hits for new title = %v, want [q1]", hits)
	}
	if hits := keywordHits(t, db, "title q1"); len(hits) != 0 {
		t.Errorf("old title still matches: %v", hits)
	}

	if err := db.DeleteQuestion(ctx, "q1"); err != nil {
		t.Fatalf("DeleteQuestion: %v", err)
	}
	if got := ftsRows(t, db, "q1"); got != 0 {
		t.Errorf("fts rows for q1 after delete = %d, want 0", got)
	}
	if hits := keywordHits(t, db, "ghidra"); len(hits) != 0 {
		t.Errorf("deleted question still matches: %v", hits)
	}
	if hits := keywordHits(t, db, "title q2"); len(hits) != 1 || hits[0] != "q2" {
		t.Errorf("hits for q2 = %v, want [q2]", hits)
	}
}
