package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/starford/clubqa/internal/apperr"
	"github.com/starford/clubqa/internal/identity"
	"github.com/starford/clubqa/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "clubqa-store-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedQuestion(t *testing.T, db *DB, id string, offset time.Duration, tags ...int64) {
	t.Helper()
	if len(tags) == 0 {
		tags = []int64{1}
	}
	err := db.InsertQuestion(context.Background(), QuestionRow{
		ID:         id,
		Title:      "Question title " + id,
		Body:       "A body that is long enough for " + id,
		AuthorID:   "alice",
		AuthorRole: identity.RoleMember,
		TagIDs:     tags,
		CreatedAt:  base.Add(offset),
		UpdatedAt:  base.Add(offset),
	})
	if err != nil {
		t.Fatalf("InsertQuestion(%s): %v", id, err)
	}
}

func seedAnswer(t *testing.T, db *DB, questionID, id string) {
	t.Helper()
	err := db.InsertAnswer(context.Background(), models.Answer{
		ID:         id,
		QuestionID: questionID,
		Body:       "answer " + id,
		AuthorID:   "bob",
		AuthorRole: identity.RoleMember,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("InsertAnswer(%s): %v", id, err)
	}
}

func acceptedCount(t *testing.T, db *DB, questionID string) int {
	t.Helper()
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM answers WHERE question_id = ? AND is_accepted = 1`, questionID).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"questions", "question_tags", "answers", "answer_votes", "comments", "bookmarks", "idempotency_keys"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestInsertAndGetQuestion(t *testing.T) {
	db := testDB(t)
	seedQuestion(t, db, "q1", 0, 3, 1)

	q, err := db.GetQuestion(context.Background(), "q1")
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if q.AuthorID != "alice" || q.AuthorRole != identity.RoleMember {
		t.Errorf("author = %q/%q", q.AuthorID, q.AuthorRole)
	}
	if len(q.TagIDs) != 2 || q.TagIDs[0] != 3 || q.TagIDs[1] != 1 {
		t.Errorf("tags = %v, want [3 1]", q.TagIDs)
	}
	if !q.CreatedAt.Equal(base) {
		t.Errorf("created_at = %v, want %v", q.CreatedAt, base)
	}
	if q.HasAcceptedAnswer || q.AnswerCount != 0 || q.ViewCount != 0 {
		t.Errorf("fresh question has state: %+v", q)
	}
}

func TestGetQuestion_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetQuestion(context.Background(), "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestToggleAcceptance_Exclusive(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "q1", 0)
	seedAnswer(t, db, "q1", "a1")
	seedAnswer(t, db, "q1", "a2")

	res, err := db.ToggleAcceptance(ctx, "q1", "a1", "alice", "")
	if err != nil {
		t.Fatalf("accept a1: %v", err)
	}
	if !res.Accepted || !res.HasAcceptedAnswer {
		t.Errorf("accept a1 result = %+v", res)
	}

	if _, err := db.ToggleAcceptance(ctx, "q1", "a2", "alice", ""); err != nil {
		t.Fatalf("accept a2: %v", err)
	}
	a1, _ := db.GetAnswer(ctx, "a1", "")
	a2, _ := db.GetAnswer(ctx, "a2", "")
	if a1.IsAccepted || !a2.IsAccepted {
		t.Errorf("after accepting a2: a1=%v a2=%v", a1.IsAccepted, a2.IsAccepted)
	}

	res, err = db.ToggleAcceptance(ctx, "q1", "a2", "alice", "")
	if err != nil {
		t.Fatalf("toggle off a2: %v", err)
	}
	if res.Accepted || res.HasAcceptedAnswer {
		t.Errorf("toggle off result = %+v", res)
	}
	q, _ := db.GetQuestion(ctx, "q1")
	if q.HasAcceptedAnswer {
		t.Error("derived flag should be false")
	}
}

func TestToggleAcceptance_WrongQuestion(t *testing.T) {
	db := testDB(t)
	seedQuestion(t, db, "q1", 0)
	seedQuestion(t, db, "q2", time.Second)
	seedAnswer(t, db, "q2", "a1")

	_, err := db.ToggleAcceptance(context.Background(), "q1", "a1", "alice", "")
	if apperr.CodeOf(err) != apperr.CodeAnswerNotFound {
		t.Errorf("err = %v, want answer not found", err)
	}
}

func TestToggleAcceptance_ReplaysSameKey(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "q1", 0)
	seedAnswer(t, db, "q1", "a1")

	first, err := db.ToggleAcceptance(ctx, "q1", "a1", "alice", "k1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.ToggleAcceptance(ctx, "q1", "a1", "alice", "k1")
	if err != nil {
		t.Fatal(err)
	}
	if !second.Replayed || second.Accepted != first.Accepted {
		t.Errorf("replay = %+v, first = %+v", second, first)
	}
	if acceptedCount(t, db, "q1") != 1 {
		t.Error("replay must not toggle the answer off")
	}

	_, err = db.ToggleAcceptance(ctx, "q1", "a1", "alice", "")
	if err != nil {
		t.Fatal(err)
	}
	if acceptedCount(t, db, "q1") != 0 {
		t.Error("fresh call should toggle off")
	}
}

func TestIdempotencyKeyReusedForOtherTarget(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "q1", 0)
	seedAnswer(t, db, "q1", "a1")
	seedAnswer(t, db, "q1", "a2")

	if _, err := db.ToggleAcceptance(ctx, "q1", "a1", "alice", "k1"); err != nil {
		t.Fatal(err)
	}
	_, err := db.ToggleAcceptance(ctx, "q1", "a2", "alice", "k1")
	if apperr.CodeOf(err) != apperr.CodeIdempotencyReused {
		t.Errorf("err = %v, want key reused", err)
	}
}

func TestToggleAcceptance_ConcurrentStaysExclusive(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "q1", 0)
	ids := []string{"a1", "a2", "a3", "a4"}
	for _, id := range ids {
		seedAnswer(t, db, "q1", id)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := db.ToggleAcceptance(ctx, "q1", ids[i%len(ids)], "alice", ""); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("ToggleAcceptance: %v", err)
	}

	n := acceptedCount(t, db, "q1")
	if n > 1 {
		t.Fatalf("accepted answers = %d, want <= 1", n)
	}
	q, _ := db.GetQuestion(ctx, "q1")
	if q.HasAcceptedAnswer != (n == 1) {
		t.Errorf("derived flag %v disagrees with count %d", q.HasAcceptedAnswer, n)
	}
}

func TestToggleUpvote_Symmetric(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "q1", 0)
	seedAnswer(t, db, "q1", "a1")

	res, qid, err := db.ToggleUpvote(ctx, "a1", "carol", "")
	if err != nil {
		t.Fatal(err)
	}
	if qid != "q1" || res.Count != 1 || !res.HasUpvoted {
		t.Errorf("first toggle = %+v (question %s)", res, qid)
	}
	res, _, err = db.ToggleUpvote(ctx, "a1", "carol", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 0 || res.HasUpvoted {
		t.Errorf("second toggle = %+v", res)
	}
}

func TestToggleUpvote_ConcurrentVoters(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "q1", 0)
	seedAnswer(t, db, "q1", "a1")

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, _, err := db.ToggleUpvote(ctx, "a1", fmt.Sprintf("voter-%d", i), ""); err != nil {
				t.Errorf("toggle %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	a, err := db.GetAnswer(ctx, "a1", "voter-3")
	if err != nil {
		t.Fatal(err)
	}
	if a.Upvotes != 25 || !a.HasUpvoted {
		t.Errorf("upvotes = %d, hasUpvoted = %v", a.Upvotes, a.HasUpvoted)
	}
}

func TestDeleteAnswer_RecomputesFlag(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "q1", 0)
	seedAnswer(t, db, "q1", "a1")
	if _, err := db.ToggleAcceptance(ctx, "q1", "a1", "alice", ""); err != nil {
		t.Fatal(err)
	}

	has, err := db.DeleteAnswer(ctx, "q1", "a1")
	if err != nil {
		t.Fatal(err)
	}
	if has {
		t.Error("flag should clear when the accepted answer is deleted")
	}
	q, _ := db.GetQuestion(ctx, "q1")
	if q.HasAcceptedAnswer || q.AnswerCount != 0 {
		t.Errorf("question after delete = %+v", q)
	}
}

func TestComments_OrderAndParents(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "q1", 0)
	seedAnswer(t, db, "q1", "a1")

	now := time.Now()
	for i, parent := range []struct {
		typ models.ParentType
		id  string
	}{
		{models.ParentQuestion, "q1"},
		{models.ParentAnswer, "a1"},
		{models.ParentQuestion, "q1"},
	} {
		_, err := db.InsertComment(ctx, models.Comment{
			ID: fmt.Sprintf("c%d", i), ParentType: parent.typ, ParentID: parent.id,
			Body: "comment", AuthorID: "bob", AuthorRole: identity.RoleMember, CreatedAt: now,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	qc, err := db.ListComments(ctx, models.ParentQuestion, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if len(qc) != 2 || qc[0].ID != "c0" || qc[1].ID != "c2" {
		t.Errorf("question comments = %+v", qc)
	}
	ac, err := db.ListAnswerComments(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ac["a1"]) != 1 || ac["a1"][0].ID != "c1" {
		t.Errorf("answer comments = %+v", ac)
	}

	qid, err := db.CommentParent(ctx, models.ParentAnswer, "a1")
	if err != nil || qid != "q1" {
		t.Errorf("CommentParent = %q, %v", qid, err)
	}
	if _, err := db.CommentParent(ctx, models.ParentAnswer, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing parent err = %v", err)
	}
}

func TestInsertComment_MissingParent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "q1", 0)
	seedAnswer(t, db, "q1", "a1")

	qid, err := db.InsertComment(ctx, models.Comment{ID: "c1", ParentType: models.ParentAnswer, ParentID: "a1",
		Body: "x", AuthorID: "bob", AuthorRole: identity.RoleMember, CreatedAt: time.Now()})
	if err != nil || qid != "q1" {
		t.Fatalf("InsertComment = %q, %v", qid, err)
	}

	if _, err := db.DeleteAnswer(ctx, "q1", "a1"); err != nil {
		t.Fatal(err)
	}
	_, err = db.InsertComment(ctx, models.Comment{ID: "c2", ParentType: models.ParentAnswer, ParentID: "a1",
		Body: "x", AuthorID: "bob", AuthorRole: identity.RoleMember, CreatedAt: time.Now()})
	if apperr.CodeOf(err) != apperr.CodeAnswerNotFound {
		t.Errorf("comment on deleted answer err = %v", err)
	}
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM comments`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("comments left = %d, want 0", n)
	}
}

func TestInsertComment_RacingDeleteLeavesNoOrphans(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "q1", 0)

	for i := 0; i < 20; i++ {
		aid := fmt.Sprintf("a%d", i)
		seedAnswer(t, db, "q1", aid)

		var wg sync.WaitGroup
		errs := make(chan error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := db.InsertComment(ctx, models.Comment{ID: "c-" + aid, ParentType: models.ParentAnswer, ParentID: aid,
				Body: "x", AuthorID: "bob", AuthorRole: identity.RoleMember, CreatedAt: time.Now()})
			if err != nil && !errors.Is(err, apperr.ErrNotFound) {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := db.DeleteAnswer(ctx, "q1", aid); err != nil {
				errs <- err
			}
		}()
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("round %d: %v", i, err)
		}
	}

	var orphans int
	err := db.conn.QueryRow(`
		SELECT count(*) FROM comments c
		WHERE c.parent_type = 'ANSWER' AND NOT EXISTS (SELECT 1 FROM answers a WHERE a.id = c.parent_id)
	`).Scan(&orphans)
	if err != nil {
		t.Fatal(err)
	}
	if orphans != 0 {
		t.Errorf("orphan comments = %d", orphans)
	}
}

func TestListPagesPastEnd(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "q1", 0)
	seedAnswer(t, db, "q1", "a1")
	if _, err := db.ToggleBookmark(ctx, "q1", "carol", ""); err != nil {
		t.Fatal(err)
	}

	answers, total, err := db.ListAnswers(ctx, "q1", "", AnswerOrder{}, 10, 10)
	if err != nil || len(answers) != 0 || total != 1 {
		t.Errorf("ListAnswers past end = %d items, total %d, %v", len(answers), total, err)
	}
	all, _, err := db.ListAnswers(ctx, "q1", "", AnswerOrder{}, 0, -1)
	if err != nil || len(all) != 1 {
		t.Errorf("ListAnswers unlimited = %d items, %v", len(all), err)
	}
	marks, total, err := db.ListBookmarks(ctx, "carol", 1, 10)
	if err != nil || len(marks) != 0 || total != 1 {
		t.Errorf("ListBookmarks past end = %d items, total %d, %v", len(marks), total, err)
	}
}

func TestDeleteQuestion_Cascades(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "q1", 0)
	seedAnswer(t, db, "q1", "a1")
	_, _, _ = db.ToggleUpvote(ctx, "a1", "carol", "")
	_, _ = db.ToggleBookmark(ctx, "q1", "carol", "")
	_, _ = db.InsertComment(ctx, models.Comment{ID: "c1", ParentType: models.ParentAnswer, ParentID: "a1",
		Body: "x", AuthorID: "bob", AuthorRole: identity.RoleMember, CreatedAt: time.Now()})

	if err := db.DeleteQuestion(ctx, "q1"); err != nil {
		t.Fatal(err)
	}
	for _, table := range []string{"answers", "answer_votes", "comments", "bookmarks", "question_tags"} {
		var n int
		_ = db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&n)
		if n != 0 {
			t.Errorf("%s has %d rows after delete", table, n)
		}
	}
	if err := db.DeleteQuestion(ctx, "q1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestSearch_FiltersAndPaging(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "q1", 0, 1)
	seedQuestion(t, db, "q2", time.Second, 2)
	seedQuestion(t, db, "q3", 2*time.Second, 1, 2)
	seedAnswer(t, db, "q3", "a1")
	_, _ = db.ToggleAcceptance(ctx, "q3", "a1", "alice", "")

	rows, total, err := db.Search(ctx, SearchParams{SortBy: models.SortCreatedAt, Desc: true, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(rows) != 2 || rows[0].ID != "q3" || rows[1].ID != "q2" {
		t.Errorf("page 0 = %v (total %d)", ids(rows), total)
	}

	rows, total, _ = db.Search(ctx, SearchParams{SortBy: models.SortCreatedAt, Status: models.StatusAnswered, Limit: 10})
	if total != 1 || rows[0].ID != "q3" {
		t.Errorf("answered = %v", ids(rows))
	}

	rows, total, _ = db.Search(ctx, SearchParams{SortBy: models.SortCreatedAt, TagIDs: []int64{2}, Limit: 10})
	if total != 2 {
		t.Errorf("tag 2 = %v", ids(rows))
	}

	rows, total, _ = db.Search(ctx, SearchParams{SortBy: models.SortCreatedAt, Limit: 10, Offset: 10})
	if total != 3 || len(rows) != 0 {
		t.Errorf("past end = %v (total %d)", ids(rows), total)
	}
}

func TestSearch_KeywordEscapesWildcards(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "q1", 0)

	_, total, err := db.Search(ctx, SearchParams{SortBy: models.SortCreatedAt, Keyword: "q1", Limit: 10})
	if err != nil || total != 1 {
		t.Errorf("keyword q1 total = %d, err = %v", total, err)
	}
	_, total, _ = db.Search(ctx, SearchParams{SortBy: models.SortCreatedAt, Keyword: "%", Limit: 10})
	if total != 0 {
		t.Errorf("literal %% should not match everything, total = %d", total)
	}
}

func TestViews(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "q1", 0)

	n, err := db.IncrViews(ctx, "q1")
	if err != nil || n != 1 {
		t.Fatalf("IncrViews = %d, %v", n, err)
	}
	if err := db.AddViewCounts(ctx, "", map[string]int64{"q1": 9, "gone": 3, "q0": -2}); err != nil {
		t.Fatal(err)
	}
	q, _ := db.GetQuestion(ctx, "q1")
	if q.ViewCount != 10 {
		t.Errorf("view count = %d, want 10", q.ViewCount)
	}
	if _, err := db.IncrViews(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func TestAddViewCounts_BatchAppliedOnce(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "q1", 0)

	for i := 0; i < 3; i++ {
		if err := db.AddViewCounts(ctx, "batch-1", map[string]int64{"q1": 4}); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.AddViewCounts(ctx, "batch-2", map[string]int64{"q1": 1}); err != nil {
		t.Fatal(err)
	}
	q, _ := db.GetQuestion(ctx, "q1")
	if q.ViewCount != 5 {
		t.Errorf("view count = %d, want 5", q.ViewCount)
	}

	n, err := db.PruneViewBatches(ctx, time.Now().Add(time.Minute))
	if err != nil || n != 2 {
		t.Errorf("pruned = %d, %v", n, err)
	}
}

func TestPruneIdempotencyKeys(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "q1", 0)
	if _, err := db.ToggleBookmark(ctx, "q1", "carol", "k1"); err != nil {
		t.Fatal(err)
	}
	n, err := db.PruneIdempotencyKeys(ctx, time.Now().Add(time.Minute))
	if err != nil || n != 1 {
		t.Errorf("pruned = %d, %v", n, err)
	}
}

func ids(rows []SummaryRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}
