package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/clubqa/internal/models"
)

// SearchParams is a normalized search request. Sort fields and directions
// must already be validated.
type SearchParams struct {
	Keyword string
	Status  models.Status
	TagIDs  []int64
	SortBy  models.SortField
	Desc    bool
	Offset  int
	Limit   int
}

var sortColumns = map[models.SortField]string{
	models.SortCreatedAt:   "q.created_at",
	models.SortUpdatedAt:   "q.updated_at",
	models.SortViewCount:   "q.view_count",
	models.SortAnswerCount: "q.answer_count",
	models.SortTitle:       "q.title",
}

// Search returns one page of matching questions and the total match count.
func (db *DB) Search(ctx context.Context, p SearchParams) ([]SummaryRow, int, error) {
	col, ok := sortColumns[p.SortBy]
	if !ok {
		return nil, 0, fmt.Errorf("store: unsupported sort field %q", p.SortBy)
	}

	var (
		where []string
		args  []any
	)
	switch p.Status {
	case models.StatusAnswered:
		where = append(where, "q.has_accepted_answer = 1")
	case models.StatusUnanswered:
		where = append(where, "q.has_accepted_answer = 0")
	}
	if len(p.TagIDs) > 0 {
		where = append(where, `EXISTS (SELECT 1 FROM question_tags qt
			WHERE qt.question_id = q.id AND qt.tag_id IN (`+placeholders(len(p.TagIDs))+`))`)
		for _, id := range p.TagIDs {
			args = append(args, id)
		}
	}
	if kw := strings.TrimSpace(p.Keyword); kw != "" {
		clause, kwArgs := keywordClause(kw)
		where = append(where, clause)
		args = append(args, kwArgs...)
	}

	filter := ""
	if len(where) > 0 {
		filter = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM questions q`+filter, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count search: %w", err)
	}
	if total == 0 || p.Offset >= total {
		return []SummaryRow{}, total, nil
	}

	dir := "ASC"
	if p.Desc {
		dir = "DESC"
	}
	pageArgs := append(append([]any{}, args...), p.Limit, p.Offset)
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+summaryColumns+`
		FROM questions q`+filter+`
		ORDER BY `+col+` `+dir+`, q.seq `+dir+`
		LIMIT ? OFFSET ?
	`, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: search: %w", err)
	}
	out, err := db.scanSummaries(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// likePattern escapes LIKE wildcards in s and wraps it for substring match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
