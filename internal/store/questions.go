package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/clubqa/internal/identity"
)

// QuestionRow represents a row in the questions table with its tag ids.
type QuestionRow struct {
	ID                string
	Title             string
	Body              string
	AuthorID          string
	AuthorRole        identity.Role
	TagIDs            []int64
	ViewCount         int64
	AnswerCount       int
	HasAcceptedAnswer bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SummaryRow is the listing projection of a question.
type SummaryRow struct {
	ID                string
	Title             string
	Body              string
	AuthorID          string
	TagIDs            []int64
	ViewCount         int64
	AnswerCount       int
	HasAcceptedAnswer bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// InsertQuestion stores a new question, its tags and its FTS entry.
func (db *DB) InsertQuestion(ctx context.Context, q QuestionRow) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO questions (id, title, body, author_id, author_role, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, q.ID, q.Title, q.Body, q.AuthorID, string(q.AuthorRole), toNanos(q.CreatedAt), toNanos(q.UpdatedAt))
		if err != nil {
			return fmt.Errorf("store: insert question: %w", err)
		}
		if err := replaceTags(ctx, tx, q.ID, q.TagIDs); err != nil {
			return err
		}
		return ftsUpsert(ctx, tx, q.ID, q.Title, q.Body)
	})
}

// UpdateQuestion replaces the editable fields of a question.
func (db *DB) UpdateQuestion(ctx context.Context, q QuestionRow) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE questions SET title = ?, body = ?, updated_at = ? WHERE id = ?
		`, q.Title, q.Body, toNanos(q.UpdatedAt), q.ID)
		if err != nil {
			return fmt.Errorf("store: update question: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return questionNotFound(q.ID)
		}
		if err := replaceTags(ctx, tx, q.ID, q.TagIDs); err != nil {
			return err
		}
		return ftsUpsert(ctx, tx, q.ID, q.Title, q.Body)
	})
}

// DeleteQuestion removes a question with its answers, votes, comments,
// bookmarks and tags.
func (db *DB) DeleteQuestion(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM comments
			WHERE (parent_type = 'QUESTION' AND parent_id = ?)
			   OR (parent_type = 'ANSWER' AND parent_id IN (SELECT id FROM answers WHERE question_id = ?))
		`, id, id)
		if err != nil {
			return fmt.Errorf("store: delete question comments: %w", err)
		}
		if err := ftsDelete(ctx, tx, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("store: delete question: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return questionNotFound(id)
		}
		return nil
	})
}

// GetQuestion returns a question row with its tag ids.
func (db *DB) GetQuestion(ctx context.Context, id string) (*QuestionRow, error) {
	var (
		q                    QuestionRow
		role                 string
		createdAt, updatedAt int64
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, title, body, author_id, author_role, view_count, answer_count,
		       has_accepted_answer, created_at, updated_at
		FROM questions WHERE id = ?
	`, id).Scan(&q.ID, &q.Title, &q.Body, &q.AuthorID, &role, &q.ViewCount, &q.AnswerCount,
		&q.HasAcceptedAnswer, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, questionNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get question: %w", err)
	}
	q.AuthorRole = identity.Role(role)
	q.CreatedAt = fromNanos(createdAt)
	q.UpdatedAt = fromNanos(updatedAt)

	tags, err := db.tagsFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	q.TagIDs = nonNil(tags[id])
	return &q, nil
}

// QuestionAuthor returns the author id of a question.
func (db *DB) QuestionAuthor(ctx context.Context, id string) (string, error) {
	var author string
	err := db.conn.QueryRowContext(ctx, `SELECT author_id FROM questions WHERE id = ?`, id).Scan(&author)
	if errors.Is(err, sql.ErrNoRows) {
		return "", questionNotFound(id)
	}
	if err != nil {
		return "", fmt.Errorf("store: question author: %w", err)
	}
	return author, nil
}

func replaceTags(ctx context.Context, tx *sql.Tx, questionID string, tagIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM question_tags WHERE question_id = ?`, questionID); err != nil {
		return fmt.Errorf("store: clear tags: %w", err)
	}
	if len(tagIDs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO question_tags (question_id, tag_id, position) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare tag insert: %w", err)
	}
	defer stmt.Close()
	for i, id := range tagIDs {
		if _, err := stmt.ExecContext(ctx, questionID, id, i); err != nil {
			return fmt.Errorf("store: insert tag: %w", err)
		}
	}
	return nil
}

// tagsFor returns tag ids per question id, in selection order.
func (db *DB) tagsFor(ctx context.Context, ids []string) (map[string][]int64, error) {
	out := make(map[string][]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT question_id, tag_id FROM question_tags
		WHERE question_id IN (`+placeholders(len(ids))+`)
		ORDER BY question_id, position
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: load tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			qid string
			tag int64
		)
		if err := rows.Scan(&qid, &tag); err != nil {
			return nil, err
		}
		out[qid] = append(out[qid], tag)
	}
	return out, rows.Err()
}

// scanSummaries reads summary rows produced by summaryColumns and attaches
// their tags.
func (db *DB) scanSummaries(ctx context.Context, rows *sql.Rows) ([]SummaryRow, error) {
	defer rows.Close()
	var out []SummaryRow
	for rows.Next() {
		var (
			s                    SummaryRow
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&s.ID, &s.Title, &s.Body, &s.AuthorID, &s.ViewCount, &s.AnswerCount,
			&s.HasAcceptedAnswer, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		s.CreatedAt = fromNanos(createdAt)
		s.UpdatedAt = fromNanos(updatedAt)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ids := make([]string, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	tags, err := db.tagsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].TagIDs = nonNil(tags[out[i].ID])
	}
	return out, nil
}

const summaryColumns = `q.id, q.title, q.body, q.author_id, q.view_count, q.answer_count,
	q.has_accepted_answer, q.created_at, q.updated_at`

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
