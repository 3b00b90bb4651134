package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/clubqa/internal/identity"
	"github.com/starford/clubqa/internal/models"
)

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CommentParent resolves the question a comment parent belongs to. For a
// question parent this is the question itself.
func (db *DB) CommentParent(ctx context.Context, parentType models.ParentType, parentID string) (string, error) {
	return commentParent(ctx, db.conn, parentType, parentID)
}

func commentParent(ctx context.Context, q rowQuerier, parentType models.ParentType, parentID string) (string, error) {
	var (
		questionID string
		err        error
	)
	switch parentType {
	case models.ParentQuestion:
		err = q.QueryRowContext(ctx, `SELECT id FROM questions WHERE id = ?`, parentID).Scan(&questionID)
		if errors.Is(err, sql.ErrNoRows) {
			return "", questionNotFound(parentID)
		}
	case models.ParentAnswer:
		err = q.QueryRowContext(ctx, `SELECT question_id FROM answers WHERE id = ?`, parentID).Scan(&questionID)
		if errors.Is(err, sql.ErrNoRows) {
			return "", answerNotFound(parentID)
		}
	default:
		return "", fmt.Errorf("store: unknown parent type %q", parentType)
	}
	if err != nil {
		return "", fmt.Errorf("store: comment parent: %w", err)
	}
	return questionID, nil
}

// InsertComment appends a comment and returns the question its parent
// belongs to. The parent is resolved in the write transaction, so a comment
// never outlives a concurrently deleted parent.
func (db *DB) InsertComment(ctx context.Context, c models.Comment) (string, error) {
	var questionID string
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		qid, err := commentParent(ctx, tx, c.ParentType, c.ParentID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO comments (id, parent_type, parent_id, body, author_id, author_role, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, c.ID, string(c.ParentType), c.ParentID, c.Body, c.AuthorID, string(c.AuthorRole), toNanos(c.CreatedAt)); err != nil {
			return fmt.Errorf("store: insert comment: %w", err)
		}
		questionID = qid
		return nil
	})
	if err != nil {
		return "", err
	}
	return questionID, nil
}

// ListComments returns the comments of one parent in creation order.
func (db *DB) ListComments(ctx context.Context, parentType models.ParentType, parentID string) ([]models.Comment, error) {
	rows, err := db.conn.QueryContext(ctx, commentSelect+`
		WHERE c.parent_type = ? AND c.parent_id = ?
		ORDER BY c.created_at, c.seq
	`, string(parentType), parentID)
	if err != nil {
		return nil, fmt.Errorf("store: list comments: %w", err)
	}
	return scanComments(rows)
}

// ListAnswerComments returns the comments of every answer of a question,
// grouped by answer id, each group in creation order.
func (db *DB) ListAnswerComments(ctx context.Context, questionID string) (map[string][]models.Comment, error) {
	rows, err := db.conn.QueryContext(ctx, commentSelect+`
		JOIN answers a ON a.id = c.parent_id
		WHERE c.parent_type = 'ANSWER' AND a.question_id = ?
		ORDER BY c.created_at, c.seq
	`, questionID)
	if err != nil {
		return nil, fmt.Errorf("store: list answer comments: %w", err)
	}
	list, err := scanComments(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]models.Comment)
	for _, c := range list {
		out[c.ParentID] = append(out[c.ParentID], c)
	}
	return out, nil
}

const commentSelect = `
	SELECT c.id, c.parent_type, c.parent_id, c.body, c.author_id, c.author_role, c.created_at
	FROM comments c`

func scanComments(rows *sql.Rows) ([]models.Comment, error) {
	defer rows.Close()
	out := []models.Comment{}
	for rows.Next() {
		var (
			c               models.Comment
			parentType, role string
			createdAt       int64
		)
		if err := rows.Scan(&c.ID, &parentType, &c.ParentID, &c.Body, &c.AuthorID, &role, &createdAt); err != nil {
			return nil, err
		}
		c.ParentType = models.ParentType(parentType)
		c.AuthorRole = identity.Role(role)
		c.CreatedAt = fromNanos(createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}
