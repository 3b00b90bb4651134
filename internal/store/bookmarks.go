package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/clubqa/internal/models"
)

// ToggleBookmark flips user's bookmark on a question.
func (db *DB) ToggleBookmark(ctx context.Context, questionID, user, key string) (*models.BookmarkResult, error) {
	var res models.BookmarkResult
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM questions WHERE id = ?`, questionID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return questionNotFound(questionID)
		}
		if err != nil {
			return fmt.Errorf("store: load question: %w", err)
		}

		replayed, err := replay(ctx, tx, user, key, opBookmark, questionID, &res)
		if err != nil {
			return err
		}
		if replayed {
			res.Replayed = true
			return nil
		}

		del, err := tx.ExecContext(ctx, `DELETE FROM bookmarks WHERE question_id = ? AND user_id = ?`, questionID, user)
		if err != nil {
			return fmt.Errorf("store: remove bookmark: %w", err)
		}
		if n, _ := del.RowsAffected(); n == 0 {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO bookmarks (question_id, user_id, created_at) VALUES (?, ?, ?)
			`, questionID, user, toNanos(time.Now())); err != nil {
				return fmt.Errorf("store: add bookmark: %w", err)
			}
			res.Bookmarked = true
		}
		res.QuestionID = questionID
		return remember(ctx, tx, user, key, opBookmark, questionID, res)
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// IsBookmarked reports whether user bookmarked the question.
func (db *DB) IsBookmarked(ctx context.Context, questionID, user string) (bool, error) {
	if user == "" {
		return false, nil
	}
	var n int
	if err := db.conn.QueryRowContext(ctx, `
		SELECT count(*) FROM bookmarks WHERE question_id = ? AND user_id = ?
	`, questionID, user).Scan(&n); err != nil {
		return false, fmt.Errorf("store: is bookmarked: %w", err)
	}
	return n > 0, nil
}

// ListBookmarks returns a page of the user's bookmarked questions, newest
// bookmark first, and the total count.
func (db *DB) ListBookmarks(ctx context.Context, user string, offset, limit int) ([]SummaryRow, int, error) {
	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM bookmarks WHERE user_id = ?`, user).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count bookmarks: %w", err)
	}
	if offset >= total {
		return []SummaryRow{}, total, nil
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+summaryColumns+`
		FROM bookmarks b JOIN questions q ON q.id = b.question_id
		WHERE b.user_id = ?
		ORDER BY b.created_at DESC, q.seq DESC
		LIMIT ? OFFSET ?
	`, user, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list bookmarks: %w", err)
	}
	out, err := db.scanSummaries(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
