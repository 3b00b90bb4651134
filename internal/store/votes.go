package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/clubqa/internal/models"
)

// ToggleUpvote flips voter's upvote on an answer and adjusts the aggregate
// count in the same transaction. It also returns the answer's question id.
func (db *DB) ToggleUpvote(ctx context.Context, answerID, voter, key string) (*models.VoteResult, string, error) {
	var (
		res        models.VoteResult
		questionID string
	)
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT question_id FROM answers WHERE id = ?`, answerID).Scan(&questionID)
		if errors.Is(err, sql.ErrNoRows) {
			return answerNotFound(answerID)
		}
		if err != nil {
			return fmt.Errorf("store: load answer: %w", err)
		}

		replayed, err := replay(ctx, tx, voter, key, opUpvote, answerID, &res)
		if err != nil {
			return err
		}
		if replayed {
			res.Replayed = true
			return nil
		}

		del, err := tx.ExecContext(ctx, `DELETE FROM answer_votes WHERE answer_id = ? AND voter_id = ?`, answerID, voter)
		if err != nil {
			return fmt.Errorf("store: remove vote: %w", err)
		}
		removed, _ := del.RowsAffected()

		delta := -1
		if removed == 0 {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO answer_votes (answer_id, voter_id, created_at) VALUES (?, ?, ?)
			`, answerID, voter, toNanos(time.Now())); err != nil {
				return fmt.Errorf("store: add vote: %w", err)
			}
			delta = 1
		}

		if err := tx.QueryRowContext(ctx, `
			UPDATE answers SET upvotes = upvotes + ? WHERE id = ? RETURNING upvotes
		`, delta, answerID).Scan(&res.Count); err != nil {
			return fmt.Errorf("store: update upvotes: %w", err)
		}
		res.AnswerID = answerID
		res.HasUpvoted = delta > 0
		return remember(ctx, tx, voter, key, opUpvote, answerID, res)
	})
	if err != nil {
		return nil, "", err
	}
	return &res, questionID, nil
}
