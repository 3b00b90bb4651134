package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/clubqa/internal/apperr"
	"github.com/starford/clubqa/internal/identity"
	"github.com/starford/clubqa/internal/models"
)

// AnswerOrder selects the ordering of an answer listing.
type AnswerOrder struct {
	ByUpvotes bool
	Desc      bool
}

// InsertAnswer appends an answer to its question and bumps answer_count.
func (db *DB) InsertAnswer(ctx context.Context, a models.Answer) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE questions SET answer_count = answer_count + 1 WHERE id = ?
		`, a.QuestionID)
		if err != nil {
			return fmt.Errorf("store: bump answer count: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return questionNotFound(a.QuestionID)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO answers (id, question_id, body, author_id, author_role, is_accepted, upvotes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?)
		`, a.ID, a.QuestionID, a.Body, a.AuthorID, string(a.AuthorRole), toNanos(a.CreatedAt), toNanos(a.UpdatedAt))
		if err != nil {
			return fmt.Errorf("store: insert answer: %w", err)
		}
		return nil
	})
}

// GetAnswer returns one answer. viewer selects HasUpvoted.
func (db *DB) GetAnswer(ctx context.Context, id, viewer string) (*models.Answer, error) {
	rows, err := db.conn.QueryContext(ctx, answerSelect+` WHERE a.id = ?`, viewer, id)
	if err != nil {
		return nil, fmt.Errorf("store: get answer: %w", err)
	}
	out, err := scanAnswers(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, answerNotFound(id)
	}
	return &out[0], nil
}

// ListAnswers returns a page of a question's answers and the total count.
// A negative limit returns every answer.
func (db *DB) ListAnswers(ctx context.Context, questionID, viewer string, order AnswerOrder, offset, limit int) ([]models.Answer, int, error) {
	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM answers WHERE question_id = ?`, questionID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count answers: %w", err)
	}
	if offset >= total {
		return []models.Answer{}, total, nil
	}

	dir := "ASC"
	if order.Desc {
		dir = "DESC"
	}
	orderBy := "a.created_at " + dir + ", a.seq " + dir
	if order.ByUpvotes {
		orderBy = "a.upvotes " + dir + ", a.created_at ASC, a.seq ASC"
	}
	rows, err := db.conn.QueryContext(ctx, answerSelect+`
		WHERE a.question_id = ?
		ORDER BY `+orderBy+`
		LIMIT ? OFFSET ?
	`, viewer, questionID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list answers: %w", err)
	}
	out, err := scanAnswers(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdateAnswerBody replaces an answer's body.
func (db *DB) UpdateAnswerBody(ctx context.Context, a models.Answer) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE answers SET body = ?, updated_at = ? WHERE id = ?`,
		a.Body, toNanos(a.UpdatedAt), a.ID)
	if err != nil {
		return classify(fmt.Errorf("store: update answer: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return answerNotFound(a.ID)
	}
	return nil
}

// DeleteAnswer removes an answer with its votes and comments and recomputes
// the question's derived acceptance flag. It returns the recomputed flag.
func (db *DB) DeleteAnswer(ctx context.Context, questionID, answerID string) (bool, error) {
	var has bool
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE parent_type = 'ANSWER' AND parent_id = ?`, answerID); err != nil {
			return fmt.Errorf("store: delete answer comments: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM answers WHERE id = ? AND question_id = ?`, answerID, questionID)
		if err != nil {
			return fmt.Errorf("store: delete answer: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return answerNotFound(answerID)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE questions SET answer_count = answer_count - 1 WHERE id = ?`, questionID); err != nil {
			return fmt.Errorf("store: drop answer count: %w", err)
		}
		has, err = recomputeAccepted(ctx, tx, questionID)
		return err
	})
	return has, err
}

// ToggleAcceptance flips acceptance of answerID within questionID. When the
// answer is already accepted it is cleared; otherwise it becomes the only
// accepted answer. Both cases are a single UPDATE over the question's
// answers, followed by recomputation of the derived flag in the same
// transaction. A non-empty key replays the outcome recorded under it.
func (db *DB) ToggleAcceptance(ctx context.Context, questionID, answerID, actor, key string) (*models.AcceptResult, error) {
	var res models.AcceptResult
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		target := questionID + "/" + answerID
		replayed, err := replay(ctx, tx, actor, key, opAccept, target, &res)
		if err != nil {
			return err
		}
		if replayed {
			res.Replayed = true
			return nil
		}

		var accepted bool
		err = tx.QueryRowContext(ctx, `
			SELECT is_accepted FROM answers WHERE id = ? AND question_id = ?
		`, answerID, questionID).Scan(&accepted)
		if errors.Is(err, sql.ErrNoRows) {
			return answerNotFound(answerID)
		}
		if err != nil {
			return fmt.Errorf("store: load answer: %w", err)
		}

		if accepted {
			_, err = tx.ExecContext(ctx, `UPDATE answers SET is_accepted = 0 WHERE question_id = ?`, questionID)
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE answers SET is_accepted = CASE WHEN id = ? THEN 1 ELSE 0 END
				WHERE question_id = ?
			`, answerID, questionID)
		}
		if err != nil {
			return fmt.Errorf("store: toggle acceptance: %w", err)
		}

		has, err := recomputeAccepted(ctx, tx, questionID)
		if err != nil {
			return err
		}
		res = models.AcceptResult{
			QuestionID:        questionID,
			AnswerID:          answerID,
			Accepted:          !accepted,
			HasAcceptedAnswer: has,
		}
		return remember(ctx, tx, actor, key, opAccept, target, res)
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// recomputeAccepted derives has_accepted_answer from the answers table.
// More than one accepted answer is an invariant violation and aborts the
// transaction.
func recomputeAccepted(ctx context.Context, tx *sql.Tx, questionID string) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, `
		SELECT count(*) FROM answers WHERE question_id = ? AND is_accepted = 1
	`, questionID).Scan(&n); err != nil {
		return false, fmt.Errorf("store: count accepted: %w", err)
	}
	if n > 1 {
		return false, apperr.New(apperr.ErrConflict, apperr.CodeAcceptanceInvariant,
			fmt.Sprintf("question %s has %d accepted answers", questionID, n))
	}
	has := n == 1
	if _, err := tx.ExecContext(ctx, `UPDATE questions SET has_accepted_answer = ? WHERE id = ?`, has, questionID); err != nil {
		return false, fmt.Errorf("store: update accepted flag: %w", err)
	}
	return has, nil
}

const answerSelect = `
	SELECT a.id, a.question_id, a.body, a.author_id, a.author_role, a.is_accepted, a.upvotes,
	       v.voter_id IS NOT NULL, a.created_at, a.updated_at
	FROM answers a
	LEFT JOIN answer_votes v ON v.answer_id = a.id AND v.voter_id = ?`

func scanAnswers(rows *sql.Rows) ([]models.Answer, error) {
	defer rows.Close()
	out := []models.Answer{}
	for rows.Next() {
		var (
			a                    models.Answer
			role                 string
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Body, &a.AuthorID, &role, &a.IsAccepted, &a.Upvotes,
			&a.HasUpvoted, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		a.AuthorRole = identity.Role(role)
		a.CreatedAt = fromNanos(createdAt)
		a.UpdatedAt = fromNanos(updatedAt)
		a.Comments = []models.Comment{}
		out = append(out, a)
	}
	return out, rows.Err()
}
