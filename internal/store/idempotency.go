package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/clubqa/internal/apperr"
)

// Operation names recorded with idempotency keys.
const (
	opAccept   = "accept"
	opUpvote   = "upvote"
	opBookmark = "bookmark"
)

// replay looks up a previously recorded outcome for (actor, key) inside tx
// and decodes it into out. An empty key never replays.
func replay(ctx context.Context, tx *sql.Tx, actor, key, op, target string, out any) (bool, error) {
	if key == "" {
		return false, nil
	}
	var storedOp, storedTarget, result string
	err := tx.QueryRowContext(ctx, `
		SELECT op, target, result FROM idempotency_keys WHERE actor = ? AND key = ?
	`, actor, key).Scan(&storedOp, &storedTarget, &result)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: idempotency lookup: %w", err)
	}
	if storedOp != op || storedTarget != target {
		return false, apperr.Validation(apperr.CodeIdempotencyReused,
			"idempotency key was already used for a different request")
	}
	if err := json.Unmarshal([]byte(result), out); err != nil {
		return false, fmt.Errorf("store: idempotency decode: %w", err)
	}
	return true, nil
}

// remember records the outcome of an applied operation under (actor, key).
func remember(ctx context.Context, tx *sql.Tx, actor, key, op, target string, result any) error {
	if key == "" {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("store: idempotency encode: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO idempotency_keys (actor, key, op, target, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, actor, key, op, target, string(data), toNanos(time.Now()))
	if err != nil {
		return fmt.Errorf("store: idempotency record: %w", err)
	}
	return nil
}

// PruneIdempotencyKeys deletes keys recorded before cutoff.
func (db *DB) PruneIdempotencyKeys(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE created_at < ?`, toNanos(cutoff))
	if err != nil {
		return 0, classify(fmt.Errorf("store: prune idempotency keys: %w", err))
	}
	return res.RowsAffected()
}
