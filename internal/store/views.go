package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// IncrViews increments a question's view counter and returns the new value.
func (db *DB) IncrViews(ctx context.Context, questionID string) (int64, error) {
	var n int64
	err := db.conn.QueryRowContext(ctx, `
		UPDATE questions SET view_count = view_count + 1 WHERE id = ? RETURNING view_count
	`, questionID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, questionNotFound(questionID)
	}
	if err != nil {
		return 0, classify(fmt.Errorf("store: incr views: %w", err))
	}
	return n, nil
}

// AddViewCounts adds pending view increments to the stored counters.
// Unknown question ids are skipped. A non-empty batchID is applied at most
// once; repeating it is a no-op.
func (db *DB) AddViewCounts(ctx context.Context, batchID string, deltas map[string]int64) error {
	if len(deltas) == 0 {
		return nil
	}
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if batchID != "" {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO view_batches (id, applied_at) VALUES (?, ?) ON CONFLICT (id) DO NOTHING
			`, batchID, toNanos(time.Now()))
			if err != nil {
				return fmt.Errorf("store: record view batch: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return nil
			}
		}

		stmt, err := tx.PrepareContext(ctx, `UPDATE questions SET view_count = view_count + ? WHERE id = ?`)
		if err != nil {
			return fmt.Errorf("store: prepare view add: %w", err)
		}
		defer stmt.Close()
		for id, n := range deltas {
			if n <= 0 {
				continue
			}
			if _, err := stmt.ExecContext(ctx, n, id); err != nil {
				return fmt.Errorf("store: add views: %w", err)
			}
		}
		return nil
	})
}

// PruneViewBatches forgets batch ids applied before cutoff.
func (db *DB) PruneViewBatches(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM view_batches WHERE applied_at < ?`, toNanos(cutoff))
	if err != nil {
		return 0, classify(fmt.Errorf("store: prune view batches: %w", err))
	}
	return res.RowsAffected()
}
