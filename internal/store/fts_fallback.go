//go:build !sqlite_fts5

package store

import (
	"context"
	"database/sql"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; keyword search uses LIKE on the questions table.
	return nil
}

func ftsUpsert(_ context.Context, _ *sql.Tx, _, _, _ string) error { return nil }

func ftsDelete(_ context.Context, _ *sql.Tx, _ string) error { return nil }

func keywordClause(kw string) (string, []any) {
	like := likePattern(kw)
	return `(q.title LIKE ? ESCAPE '\' OR q.body LIKE ? ESCAPE '\')`, []any{like, like}
}
