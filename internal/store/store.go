// Package store provides SQLite-backed persistence for questions, answers,
// comments, votes and bookmarks, with optional FTS5 keyword search.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/clubqa/internal/apperr"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS questions (
	seq                 INTEGER PRIMARY KEY,
	id                  TEXT NOT NULL UNIQUE,
	title               TEXT NOT NULL,
	body                TEXT NOT NULL,
	author_id           TEXT NOT NULL,
	author_role         TEXT NOT NULL,
	view_count          INTEGER NOT NULL DEFAULT 0,
	answer_count        INTEGER NOT NULL DEFAULT 0,
	has_accepted_answer INTEGER NOT NULL DEFAULT 0,
	created_at          INTEGER NOT NULL,
	updated_at          INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_questions_created ON questions(created_at);

CREATE TABLE IF NOT EXISTS question_tags (
	question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	tag_id      INTEGER NOT NULL,
	position    INTEGER NOT NULL,
	PRIMARY KEY (question_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_question_tags_tag ON question_tags(tag_id);

CREATE TABLE IF NOT EXISTS answers (
	seq         INTEGER PRIMARY KEY,
	id          TEXT NOT NULL UNIQUE,
	question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	body        TEXT NOT NULL,
	author_id   TEXT NOT NULL,
	author_role TEXT NOT NULL,
	is_accepted INTEGER NOT NULL DEFAULT 0,
	upvotes     INTEGER NOT NULL DEFAULT 0 CHECK (upvotes >= 0),
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_answers_question ON answers(question_id);

CREATE TABLE IF NOT EXISTS answer_votes (
	answer_id  TEXT NOT NULL REFERENCES answers(id) ON DELETE CASCADE,
	voter_id   TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (answer_id, voter_id)
);

CREATE TABLE IF NOT EXISTS comments (
	seq         INTEGER PRIMARY KEY,
	id          TEXT NOT NULL UNIQUE,
	parent_type TEXT NOT NULL CHECK (parent_type IN ('QUESTION', 'ANSWER')),
	parent_id   TEXT NOT NULL,
	body        TEXT NOT NULL,
	author_id   TEXT NOT NULL,
	author_role TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments(parent_type, parent_id);

CREATE TABLE IF NOT EXISTS bookmarks (
	question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	user_id     TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	PRIMARY KEY (question_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_bookmarks_user ON bookmarks(user_id, created_at);

CREATE TABLE IF NOT EXISTS idempotency_keys (
	actor      TEXT NOT NULL,
	key        TEXT NOT NULL,
	op         TEXT NOT NULL,
	target     TEXT NOT NULL,
	result     TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (actor, key)
);

CREATE TABLE IF NOT EXISTS view_batches (
	id         TEXT PRIMARY KEY,
	applied_at INTEGER NOT NULL
);
`

// DB wraps a sql.DB with board-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
// Write transactions begin IMMEDIATE so concurrent writers queue on the
// busy timeout instead of failing on lock upgrade.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// withTx runs fn inside a transaction, committing when fn returns nil.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("store: begin tx: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := fn(tx); err != nil {
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("store: commit: %w", err))
	}
	return nil
}

// classify marks lock contention as transient so callers can decide whether
// a retry is safe.
func classify(err error) error {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) && (sqErr.Code == sqlite3.ErrBusy || sqErr.Code == sqlite3.ErrLocked) {
		return apperr.Wrap(apperr.ErrTransient, apperr.CodeStoreBusy, "store busy", err)
	}
	return err
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func questionNotFound(id string) error {
	return apperr.NotFound(apperr.CodeQuestionNotFound, fmt.Sprintf("question %s not found", id))
}

func answerNotFound(id string) error {
	return apperr.NotFound(apperr.CodeAnswerNotFound, fmt.Sprintf("answer %s not found", id))
}
