// Package testutil provides shared test helpers for databases, principals
// and board services.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/clubqa/internal/identity"
	"github.com/starford/clubqa/internal/store"
)

// Common principals used across tests.
var (
	Alice = identity.Principal{ID: "alice", Role: identity.RoleMember}
	Bob   = identity.Principal{ID: "bob", Role: identity.RoleMember}
	Carol = identity.Principal{ID: "carol", Role: identity.RoleMember}
	Admin = identity.Principal{ID: "root", Role: identity.RoleAdmin}
	Guest = identity.Guest
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "clubqa-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() {
		os.Remove(dbFile.Name())
		os.Remove(dbFile.Name() + "-wal")
		os.Remove(dbFile.Name() + "-shm")
	})

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
