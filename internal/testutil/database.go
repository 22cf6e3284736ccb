// Package testutil provides test utilities for the books-must-balance project:
// an isolated in-memory database and builders for ledger fixtures.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/the-books-must-balance/internal/storage"
)

// TestDB represents a migrated in-memory test database.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database, runs migrations and
// registers cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	require.NoError(t, db.Storage.SaveChannels(ctx, ledger.Channels()))
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// Seed stores the channels and transactions of a ledger builder.
func (db *TestDB) Seed(b *LedgerBuilder) {
	db.t.Helper()
	ctx := context.Background()
	snap := b.Snapshot()
	if len(snap.Channels) > 0 {
		if err := db.Storage.SaveChannels(ctx, snap.Channels); err != nil {
			db.t.Fatalf("failed to seed channels: %v", err)
		}
	}
	if len(snap.Transactions) > 0 {
		if _, err := db.Storage.SaveTransactions(ctx, snap.Transactions); err != nil {
			db.t.Fatalf("failed to seed transactions: %v", err)
		}
	}
}
