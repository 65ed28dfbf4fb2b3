package database

import (
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// openTestDB swaps the global connection for an in-memory SQLite database
// with the real schema applied, restoring the previous one afterwards.
func openTestDB(t *testing.T) {
	t.Helper()

	db, err := sqlx.Connect("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// A single connection keeps the in-memory database alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	prev := DB
	DB = db
	t.Cleanup(func() {
		DB.Close()
		DB = prev
	})

	if err := initializeSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
}

func TestInsertAndRemoveRestoresTotals(t *testing.T) {
	openTestDB(t)
	users := NewUserRepository()
	tests := NewTestRepository()

	user, err := users.GetOrCreate(1001, 2002, false)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if user.TotalPoints != 0 || user.TestsCount != 0 {
		t.Fatalf("fresh user must start at zero, got points=%d tests=%d", user.TotalPoints, user.TestsCount)
	}

	testID, err := tests.Insert(user.ID, 30, nil)
	if err != nil {
		t.Fatalf("failed to insert test: %v", err)
	}

	after, err := users.GetByID(user.ID)
	if err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if after.TotalPoints != 30 || after.TestsCount != 1 {
		t.Fatalf("expected points=30 tests=1 after insert, got points=%d tests=%d",
			after.TotalPoints, after.TestsCount)
	}
	if !after.LastTestAt.Valid {
		t.Fatal("last_test_at must be stamped on insert")
	}

	ownerID, err := tests.RemoveByID(testID)
	if err != nil {
		t.Fatalf("failed to remove test: %v", err)
	}
	if ownerID != user.ID {
		t.Fatalf("expected owner id %d, got %d", user.ID, ownerID)
	}

	restored, err := users.GetByID(user.ID)
	if err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if restored.TotalPoints != 0 || restored.TestsCount != 0 {
		t.Fatalf("totals must return to zero after removal, got points=%d tests=%d",
			restored.TotalPoints, restored.TestsCount)
	}
}

func TestRemoveByID_MissingTest(t *testing.T) {
	openTestDB(t)
	tests := NewTestRepository()

	ownerID, err := tests.RemoveByID(999)
	if err != nil {
		t.Fatalf("removing a missing test must not fail: %v", err)
	}
	if ownerID != 0 {
		t.Fatalf("expected owner id 0 for a missing test, got %d", ownerID)
	}
}
