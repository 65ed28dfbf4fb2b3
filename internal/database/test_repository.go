package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/example/satbot/pkg/models"
)

// TestRepository handles database operations for logged test scores
type TestRepository struct{}

// NewTestRepository creates a new repository instance
func NewTestRepository() *TestRepository {
	return &TestRepository{}
}

// Insert records a score event and updates the owner's cumulative totals and
// last-test timestamp in the same transaction
func (r *TestRepository) Insert(userID int64, score int, createdByAdmin *int64) (int64, error) {
	tx, err := DB.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var admin interface{}
	if createdByAdmin != nil {
		admin = *createdByAdmin
	}

	var testID int64
	if DB.DriverName() == "postgres" {
		err = tx.QueryRow(
			"INSERT INTO tests (user_id, math_score, created_at, created_by_admin) VALUES ($1, $2, $3, $4) RETURNING id",
			userID, score, now, admin,
		).Scan(&testID)
		if err != nil {
			return 0, fmt.Errorf("failed to insert test: %v", err)
		}
	} else {
		res, err := tx.Exec(
			"INSERT INTO tests (user_id, math_score, created_at, created_by_admin) VALUES (?, ?, ?, ?)",
			userID, score, now, admin,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert test: %v", err)
		}
		testID, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to get test id: %v", err)
		}
	}

	query := tx.Rebind(`
		UPDATE users
		SET total_points = total_points + ?,
		    tests_count = tests_count + 1,
		    last_test_at = ?
		WHERE id = ?
	`)
	if _, err := tx.Exec(query, score, now, userID); err != nil {
		return 0, fmt.Errorf("failed to update user totals: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit test: %v", err)
	}
	return testID, nil
}

// RemoveByID deletes a score event and reverses the owner's cumulative
// totals (floored at zero). Returns the owner's user id, or 0 when the
// test does not exist.
func (r *TestRepository) RemoveByID(testID int64) (int64, error) {
	tx, err := DB.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	var row struct {
		UserID    int64 `db:"user_id"`
		MathScore int   `db:"math_score"`
	}
	err = tx.Get(&row, tx.Rebind("SELECT user_id, math_score FROM tests WHERE id = ?"), testID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load test: %v", err)
	}

	if _, err := tx.Exec(tx.Rebind("DELETE FROM tests WHERE id = ?"), testID); err != nil {
		return 0, fmt.Errorf("failed to delete test: %v", err)
	}

	floor := "MAX(0, total_points - ?), tests_count = MAX(0, tests_count - 1)"
	if DB.DriverName() == "postgres" {
		floor = "GREATEST(0, total_points - ?), tests_count = GREATEST(0, tests_count - 1)"
	}
	query := tx.Rebind("UPDATE users SET total_points = " + floor + " WHERE id = ?")
	if _, err := tx.Exec(query, row.MathScore, row.UserID); err != nil {
		return 0, fmt.Errorf("failed to reverse user totals: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit removal: %v", err)
	}
	return row.UserID, nil
}

// CountInRange returns how many tests the user logged inside [from, to)
func (r *TestRepository) CountInRange(userID int64, from, to time.Time) (int, error) {
	var count int
	query := DB.Rebind("SELECT COUNT(*) FROM tests WHERE user_id = ? AND created_at >= ? AND created_at < ?")
	if err := DB.Get(&count, query, userID, from, to); err != nil {
		return 0, fmt.Errorf("failed to count tests: %v", err)
	}
	return count, nil
}

// LastCreatedAt returns the timestamp of the user's most recent test
func (r *TestRepository) LastCreatedAt(userID int64) (time.Time, bool, error) {
	var at time.Time
	query := DB.Rebind("SELECT created_at FROM tests WHERE user_id = ? ORDER BY created_at DESC LIMIT 1")
	err := DB.Get(&at, query, userID)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get last test time: %v", err)
	}
	return at, true, nil
}

// Recent returns the user's newest tests, most recent first
func (r *TestRepository) Recent(userID int64, limit int) ([]models.Test, error) {
	var tests []models.Test
	query := DB.Rebind(`SELECT id, user_id, math_score, created_at, created_by_admin
		FROM tests WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`)
	if err := DB.Select(&tests, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent tests: %v", err)
	}
	return tests, nil
}

// Timestamps returns the creation times of all the user's tests, newest first
func (r *TestRepository) Timestamps(userID int64) ([]time.Time, error) {
	var stamps []time.Time
	query := DB.Rebind("SELECT created_at FROM tests WHERE user_id = ? ORDER BY created_at DESC")
	if err := DB.Select(&stamps, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get test timestamps: %v", err)
	}
	return stamps, nil
}
