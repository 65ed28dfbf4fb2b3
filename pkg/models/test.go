package models

import (
	"database/sql"
	"time"
)

// Score bounds for a single SAT Math section test
const (
	MinMathScore = 0
	MaxMathScore = 44
)

// Test is a single logged practice-test result
type Test struct {
	ID             int64         `json:"id" db:"id"`
	UserID         int64         `json:"user_id" db:"user_id"`
	MathScore      int           `json:"math_score" db:"math_score"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	CreatedByAdmin sql.NullInt64 `json:"created_by_admin" db:"created_by_admin"` // admin telegram id, when recorded manually
}
