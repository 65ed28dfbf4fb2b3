package models

import (
	"database/sql"
	"time"
)

// Registration steps stored in users.reg_step. Zero means registration
// is finished (or was hard-finished by an admin approval).
const (
	RegStepDone     = 0
	RegStepName     = 1
	RegStepSurname  = 2
	RegStepNickname = 3
	RegStepEmail    = 4
)

// User represents a student (or admin) interacting with the bot
type User struct {
	ID               int64          `json:"id" db:"id"`
	TelegramID       int64          `json:"telegram_id" db:"telegram_id"`
	ChatID           int64          `json:"chat_id" db:"chat_id"`
	FirstName        sql.NullString `json:"first_name" db:"first_name"`
	Surname          sql.NullString `json:"surname" db:"surname"`
	Nickname         sql.NullString `json:"nickname" db:"nickname"`
	Email            sql.NullString `json:"email" db:"email"`
	RegisteredAt     sql.NullTime   `json:"registered_at" db:"registered_at"`
	RegStep          int            `json:"reg_step" db:"reg_step"`
	State            sql.NullString `json:"state" db:"state"`
	Approved         bool           `json:"approved" db:"approved"`
	Banned           bool           `json:"banned" db:"banned"`
	GoalMath         sql.NullInt64  `json:"goal_math" db:"goal_math"`
	TotalPoints      int64          `json:"total_points" db:"total_points"`
	TestsCount       int            `json:"tests_count" db:"tests_count"`
	LastTestAt       sql.NullTime   `json:"last_test_at" db:"last_test_at"`
	LastNudgeAt      sql.NullTime   `json:"last_nudge_at" db:"last_nudge_at"`
	PrefHour         sql.NullInt64  `json:"pref_hour" db:"pref_hour"`
	PrefMinute       sql.NullInt64  `json:"pref_minute" db:"pref_minute"`
	StreakSavers     int            `json:"streak_savers" db:"streak_savers"`
	SaverAwardedDate sql.NullString `json:"saver_awarded_date" db:"saver_awarded_date"` // local date, YYYY-MM-DD
	SaverUsedDate    sql.NullString `json:"saver_used_date" db:"saver_used_date"`       // local date, YYYY-MM-DD
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
}

// DisplayName returns the best human-readable name for the user:
// nickname first, then "first surname", then a dash
func (u *User) DisplayName() string {
	if u.Nickname.Valid && u.Nickname.String != "" {
		return u.Nickname.String
	}
	name := ""
	if u.FirstName.Valid {
		name = u.FirstName.String
	}
	if u.Surname.Valid && u.Surname.String != "" {
		if name != "" {
			name += " "
		}
		name += u.Surname.String
	}
	if name == "" {
		return "-"
	}
	return name
}
