package models

import "database/sql"

// LeaderboardRow is one entry of a daily or lifetime leaderboard
type LeaderboardRow struct {
	TelegramID int64          `db:"telegram_id"`
	Nickname   sql.NullString `db:"nickname"`
	FirstName  sql.NullString `db:"first_name"`
	Surname    sql.NullString `db:"surname"`
	Points     int64          `db:"points"`
	Tests      int            `db:"tests"`
}

// Name returns the display name for a leaderboard line
func (r *LeaderboardRow) Name() string {
	u := User{Nickname: r.Nickname, FirstName: r.FirstName, Surname: r.Surname}
	return u.DisplayName()
}
