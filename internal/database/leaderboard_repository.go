package database

import (
	"fmt"
	"time"

	"github.com/example/satbot/pkg/models"
)

// LeaderboardRepository handles the daily and lifetime leaderboard queries
type LeaderboardRepository struct{}

// NewLeaderboardRepository creates a new repository instance
func NewLeaderboardRepository() *LeaderboardRepository {
	return &LeaderboardRepository{}
}

// Daily sums today's scores per user inside [from, to) (the caller passes
// local-midnight bounds converted to UTC). Only approved, unbanned users
// participate. Ordered by points, then test count.
func (r *LeaderboardRepository) Daily(from, to time.Time, limit int) ([]models.LeaderboardRow, error) {
	var rows []models.LeaderboardRow
	query := DB.Rebind(`
		SELECT u.telegram_id, u.nickname, u.first_name, u.surname,
		       SUM(t.math_score) AS points,
		       COUNT(*) AS tests
		FROM tests t
		JOIN users u ON u.id = t.user_id
		WHERE t.created_at >= ? AND t.created_at < ?
		  AND u.approved = true AND u.banned = false
		GROUP BY u.telegram_id, u.nickname, u.first_name, u.surname
		ORDER BY points DESC, tests DESC
		LIMIT ?
	`)
	if err := DB.Select(&rows, query, from, to, limit); err != nil {
		return nil, fmt.Errorf("failed to get daily leaderboard: %v", err)
	}
	return rows, nil
}

// Lifetime ranks approved, unbanned users by their cumulative point totals
func (r *LeaderboardRepository) Lifetime(limit int) ([]models.LeaderboardRow, error) {
	var rows []models.LeaderboardRow
	query := DB.Rebind(`
		SELECT telegram_id, nickname, first_name, surname,
		       total_points AS points,
		       tests_count AS tests
		FROM users
		WHERE approved = true AND banned = false
		ORDER BY total_points DESC, tests_count DESC
		LIMIT ?
	`)
	if err := DB.Select(&rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get lifetime leaderboard: %v", err)
	}
	return rows, nil
}
