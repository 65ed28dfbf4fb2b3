package stats

import (
	"fmt"
	"strings"

	"github.com/example/satbot/pkg/models"
)

// FormatLeaderboard renders leaderboard rows under a title
func FormatLeaderboard(rows []models.LeaderboardRow, title string) string {
	if len(rows) == 0 {
		return title + "\n\nNo results yet."
	}
	lines := []string{title, ""}
	for i, r := range rows {
		lines = append(lines, fmt.Sprintf("%d. %s — %d pts (%d tests)", i+1, r.Name(), r.Points, r.Tests))
	}
	return strings.Join(lines, "\n")
}
