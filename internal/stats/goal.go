package stats

import (
	"fmt"
	"time"

	"github.com/example/satbot/pkg/models"
)

// flatSlopeEpsilon is the per-day slope below which the trend is called flat
const flatSlopeEpsilon = 0.05

// minElapsedDays guards the slope division when both endpoints share a timestamp
const minElapsedDays = 1e-6

// EstimateGoal projects when the user will reach the target score and
// returns the user-facing message
func (e *Engine) EstimateGoal(userID int64, goal int) (string, error) {
	history, err := e.History(userID)
	if err != nil {
		return "", fmt.Errorf("failed to read history: %v", err)
	}
	return e.estimate(history, goal), nil
}

// estimate fits a deliberately crude two-point trend: the oldest and newest
// scores within the most recent 10-event sub-window of a 30-event lookback.
// This is intentionally not a least-squares fit; the recency weighting of
// the two endpoints is the designed behavior.
func (e *Engine) estimate(history []ScorePoint, goal int) string {
	if len(history) < 4 {
		return "Not enough data for a goal estimate yet. Log a few more tests."
	}

	// Oldest first, capped to the lookback
	lookback := history
	if len(lookback) > estimateLookback {
		lookback = lookback[:estimateLookback]
	}
	points := make([]ScorePoint, 0, len(lookback))
	for i := len(lookback) - 1; i >= 0; i-- {
		points = append(points, lookback[i])
	}
	if len(points) < 4 {
		return "Not enough data for a goal estimate yet."
	}

	pts := points
	if len(pts) > estimateWindow {
		pts = pts[len(pts)-estimateWindow:]
	}
	oldest, newest := pts[0], pts[len(pts)-1]

	days := newest.At.Sub(oldest.At).Hours() / 24
	if days < minElapsedDays {
		days = minElapsedDays
	}
	slope := float64(newest.Score-oldest.Score) / days

	current := newest.Score
	if current >= goal {
		return fmt.Sprintf("🎯 You’ve already hit your goal (%d/%d).", goal, models.MaxMathScore)
	}

	if slope <= flatSlopeEpsilon {
		return fmt.Sprintf(
			"🎯 Goal: %d/%d\nEstimate: trend is flat right now.\nSuggestion: log consistently and we’ll re-estimate.",
			goal, models.MaxMathScore,
		)
	}

	daysNeeded := float64(goal-current) / slope
	eta := e.now().In(e.loc).Add(time.Duration(daysNeeded * 24 * float64(time.Hour)))
	return fmt.Sprintf(
		"🎯 Goal: %d/%d\nCurrent: %d/%d\nTrend: ~%.2f points/day\nEstimated reach: ~%s (approx).",
		goal, models.MaxMathScore,
		current, models.MaxMathScore,
		slope,
		eta.Format("2006-01-02"),
	)
}
