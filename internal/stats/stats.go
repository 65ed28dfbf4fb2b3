// Package stats implements the engagement engine: the score ledger reader,
// the consecutive-day streak with streak savers, and the goal projection.
package stats

import (
	"time"
)

// ScorePoint is one logged score with its timestamp
type ScorePoint struct {
	At    time.Time
	Score int
}

// Store is the storage surface the engine needs. Reads never have side
// effects; AwardSaver and ConsumeSaver are conditional single-row updates
// and report whether the mutation actually happened.
type Store interface {
	// EventTimes returns the creation times of all the user's score events, newest first
	EventTimes(userID int64) ([]time.Time, error)
	// RecentScores returns the newest (timestamp, score) pairs, newest first
	RecentScores(userID int64, limit int) ([]ScorePoint, error)
	// CountBetween counts score events inside [from, to)
	CountBetween(userID int64, from, to time.Time) (int, error)
	// SaverBalance returns the user's current streak-saver balance
	SaverBalance(userID int64) (int, error)
	// AwardSaver grants one saver for the local day, at most once per day
	AwardSaver(userID int64, day string) (bool, error)
	// ConsumeSaver spends one saver to bridge the local day, at most once per day
	ConsumeSaver(userID int64, day string) (bool, error)
	// SaverUsedOn reports whether a saver was already spent on the local day
	SaverUsedOn(userID int64, day string) (bool, error)
}

// Window sizes for history reads
const (
	// historyWindow bounds the ledger read used for summaries and trends
	historyWindow = 60
	// estimateLookback is the slice of history the goal estimator may see
	estimateLookback = 30
	// estimateWindow is the sub-window whose endpoints define the trend
	estimateWindow = 10
	// sparklineWindow is the number of recent scores shown as a sparkline
	sparklineWindow = 12
)

// Engine evaluates streaks, savers and goal projections for one user at a
// time. All calendar-day boundaries use the configured local timezone.
type Engine struct {
	store Store
	loc   *time.Location

	// now is swappable in tests
	now func() time.Time
}

// NewEngine creates an engine over the given store and deployment timezone
func NewEngine(store Store, loc *time.Location) *Engine {
	return &Engine{
		store: store,
		loc:   loc,
		now:   time.Now,
	}
}

// dayKey converts a timestamp to its local calendar date
func (e *Engine) dayKey(t time.Time) string {
	return t.In(e.loc).Format("2006-01-02")
}

// today returns the current local calendar date at midnight
func (e *Engine) today() time.Time {
	n := e.now().In(e.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, e.loc)
}

// DayBounds returns the UTC half-open interval covering the current local day
func (e *Engine) DayBounds() (time.Time, time.Time) {
	start := e.today()
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// ActivityDates returns the set of distinct local calendar dates on which the
// user logged at least one score
func (e *Engine) ActivityDates(userID int64) (map[string]bool, error) {
	stamps, err := e.store.EventTimes(userID)
	if err != nil {
		return nil, err
	}
	days := make(map[string]bool, len(stamps))
	for _, t := range stamps {
		days[e.dayKey(t)] = true
	}
	return days, nil
}

// History returns the user's recent scores, newest first, capped to the
// history window
func (e *Engine) History(userID int64) ([]ScorePoint, error) {
	return e.store.RecentScores(userID, historyWindow)
}

// ScoresToday counts the user's score events on the current local day
func (e *Engine) ScoresToday(userID int64) (int, error) {
	from, to := e.DayBounds()
	return e.store.CountBetween(userID, from, to)
}
