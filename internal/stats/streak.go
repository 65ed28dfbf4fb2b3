package stats

import (
	"fmt"

	"github.com/example/satbot/internal/config"
)

// StreakResult is the outcome of one streak evaluation
type StreakResult struct {
	// Days is the current consecutive-day streak length
	Days int
	// SaverUsed reports whether this evaluation consumed a streak saver
	SaverUsed bool
	// SaversLeft is the saver balance after the evaluation
	SaversLeft int
}

// Streak computes the consecutive-day streak, walking backward from today
// until the first gap. When today has no score yet but yesterday does, one
// banked streak saver (if any) bridges today. A saver only ever covers the
// single day adjacent to today; it cannot revive a streak that already
// broke further back.
func (e *Engine) Streak(userID int64) (StreakResult, error) {
	savers, err := e.store.SaverBalance(userID)
	if err != nil {
		return StreakResult{}, fmt.Errorf("failed to read saver balance: %v", err)
	}

	days, err := e.ActivityDates(userID)
	if err != nil {
		return StreakResult{}, fmt.Errorf("failed to read activity dates: %v", err)
	}
	if len(days) == 0 {
		return StreakResult{SaversLeft: savers}, nil
	}

	today := e.today()
	todayKey := e.dayKey(today)
	yesterdayKey := e.dayKey(today.AddDate(0, 0, -1))

	saverUsed := false
	if !days[todayKey] && days[yesterdayKey] {
		usedToday, err := e.store.SaverUsedOn(userID, todayKey)
		if err != nil {
			return StreakResult{}, fmt.Errorf("failed to read saver use date: %v", err)
		}
		switch {
		case usedToday:
			// A saver already bridged today (possibly the last one), so the
			// day stays covered on re-evaluation.
			days[todayKey] = true
		case savers > 0:
			// The update is conditional on the use date, so re-evaluating the
			// streak later today cannot spend a second saver.
			consumed, err := e.store.ConsumeSaver(userID, todayKey)
			if err != nil {
				return StreakResult{}, fmt.Errorf("failed to consume saver: %v", err)
			}
			if consumed {
				savers--
				saverUsed = true
			}
			days[todayKey] = true
		}
	}

	streak := 0
	for cur := today; days[e.dayKey(cur)]; cur = cur.AddDate(0, 0, -1) {
		streak++
	}

	return StreakResult{Days: streak, SaverUsed: saverUsed, SaversLeft: savers}, nil
}

// MaybeAwardSaver grants one streak saver when the user's score count for
// the current local day reaches the earn threshold. At most one saver is
// awarded per day; a second crossing of the threshold is a no-op. Returns
// the notification text when the award fired, otherwise "".
func (e *Engine) MaybeAwardSaver(userID int64) (string, error) {
	count, err := e.ScoresToday(userID)
	if err != nil {
		return "", fmt.Errorf("failed to count today's tests: %v", err)
	}
	if count < config.SaverEarnThreshold {
		return "", nil
	}

	awarded, err := e.store.AwardSaver(userID, e.dayKey(e.today()))
	if err != nil {
		return "", fmt.Errorf("failed to award saver: %v", err)
	}
	if !awarded {
		return "", nil
	}
	return fmt.Sprintf("🛡️ Streak Saver earned! (You logged %d tests today.)", config.SaverEarnThreshold), nil
}
