package stats

import (
	"fmt"
)

// Summary aggregates a user's score history for the stats screen
type Summary struct {
	Best    int
	HasBest bool
	Avg     float64
	HasAvg  bool
	Last    ScorePoint
	HasLast bool
	// Last12 holds the most recent scores, oldest first (sparkline input)
	Last12 []int
	// History holds the bounded recent window, newest first (trend input)
	History []ScorePoint
}

// Summarize reads the user's recent history and derives best, average, last
// and the sparkline window. Read-only.
func (e *Engine) Summarize(userID int64) (*Summary, error) {
	history, err := e.History(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %v", err)
	}

	s := &Summary{History: history}
	if len(history) == 0 {
		return s, nil
	}

	s.Last = history[0]
	s.HasLast = true

	sum := 0
	for _, p := range history {
		sum += p.Score
		if !s.HasBest || p.Score > s.Best {
			s.Best = p.Score
			s.HasBest = true
		}
	}
	s.Avg = float64(sum) / float64(len(history))
	s.HasAvg = true

	n := len(history)
	if n > sparklineWindow {
		n = sparklineWindow
	}
	s.Last12 = make([]int, 0, n)
	for i := n - 1; i >= 0; i-- {
		s.Last12 = append(s.Last12, history[i].Score)
	}

	return s, nil
}

// BestHour reports the local hour with the highest average score, computed
// over the recent history window. Hours with fewer than two tests are
// ignored.
func (e *Engine) BestHour(userID int64) (string, error) {
	history, err := e.History(userID)
	if err != nil {
		return "", fmt.Errorf("failed to read history: %v", err)
	}

	sums := make(map[int]int)
	counts := make(map[int]int)
	for _, p := range history {
		h := p.At.In(e.loc).Hour()
		sums[h] += p.Score
		counts[h]++
	}

	bestHour := -1
	bestAvg := 0.0
	bestCount := 0
	for h, c := range counts {
		if c < 2 {
			continue
		}
		avg := float64(sums[h]) / float64(c)
		if bestHour == -1 || avg > bestAvg {
			bestHour = h
			bestAvg = avg
			bestCount = c
		}
	}
	if bestHour == -1 {
		return "Not enough data yet for “best time of day”.", nil
	}
	return fmt.Sprintf("Best hour (avg): ~%02d:00 with %.1f/44 (n=%d).", bestHour, bestAvg, bestCount), nil
}
