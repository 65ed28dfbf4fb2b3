package stats

import (
	"strings"
	"testing"
)

// history builds newest-first score points at the given ages (days before testNow)
func history(pairs ...ScorePoint) []ScorePoint {
	return pairs
}

func point(age int, score int) ScorePoint {
	return ScorePoint{At: testNow.AddDate(0, 0, -age), Score: score}
}

func TestEstimate_InsufficientData(t *testing.T) {
	e := newTestEngine(&fakeStore{})
	got := e.estimate(history(point(2, 20), point(1, 22), point(0, 25)), 44)
	if !strings.Contains(got, "Not enough data") {
		t.Fatalf("expected insufficient-data message, got %q", got)
	}
}

func TestEstimate_TwoPointTrend(t *testing.T) {
	e := newTestEngine(&fakeStore{})

	// Endpoints 10 days apart, 20 -> 30: slope 1.0 pt/day. Goal 44 is 14
	// points above current, so the ETA lands 14 days from now.
	h := history(point(0, 30), point(3, 27), point(7, 24), point(10, 20))
	got := e.estimate(h, 44)

	if !strings.Contains(got, "Trend: ~1.00 points/day") {
		t.Fatalf("expected slope 1.00, got %q", got)
	}
	wantDate := testNow.AddDate(0, 0, 14).Format("2006-01-02")
	if !strings.Contains(got, wantDate) {
		t.Fatalf("expected ETA %s, got %q", wantDate, got)
	}
	if !strings.Contains(got, "Current: 30/44") {
		t.Fatalf("expected current score in message, got %q", got)
	}

	// Recomputation from identical inputs is deterministic
	if again := e.estimate(h, 44); again != got {
		t.Fatalf("estimate is not deterministic:\n%q\n%q", got, again)
	}
}

func TestEstimate_AlreadyMetEvenWithNegativeSlope(t *testing.T) {
	e := newTestEngine(&fakeStore{})
	h := history(point(0, 31), point(2, 35), point(5, 38), point(9, 40))
	got := e.estimate(h, 30)
	if !strings.Contains(got, "already hit your goal") {
		t.Fatalf("expected already-met message, got %q", got)
	}
}

func TestEstimate_FlatTrend(t *testing.T) {
	e := newTestEngine(&fakeStore{})
	h := history(point(0, 25), point(2, 25), point(5, 25), point(9, 25))
	got := e.estimate(h, 44)
	if !strings.Contains(got, "trend is flat") {
		t.Fatalf("expected flat-trend message, got %q", got)
	}
}

func TestEstimate_WindowUsesLastTenEvents(t *testing.T) {
	e := newTestEngine(&fakeStore{})

	// 12 points: the two oldest (huge scores long ago) must fall outside
	// the 10-event window and not drag the slope down.
	h := []ScorePoint{}
	for i := 0; i < 10; i++ {
		h = append(h, point(i, 30-i)) // newest first: 30, 29, ... 21 over 10 days
	}
	h = append(h, point(100, 40), point(120, 44))

	got := e.estimate(h, 44)
	if !strings.Contains(got, "Trend: ~1.00 points/day") {
		t.Fatalf("expected slope from the 10-event window, got %q", got)
	}
}

func TestEstimate_SameTimestampEndpoints(t *testing.T) {
	e := newTestEngine(&fakeStore{})

	// All four points share one timestamp; the elapsed-days floor keeps the
	// slope finite and enormous, so the ETA collapses to today.
	h := history(point(0, 30), point(0, 28), point(0, 25), point(0, 20))
	got := e.estimate(h, 44)
	if !strings.Contains(got, "Estimated reach") {
		t.Fatalf("expected a projection, got %q", got)
	}
	if !strings.Contains(got, testNow.Format("2006-01-02")) {
		t.Fatalf("expected ETA today for a degenerate slope, got %q", got)
	}
}

func TestEstimateGoal_ReadsLedger(t *testing.T) {
	store := &fakeStore{
		scores: history(point(0, 30), point(3, 27), point(7, 24), point(10, 20)),
	}
	e := newTestEngine(store)

	got, err := e.EstimateGoal(1, 44)
	if err != nil {
		t.Fatalf("estimate goal: %v", err)
	}
	if !strings.Contains(got, "Trend: ~1.00 points/day") {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestEstimate_SlopeJustAboveEpsilon(t *testing.T) {
	// slope 0.1 pt/day is above the flat-trend epsilon and must project a date
	e := newTestEngine(&fakeStore{})
	h := history(point(0, 30), point(5, 29), point(8, 29), point(10, 29))
	got := e.estimate(h, 44)
	if !strings.Contains(got, "Estimated reach") {
		t.Fatalf("expected projection for slope 0.1, got %q", got)
	}
}
