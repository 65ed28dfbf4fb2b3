package stats

import (
	"testing"
	"time"
)

func TestSparkline(t *testing.T) {
	cases := []struct {
		name   string
		scores []int
		want   string
	}{
		{"empty", nil, "(no scores yet)"},
		{"floor", []int{0}, "▁"},
		{"ceiling", []int{44}, "█"},
		{"clamped", []int{-5, 99}, "▁█"},
		{"midpoint", []int{22}, "▅"},
		{"ramp", []int{0, 22, 44}, "▁▅█"},
	}
	for _, tc := range cases {
		if got := Sparkline(tc.scores); got != tc.want {
			t.Errorf("%s: Sparkline(%v) = %q, want %q", tc.name, tc.scores, got, tc.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	store := &fakeStore{
		scores: history(point(0, 30), point(1, 35), point(2, 20), point(3, 28)),
	}
	e := newTestEngine(store)

	s, err := e.Summarize(1)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !s.HasBest || s.Best != 35 {
		t.Fatalf("expected best 35, got %d", s.Best)
	}
	if !s.HasLast || s.Last.Score != 30 {
		t.Fatalf("expected last 30, got %d", s.Last.Score)
	}
	wantAvg := (30.0 + 35 + 20 + 28) / 4
	if !s.HasAvg || s.Avg != wantAvg {
		t.Fatalf("expected avg %.2f, got %.2f", wantAvg, s.Avg)
	}
	wantSpark := []int{28, 20, 35, 30} // oldest first
	if len(s.Last12) != len(wantSpark) {
		t.Fatalf("unexpected sparkline window: %v", s.Last12)
	}
	for i := range wantSpark {
		if s.Last12[i] != wantSpark[i] {
			t.Fatalf("sparkline window = %v, want %v", s.Last12, wantSpark)
		}
	}
}

func TestSummarize_Empty(t *testing.T) {
	e := newTestEngine(&fakeStore{})
	s, err := e.Summarize(1)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if s.HasBest || s.HasAvg || s.HasLast || len(s.Last12) != 0 {
		t.Fatalf("expected an empty summary, got %+v", s)
	}
}

func TestBestHour(t *testing.T) {
	morning := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC)
	store := &fakeStore{
		scores: []ScorePoint{
			{At: evening, Score: 40},
			{At: evening.AddDate(0, 0, -1), Score: 38},
			{At: morning, Score: 20},
			{At: morning.AddDate(0, 0, -1), Score: 22},
		},
	}
	e := newTestEngine(store)

	got, err := e.BestHour(1)
	if err != nil {
		t.Fatalf("best hour: %v", err)
	}
	if got != "Best hour (avg): ~19:00 with 39.0/44 (n=2)." {
		t.Fatalf("unexpected best-hour message: %q", got)
	}
}

func TestBestHour_NotEnoughData(t *testing.T) {
	store := &fakeStore{scores: history(point(0, 30))}
	e := newTestEngine(store)
	got, err := e.BestHour(1)
	if err != nil {
		t.Fatalf("best hour: %v", err)
	}
	if got != "Not enough data yet for “best time of day”." {
		t.Fatalf("unexpected message: %q", got)
	}
}
