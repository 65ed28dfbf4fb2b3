package scheduler

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/example/satbot/pkg/models"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestInWindow(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"exactly at target", at(19, 0), true},
		{"ten minutes early", at(18, 50), true},
		{"eleven minutes early", at(18, 49), false},
		{"twenty-five minutes late", at(19, 25), true},
		{"twenty-six minutes late", at(19, 26), false},
		{"wrong half of day", at(7, 0), false},
	}
	for _, tc := range cases {
		if got := InWindow(tc.now, 19, 0); got != tc.want {
			t.Errorf("%s: InWindow(%v) = %v, want %v", tc.name, tc.now, got, tc.want)
		}
	}
}

func TestPickNudge_UsesName(t *testing.T) {
	user := &models.User{
		ID:       1,
		Nickname: sql.NullString{String: "ada", Valid: true},
	}
	found := false
	for hour := 0; hour < len(nudgeMessages); hour++ {
		msg := PickNudge(user, hour)
		if msg == "" {
			t.Fatalf("empty nudge for hour %d", hour)
		}
		if strings.Contains(msg, "%s") {
			t.Fatalf("unexpanded template: %q", msg)
		}
		if strings.Contains(msg, "ada") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected at least one personalized nudge")
	}
}

func TestPickNudge_FirstNameWithoutSurname(t *testing.T) {
	// The greeting falls back to the first name alone; the surname never
	// appears in a nudge.
	user := &models.User{
		ID:        5,
		FirstName: sql.NullString{String: "Grace", Valid: true},
		Surname:   sql.NullString{String: "Hopper", Valid: true},
	}
	found := false
	for hour := 0; hour < len(nudgeMessages); hour++ {
		msg := PickNudge(user, hour)
		if strings.Contains(msg, "Hopper") {
			t.Fatalf("surname leaked into nudge: %q", msg)
		}
		if strings.Contains(msg, "Grace") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the first name in at least one nudge")
	}
}

func TestPickNudge_FallbackName(t *testing.T) {
	user := &models.User{ID: 2}
	msg := PickNudge(user, 0)
	if strings.Contains(msg, "%!s") || strings.Contains(msg, "%s") {
		t.Fatalf("broken template expansion: %q", msg)
	}
}

func TestPickNudge_Deterministic(t *testing.T) {
	user := &models.User{ID: 3}
	if PickNudge(user, 12) != PickNudge(user, 12) {
		t.Fatalf("nudge selection must be deterministic per user and hour")
	}
}
