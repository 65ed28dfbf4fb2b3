package bot

import (
	"fmt"
	"strings"
	"testing"

	"github.com/example/satbot/pkg/models"
)

func TestImproverDelta(t *testing.T) {
	// Scores newest first: last three average 30, previous three average 25
	scores := []int{32, 30, 28, 26, 25, 24}
	delta, ok := improverDelta(scores)
	if !ok {
		t.Fatal("expected enough data")
	}
	if delta != 5 {
		t.Errorf("expected delta 5, got %v", delta)
	}
}

func TestImproverDelta_NotEnoughTests(t *testing.T) {
	if _, ok := improverDelta([]int{30, 28, 26, 24, 22}); ok {
		t.Error("five tests should not be enough")
	}
}

func TestImproverDelta_Decline(t *testing.T) {
	scores := []int{20, 20, 20, 30, 30, 30, 35, 35}
	delta, ok := improverDelta(scores)
	if !ok {
		t.Fatal("expected enough data")
	}
	if delta != -10 {
		t.Errorf("expected delta -10, got %v", delta)
	}
}

func TestParseInactiveDays(t *testing.T) {
	if got := parseInactiveDays(""); got != 7 {
		t.Errorf("expected default of 7 days, got %d", got)
	}
	if got := parseInactiveDays("14"); got != 14 {
		t.Errorf("expected 14, got %d", got)
	}
	if got := parseInactiveDays("0"); got != 7 {
		t.Errorf("non-positive argument should fall back to 7, got %d", got)
	}
	if got := parseInactiveDays("soon"); got != 7 {
		t.Errorf("junk argument should fall back to 7, got %d", got)
	}
}

func TestImproverBoard(t *testing.T) {
	var entries []improverEntry
	for i := 0; i < 12; i++ {
		entries = append(entries, improverEntry{
			name:  fmt.Sprintf("student%d", i),
			delta: float64(i),
		})
	}
	board := improverBoard(entries)
	lines := strings.Split(board, "\n")
	if len(lines) != improverListSize+1 {
		t.Fatalf("expected header plus %d entries, got %d lines", improverListSize, len(lines))
	}
	if !strings.Contains(lines[1], "student11") || !strings.Contains(lines[1], "+11.0") {
		t.Errorf("expected the biggest improver first, got %q", lines[1])
	}
	if strings.Contains(board, "student0") || strings.Contains(board, "student1 ") {
		t.Errorf("lowest improvers should be cut from the top-10 list:\n%s", board)
	}
}

func TestEmailValidation(t *testing.T) {
	valid := []string{"name@example.com", "a.b+c@school.edu", "x@y.io"}
	for _, email := range valid {
		if !emailRe.MatchString(email) {
			t.Errorf("expected %q to be valid", email)
		}
	}
	invalid := []string{"", "plainaddress", "@no-local.com", "no-domain@", "two@@at.com", "spa ce@mail.com", "no-tld@host"}
	for _, email := range invalid {
		if emailRe.MatchString(email) {
			t.Errorf("expected %q to be invalid", email)
		}
	}
}

func TestRegistrationPrompt(t *testing.T) {
	cases := []struct {
		step int
		want string
	}{
		{models.RegStepName, "1/4"},
		{models.RegStepSurname, "2/4"},
		{models.RegStepNickname, "3/4"},
		{models.RegStepEmail, "4/4"},
		{99, "1/4"},
	}
	for _, tc := range cases {
		got := registrationPrompt(tc.step)
		if !strings.Contains(got, tc.want) {
			t.Errorf("step %d: expected prompt to contain %q, got %q", tc.step, tc.want, got)
		}
	}
}

func TestClamp(t *testing.T) {
	if clamp(-3, 0, 23) != 0 {
		t.Error("expected lower bound")
	}
	if clamp(30, 0, 23) != 23 {
		t.Error("expected upper bound")
	}
	if clamp(12, 0, 23) != 12 {
		t.Error("expected value unchanged")
	}
}

func TestHelpText(t *testing.T) {
	student := helpText(false)
	if strings.Contains(student, "/broadcast") {
		t.Error("student help should not list teacher commands")
	}
	if !strings.Contains(student, "/sat") {
		t.Error("student help should mention the tutor command")
	}
	admin := helpText(true)
	if !strings.Contains(admin, "/broadcast") || !strings.Contains(admin, "/exportcsv") {
		t.Error("teacher help should list teacher commands")
	}
}
