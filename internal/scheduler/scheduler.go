package scheduler

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/example/satbot/internal/database"
	"github.com/example/satbot/internal/stats"
	"github.com/example/satbot/pkg/models"
	"github.com/go-co-op/gocron"
)

// Nudge window around the user's preferred reminder time
const (
	windowBefore = 10 * time.Minute
	windowAfter  = 25 * time.Minute

	// Fallback reminder time for users without a derived preference
	defaultHour   = 19
	defaultMinute = 0

	tickInterval = 5 * time.Minute
)

var nudgeMessages = []string{
	"Hey %s 😈 time to do SAT Math. Don’t make me beg.",
	"%s, your future self called. They want you to log a Math score today 📈",
	"Daily quest: log 1 Math score (0–44). Reward: less panic later 🧠",
	"You’ve got this, %s. 25 minutes of Math. Then log it. 💪",
	"Why aren't you doing SAT 😡 (this is your friendly chaos reminder)",
}

// Notifier sends a reminder to a chat
type Notifier interface {
	SendNudge(chatID int64, text string) error
}

// Scheduler runs the periodic reminder evaluation
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
	engine    *stats.Engine
	loc       *time.Location
}

// New creates a new scheduler instance
func New(notifier Notifier, engine *stats.Engine, loc *time.Location) *Scheduler {
	s := gocron.NewScheduler(loc)
	return &Scheduler{
		scheduler: s,
		notifier:  notifier,
		engine:    engine,
		loc:       loc,
	}
}

// Start begins running the reminder loop
func (s *Scheduler) Start() {
	s.scheduler.Every(tickInterval).Do(s.tick)
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// tick evaluates every approved user once and nudges those inside their
// reminder window who have not logged a score or been nudged today
func (s *Scheduler) tick() {
	userRepo := database.NewUserRepository()

	users, err := userRepo.ListApprovedActive()
	if err != nil {
		log.Printf("Error getting users for reminders: %v", err)
		return
	}

	now := time.Now().In(s.loc)
	for i := range users {
		user := &users[i]

		count, err := s.engine.ScoresToday(user.ID)
		if err != nil {
			log.Printf("Error counting today's tests for user %d: %v", user.ID, err)
			continue
		}
		if count > 0 {
			continue
		}

		if user.LastNudgeAt.Valid && sameLocalDay(user.LastNudgeAt.Time, now, s.loc) {
			continue
		}

		hour, minute := preferredTime(user)
		if !InWindow(now, hour, minute) {
			continue
		}

		msg := PickNudge(user, now.Hour())
		if err := s.notifier.SendNudge(user.ChatID, msg); err != nil {
			log.Printf("Error sending nudge to user %d: %v", user.ID, err)
			continue
		}
		if err := userRepo.SetLastNudge(user.ID, time.Now().UTC()); err != nil {
			log.Printf("Error stamping nudge for user %d: %v", user.ID, err)
		}
	}
}

// preferredTime returns the user's reminder hour/minute, with the fallback
func preferredTime(user *models.User) (int, int) {
	if user.PrefHour.Valid && user.PrefMinute.Valid {
		return int(user.PrefHour.Int64), int(user.PrefMinute.Int64)
	}
	return defaultHour, defaultMinute
}

// InWindow reports whether now falls inside [target-10m, target+25m], where
// target is today's occurrence of the preferred reminder time
func InWindow(now time.Time, hour, minute int) bool {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	return !now.Before(target.Add(-windowBefore)) && !now.After(target.Add(windowAfter))
}

// PickNudge selects a rotating nudge message for the user. The greeting
// uses nickname, then first name, never the surname.
func PickNudge(user *models.User, hour int) string {
	name := "champ"
	if n := strings.TrimSpace(user.Nickname.String); user.Nickname.Valid && n != "" {
		name = n
	} else if n := strings.TrimSpace(user.FirstName.String); user.FirstName.Valid && n != "" {
		name = n
	}
	template := nudgeMessages[(user.ID+int64(hour))%int64(len(nudgeMessages))]
	if !strings.Contains(template, "%s") {
		return template
	}
	return fmt.Sprintf(template, name)
}

func sameLocalDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
