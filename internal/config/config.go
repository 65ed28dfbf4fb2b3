package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Rate limits and engagement thresholds
const (
	// MaxDailyTests caps how many scores a user may log per local day
	MaxDailyTests = 6
	// CooldownMinutes is the minimum gap between two logged scores
	CooldownMinutes = 30
	// SaverEarnThreshold is the daily test count that earns a streak saver (max 1/day)
	SaverEarnThreshold = 3
)

// Config holds runtime configuration loaded from the environment
type Config struct {
	TelegramToken    string
	WebhookBaseURL   string
	WebhookSecret    string
	ListenAddr       string
	DatabaseURL      string
	TimezoneName     string
	AdminIDs         map[int64]bool
	OpenAIKey        string
	OpenAIModel      string
	DisableScheduler bool

	Location *time.Location
}

// FromEnv loads configuration from environment variables.
// TELEGRAM_BOT_TOKEN is required; everything else has sane defaults.
func FromEnv() (*Config, error) {
	c := &Config{
		TelegramToken:    strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		WebhookBaseURL:   strings.TrimSpace(os.Getenv("WEBHOOK_BASE_URL")),
		WebhookSecret:    strings.TrimSpace(os.Getenv("TELEGRAM_WEBHOOK_SECRET")),
		ListenAddr:       strings.TrimSpace(os.Getenv("LISTEN_ADDR")),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		TimezoneName:     strings.TrimSpace(os.Getenv("TIMEZONE")),
		OpenAIKey:        strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:      strings.TrimSpace(os.Getenv("OPENAI_MODEL")),
		DisableScheduler: os.Getenv("DISABLE_SCHEDULER") == "1",
		AdminIDs:         ParseAdminIDs(os.Getenv("ADMIN_TELEGRAM_IDS")),
	}

	if c.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is not set")
	}
	if c.TimezoneName == "" {
		c.TimezoneName = "UTC"
	}
	if c.OpenAIModel == "" {
		c.OpenAIModel = "gpt-4.1-mini"
	}
	if c.ListenAddr == "" {
		if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
			c.ListenAddr = ":" + port
		} else {
			c.ListenAddr = ":10000"
		}
	}

	loc, err := time.LoadLocation(c.TimezoneName)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %v", c.TimezoneName, err)
	}
	c.Location = loc

	return c, nil
}

// ParseAdminIDs parses a comma-separated list of telegram ids ("123,456")
func ParseAdminIDs(raw string) map[int64]bool {
	out := make(map[int64]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		out[id] = true
	}
	return out
}

// IsAdmin reports whether the telegram id belongs to a configured admin
func (c *Config) IsAdmin(telegramID int64) bool {
	return c.AdminIDs[telegramID]
}
