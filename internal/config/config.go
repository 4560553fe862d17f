package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config keeps runtime settings for the service.
type Config struct {
	Port        string
	DatabaseURL string
	BaseURL     string

	SchedulerEnabled bool
	ReminderTime     string // HH:MM in the reference timezone
	Timezone         *time.Location

	MailAPIURL string
	MailAPIKey string
	MailFrom   string

	PaymentAPIURL        string
	PaymentAPIKey        string
	PaymentWebhookSecret string

	ParserAPIURL string
	ParserAPIKey string
	ParserModel  string
}

// Load reads configuration from environment variables with sane defaults.
// JWT settings are owned by the auth package and are not duplicated here.
func Load() (Config, error) {
	cfg := Config{
		Port:        getenv("PORT", "3000"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		BaseURL:     getenv("BASE_URL", "http://localhost:3000"),

		SchedulerEnabled: getenv("SCHEDULER_ENABLED", "true") == "true",
		ReminderTime:     getenv("REMINDER_TIME", "09:00"),

		MailAPIURL: strings.TrimSpace(os.Getenv("MAIL_API_URL")),
		MailAPIKey: strings.TrimSpace(os.Getenv("MAIL_API_KEY")),
		MailFrom:   getenv("MAIL_FROM", "reminders@taskmind.app"),

		PaymentAPIURL:        strings.TrimSpace(os.Getenv("PAYMENT_API_URL")),
		PaymentAPIKey:        strings.TrimSpace(os.Getenv("PAYMENT_API_KEY")),
		PaymentWebhookSecret: strings.TrimSpace(os.Getenv("PAYMENT_WEBHOOK_SECRET")),

		ParserAPIURL: strings.TrimSpace(os.Getenv("PARSER_API_URL")),
		ParserAPIKey: strings.TrimSpace(os.Getenv("PARSER_API_KEY")),
		ParserModel:  getenv("PARSER_MODEL", "gpt-4o-mini"),
	}

	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}

	tz := getenv("TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return cfg, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}
	cfg.Timezone = loc

	return cfg, nil
}

func getenv(key string, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
