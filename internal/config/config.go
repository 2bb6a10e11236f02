// Package config resolves the engine's flat env-based configuration.
// Bad values here are setup mistakes and abort the run; data-quality
// problems never surface through this package.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"chat-insights-go/internal/bizclock"
)

const (
	DefaultTimezone       = "Europe/Moscow"
	DefaultWorkHours      = "10:00-23:00"
	DefaultSlowReplySec   = 600
	DefaultLookbackDays   = 6
	DefaultExamplesPerCat = 3
)

type Config struct {
	Timezone string
	Location *time.Location
	Window   bizclock.Window

	SlowReplySec         int
	BaselineLookbackDays int
	ExamplesPerCategory  int

	DatasetPath string

	CRMBaseURL string
	CRMAPIKey  string

	AMQPURL      string
	AMQPExchange string
}

// FromEnv builds the config from environment variables. godotenv is
// loaded by main before this runs.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Timezone:     envOr("TIMEZONE", DefaultTimezone),
		DatasetPath:  os.Getenv("DATASET_PATH"),
		CRMBaseURL:   os.Getenv("CRM_BASE_URL"),
		CRMAPIKey:    os.Getenv("CRM_API_KEY"),
		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: envOr("AMQP_EXCHANGE", "chat-insights"),
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	win, err := bizclock.ParseWindow(envOr("WORK_HOURS", DefaultWorkHours))
	if err != nil {
		return nil, err
	}
	cfg.Window = win

	if cfg.SlowReplySec, err = envInt("SLOW_REPLY_SEC", DefaultSlowReplySec); err != nil {
		return nil, err
	}
	if cfg.BaselineLookbackDays, err = envInt("BASELINE_LOOKBACK_DAYS", DefaultLookbackDays); err != nil {
		return nil, err
	}
	if cfg.ExamplesPerCategory, err = envInt("EXAMPLES_PER_CATEGORY", DefaultExamplesPerCat); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: want integer", k, v)
	}
	return n, nil
}
