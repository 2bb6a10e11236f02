package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TIMEZONE", "WORK_HOURS", "SLOW_REPLY_SEC",
		"BASELINE_LOOKBACK_DAYS", "EXAMPLES_PER_CATEGORY",
		"DATASET_PATH", "CRM_BASE_URL", "CRM_API_KEY",
		"AMQP_URL", "AMQP_EXCHANGE",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, DefaultWorkHours, cfg.Window.String())
	assert.Equal(t, DefaultSlowReplySec, cfg.SlowReplySec)
	assert.Equal(t, DefaultLookbackDays, cfg.BaselineLookbackDays)
	assert.Equal(t, DefaultExamplesPerCat, cfg.ExamplesPerCategory)
	assert.Equal(t, "chat-insights", cfg.AMQPExchange)
	assert.Empty(t, cfg.CRMBaseURL)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("WORK_HOURS", "09:00-18:00")
	t.Setenv("SLOW_REPLY_SEC", "300")
	t.Setenv("BASELINE_LOOKBACK_DAYS", "13")
	t.Setenv("EXAMPLES_PER_CATEGORY", "5")
	t.Setenv("DATASET_PATH", "/data/report.xlsx")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "09:00-18:00", cfg.Window.String())
	assert.Equal(t, 300, cfg.SlowReplySec)
	assert.Equal(t, 13, cfg.BaselineLookbackDays)
	assert.Equal(t, 5, cfg.ExamplesPerCategory)
	assert.Equal(t, "/data/report.xlsx", cfg.DatasetPath)
}

func TestFromEnvBadTimezone(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMEZONE", "Mars/Olympus")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Mars/Olympus")
}

func TestFromEnvBadWindow(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("WORK_HOURS", "23:00-09:00")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestFromEnvBadInteger(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("SLOW_REPLY_SEC", "ten")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SLOW_REPLY_SEC")
}
