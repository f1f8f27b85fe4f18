package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10, cfg.SettleRatePerMinute)
	assert.Equal(t, 5, cfg.JobMaxAttempts)
	assert.Equal(t, time.Second, cfg.JobRetryBaseDelay)
	assert.NotEmpty(t, cfg.DBConn)
	assert.NotEmpty(t, cfg.EventSecret)
}

func TestNewConfig_Overrides(t *testing.T) {
	t.Setenv("SETTLE_RATE_PER_MINUTE", "25")
	t.Setenv("JOB_MAX_ATTEMPTS", "3")
	t.Setenv("JOB_RETRY_BASE_DELAY", "250ms")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.SettleRatePerMinute)
	assert.Equal(t, 3, cfg.JobMaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.JobRetryBaseDelay)
}

func TestNewConfig_InvalidInt(t *testing.T) {
	t.Setenv("SETTLE_RATE_PER_MINUTE", "lots")

	_, err := NewConfig()
	assert.Error(t, err)
}

func TestNewConfig_NonPositiveRate(t *testing.T) {
	t.Setenv("SETTLE_RATE_PER_MINUTE", "0")

	_, err := NewConfig()
	assert.Error(t, err)
}

func TestNewConfig_InvalidDuration(t *testing.T) {
	t.Setenv("JOB_RETRY_BASE_DELAY", "soon")

	_, err := NewConfig()
	assert.Error(t, err)
}
