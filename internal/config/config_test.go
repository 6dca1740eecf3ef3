package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_DRIVER", "SCAN_THRESHOLD", "SESSION_IDLE", "LOOKBACK_WINDOW", "ALERT_BELL", "REDIS_DB"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, 60*time.Millisecond, cfg.ScanThreshold)
	assert.Equal(t, 10*time.Minute, cfg.SessionIdle)
	assert.Equal(t, 12000, cfg.LookbackWindow)
	assert.True(t, cfg.AlertBell)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadOverrides(t *testing.T) {
	t.Run("valid values", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "Redis")
		t.Setenv("SCAN_THRESHOLD", "45")
		t.Setenv("LOOKBACK_WINDOW", "5000")
		t.Setenv("ALERT_BELL", "false")

		cfg := Load()

		assert.Equal(t, "redis", cfg.StoreDriver)
		assert.Equal(t, 45*time.Millisecond, cfg.ScanThreshold)
		assert.Equal(t, 5000, cfg.LookbackWindow)
		assert.False(t, cfg.AlertBell)
	})

	t.Run("duration syntax", func(t *testing.T) {
		t.Setenv("SCAN_THRESHOLD", "80ms")
		assert.Equal(t, 80*time.Millisecond, Load().ScanThreshold)
	})

	t.Run("invalid values fall back with warnings", func(t *testing.T) {
		t.Setenv("SCAN_THRESHOLD", "fast")
		t.Setenv("LOOKBACK_WINDOW", "-3")

		cfg := Load()

		assert.Equal(t, 60*time.Millisecond, cfg.ScanThreshold)
		assert.Equal(t, 12000, cfg.LookbackWindow)
		assert.Len(t, cfg.Warnings, 2)
	})
}

func TestGet(t *testing.T) {
	t.Setenv("AUDIT_TEST_KEY", "  ")
	assert.Equal(t, "fallback", Get("AUDIT_TEST_KEY", "fallback"))

	t.Setenv("AUDIT_TEST_KEY", "value")
	assert.Equal(t, "value", Get("AUDIT_TEST_KEY", "fallback"))
}
