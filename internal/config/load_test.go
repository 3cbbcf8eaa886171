package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults with required secrets from environment", func(t *testing.T) {
		t.Setenv("GATEWAY_SECRET_KEY", "sk_test_abc")
		t.Setenv("ADMIN_API_TOKEN", "admin-token")

		cfg, err := LoadConfig("nonexistent")
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "NGN", cfg.Ledger.Currency)
		assert.Equal(t, 3*time.Second, cfg.Ledger.LockTimeout)
		assert.Equal(t, "booking_settlements", cfg.Kafka.BookingTopic)
		assert.Equal(t, "booking_settlements_dlq", cfg.Kafka.DLQTopic)
		assert.Equal(t, 5*time.Minute, cfg.Release.SweepInterval)
		assert.Equal(t, 5, cfg.Outbox.MaxRetryAttempts)
		assert.Equal(t, "sk_test_abc", cfg.Gateway.SecretKey)
		assert.Equal(t, "admin-token", cfg.Admin.APIToken)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("GATEWAY_SECRET_KEY", "sk_test_abc")
		t.Setenv("ADMIN_API_TOKEN", "admin-token")
		t.Setenv("SERVER_PORT", "9090")
		t.Setenv("LEDGER_CURRENCY", "USD")
		t.Setenv("RELEASE_WORKER_POOL", "25")

		cfg, err := LoadConfig("nonexistent")
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "USD", cfg.Ledger.Currency)
		assert.Equal(t, 25, cfg.Release.WorkerPool)
	})

	t.Run("missing admin token fails validation", func(t *testing.T) {
		t.Setenv("GATEWAY_SECRET_KEY", "sk_test_abc")
		t.Setenv("ADMIN_API_TOKEN", "")

		_, err := LoadConfig("nonexistent")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ADMIN_API_TOKEN")
	})

	t.Run("missing gateway secret fails validation", func(t *testing.T) {
		t.Setenv("GATEWAY_SECRET_KEY", "")
		t.Setenv("ADMIN_API_TOKEN", "admin-token")

		_, err := LoadConfig("nonexistent")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GATEWAY_SECRET_KEY")
	})

	t.Run("invalid currency format rejected", func(t *testing.T) {
		t.Setenv("GATEWAY_SECRET_KEY", "sk_test_abc")
		t.Setenv("ADMIN_API_TOKEN", "admin-token")
		t.Setenv("LEDGER_CURRENCY", "NAIRA")

		_, err := LoadConfig("nonexistent")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "LEDGER_CURRENCY")
	})
}
