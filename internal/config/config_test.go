package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-elms/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("success defaults", func(t *testing.T) {
		path := writeConfig(t, "auth:\n  jwt_secret: test-secret\n")

		cfg, err := config.Load(path)

		require.NoError(t, err)
		assert.Equal(t, "3000", cfg.Server.Port)
		assert.Equal(t, 12, cfg.Leave.EntitlementDays)
		assert.Equal(t, "weekday", cfg.Leave.CountMode)
		assert.True(t, cfg.Leave.IncludePending)
		assert.Equal(t, config.BackingPostgres, cfg.Leave.Backing)
		assert.Equal(t, 5*time.Minute, cfg.Leave.BalanceCacheTTL)
		assert.Equal(t, 30*time.Second, cfg.Leave.StoreMaxAge)
		assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 72*time.Hour, cfg.Kafka.OutboxRetention)
		assert.Equal(t, 20.0, cfg.RateLimit.IPRPS)
		assert.Equal(t, 40, cfg.RateLimit.IPBurst)
	})

	t.Run("success env overrides file", func(t *testing.T) {
		path := writeConfig(t, "auth:\n  jwt_secret: test-secret\nleave:\n  entitlement_days: 15\n")
		t.Setenv("ELMS_LEAVE_ENTITLEMENT_DAYS", "20")

		cfg, err := config.Load(path)

		require.NoError(t, err)
		assert.Equal(t, 20, cfg.Leave.EntitlementDays)
	})

	t.Run("negative missing jwt secret", func(t *testing.T) {
		path := writeConfig(t, "server:\n  port: \"4000\"\n")

		_, err := config.Load(path)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "jwt_secret")
	})

	t.Run("negative unknown count mode", func(t *testing.T) {
		path := writeConfig(t, "auth:\n  jwt_secret: s\nleave:\n  count_mode: hourly\n")

		_, err := config.Load(path)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "count_mode")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := config.DatabaseConfig{Host: "db", Port: "5432", Name: "elms", User: "u", Password: "p", SSLMode: "disable"}

	assert.Equal(t, "host=db user=u password=p dbname=elms port=5432 sslmode=disable", c.DSN())
}
