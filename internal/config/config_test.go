package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
server:
  host: 0.0.0.0
  port: 8080
database:
  host: localhost
  port: 5432
  user: rental
  database: rental
jwt:
  secret: 0123456789abcdef0123456789abcdef
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 72, cfg.EarlyReturn.AutoCompleteAfterHours)
	assert.Equal(t, "0 0 * * * *", cfg.Scheduler.AutoCompleteEarlyReturns)
	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddress())
	assert.Equal(t, "postgres://rental:@localhost:5432/rental?sslmode=disable", cfg.GetDatabaseConnectionString())
}

func TestParse_EnvOverride(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Parse([]byte(baseYAML))
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestParse_Invalid(t *testing.T) {
	t.Run("Short JWT secret", func(t *testing.T) {
		_, err := Parse([]byte(strings.Replace(baseYAML, "0123456789abcdef0123456789abcdef", "short", 1)))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "JWT secret must be at least 32 characters")
	})

	t.Run("Unknown capture method", func(t *testing.T) {
		_, err := Parse([]byte(baseYAML + "payment:\n  capture_on_approve:\n    BITCOIN: true\n"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown payment method")
	})

	t.Run("Memory store skips database checks", func(t *testing.T) {
		cfg, err := Parse([]byte("server:\n  port: 8080\ndatabase:\n  type: memory\njwt:\n  secret: 0123456789abcdef0123456789abcdef\n"))
		require.NoError(t, err)
		assert.Equal(t, "memory", cfg.Database.Type)
	})
}

func TestCapturePolicy(t *testing.T) {
	cfg, err := Parse([]byte(baseYAML + "payment:\n  capture_on_approve:\n    cash_on_delivery: true\n"))
	require.NoError(t, err)

	policy := cfg.CapturePolicy()
	assert.True(t, policy["WALLET"])
	assert.True(t, policy["GATEWAY"])
	assert.True(t, policy["CASH_ON_DELIVERY"])
}
