package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"PORT", "LOG_LEVEL", "LOG_FORMAT", "CLIENT_ORIGIN", "CATEGORIES_FILE", "DAILY_SALT",
		"JWT_SECRET", "NODE_ENV", "REVEAL_DELAY_MS", "TICK_INTERVAL_MS", "SESSION_TTL_MINUTES",
	} {
		t.Setenv(k, "")
	}

	c := Load()
	assert.Equal(t, "5175", c.Port)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "json", c.LogFormat)
	assert.Equal(t, "http://localhost:5173", c.ClientOrigin)
	assert.Empty(t, c.CategoriesFile)
	assert.Equal(t, "local_dev_salt", c.DailySalt)
	assert.Equal(t, "dev_secret_change_me", c.JWTSecret)
	assert.False(t, c.Production)
	assert.Equal(t, time.Second, c.RevealDelay)
	assert.Equal(t, time.Second, c.TickInterval)
	assert.Equal(t, time.Hour, c.SessionTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_FORMAT", "Console")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("REVEAL_DELAY_MS", "250")
	t.Setenv("TICK_INTERVAL_MS", "not-a-number")
	t.Setenv("SESSION_TTL_MINUTES", "-5")

	c := Load()
	assert.Equal(t, "9000", c.Port)
	assert.Equal(t, "console", c.LogFormat)
	assert.True(t, c.Production)
	assert.Equal(t, 250*time.Millisecond, c.RevealDelay)
	assert.Equal(t, time.Second, c.TickInterval, "invalid value falls back")
	assert.Equal(t, time.Hour, c.SessionTTL, "non-positive value falls back")
}

func TestSetupLogging(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	(&Config{LogLevel: "warn", LogFormat: "json"}).setupLogging(&buf)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	log.Info().Msg("hidden")
	log.Warn().Str("k", "v").Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"k":"v"`)

	buf.Reset()
	(&Config{LogLevel: "bogus", LogFormat: "console"}).setupLogging(&buf)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	log.Info().Msg("pretty")
	assert.Contains(t, buf.String(), "pretty")
	assert.NotContains(t, buf.String(), `"message"`)
}
