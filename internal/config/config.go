// apps/go-server/internal/config/config.go
//
// Process configuration read from the environment (and .env when present).
// Every value has a development default so the server starts with no setup.

package config

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port           string
	LogLevel       string
	LogFormat      string // "json" | "console"
	ClientOrigin   string
	CategoriesFile string
	DailySalt      string
	JWTSecret      string
	Production     bool // NODE_ENV=production: Secure cookies, SameSite=None

	RevealDelay  time.Duration
	TickInterval time.Duration
	SessionTTL   time.Duration
}

// Load reads .env (if any) and the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "5175"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "json")),
		ClientOrigin:   getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		CategoriesFile: os.Getenv("CATEGORIES_FILE"),
		DailySalt:      getEnv("DAILY_SALT", "local_dev_salt"),
		JWTSecret:      getEnv("JWT_SECRET", "dev_secret_change_me"),
		Production:     os.Getenv("NODE_ENV") == "production",

		RevealDelay:  getPositive("REVEAL_DELAY_MS", 1000, time.Millisecond),
		TickInterval: getPositive("TICK_INTERVAL_MS", 1000, time.Millisecond),
		SessionTTL:   getPositive("SESSION_TTL_MINUTES", 60, time.Minute),
	}
}

// SetupLogging configures the global zerolog logger.
func (c *Config) SetupLogging() {
	c.setupLogging(os.Stderr)
}

func (c *Config) setupLogging(w io.Writer) {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if c.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getPositive reads k as a positive integer count of unit, falling back to def.
func getPositive(k string, def int, unit time.Duration) time.Duration {
	n := def
	if v := os.Getenv(k); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		} else {
			log.Warn().Str("key", k).Str("value", v).Int("default", def).Msg("invalid config value, using default")
		}
	}
	return time.Duration(n) * unit
}
