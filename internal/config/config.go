package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"conti/internal/log"
)

const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Backend selection
	DataBackend  string
	SQLiteDBPath string

	// AMQP; an empty URL disables messaging
	AMQPURL          string
	AMQPExchange     string
	AMQPEventsQueue  string
	AMQPRepliesQueue string
	AMQPLedgerQueue  string

	// Dispatch
	DispatchConcurrency    int
	SessionTTL             time.Duration
	SessionMaxUsers        int
	SessionCleanupInterval time.Duration

	LogLevel string

	// Google Sheets mirror (worker only)
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// values that were set but could not be parsed
	parseErrors []string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		DataBackend:  getEnv("DATA_BACKEND", BackendSQLite),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/conti.db"),

		AMQPURL:          os.Getenv("AMQP_URL"),
		AMQPExchange:     getEnv("AMQP_EXCHANGE", "conti"),
		AMQPEventsQueue:  getEnv("AMQP_EVENTS_QUEUE", "chat_events"),
		AMQPRepliesQueue: getEnv("AMQP_REPLIES_QUEUE", "chat_replies"),
		AMQPLedgerQueue:  getEnv("AMQP_LEDGER_QUEUE", "ledger_events"),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		GoogleSpreadsheetID: os.Getenv("GOOGLE_SPREADSHEET_ID"),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Ledger"),
	}

	cfg.RateLimitPerMinute = cfg.getEnvInt("RATE_LIMIT_PER_MINUTE", 120)
	cfg.DispatchConcurrency = cfg.getEnvInt("DISPATCH_CONCURRENCY", 8)
	cfg.SessionMaxUsers = cfg.getEnvInt("SESSION_MAX_USERS", 10000)
	cfg.SessionTTL = cfg.getEnvDuration("SESSION_TTL", 30*time.Minute)
	cfg.SessionCleanupInterval = cfg.getEnvDuration("SESSION_CLEANUP_INTERVAL", 5*time.Minute)

	return cfg
}

// AMQPEnabled reports whether a broker URL is configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	errors := append([]string(nil), c.parseErrors...)

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if err := c.EnsureDataDir(); err != nil {
			errors = append(errors, err.Error())
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendSQLite, BackendMemory))
	}

	if c.AMQPEnabled() {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPEventsQueue == "" || c.AMQPRepliesQueue == "" || c.AMQPLedgerQueue == "" {
			errors = append(errors, "AMQP queue names cannot be empty when AMQP URL is provided")
		}
	}

	if c.DispatchConcurrency < 1 || c.DispatchConcurrency > 256 {
		errors = append(errors, fmt.Sprintf("invalid dispatch concurrency %d: must be between 1 and 256", c.DispatchConcurrency))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.SessionMaxUsers < 1 {
		errors = append(errors, fmt.Sprintf("invalid session max users %d: must be at least 1", c.SessionMaxUsers))
	}
	if c.SessionCleanupInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid session cleanup interval %v: must be at least 1 second", c.SessionCleanupInterval))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid LOG_LEVEL: %v", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker adds the requirements of the sheet mirror worker on top of
// Validate.
func (c *Config) ValidateWorker() error {
	var errors []string
	if err := c.Validate(); err != nil {
		errors = append(errors, err.Error())
	}
	if !c.AMQPEnabled() {
		errors = append(errors, "AMQP_URL is required by the mirror worker")
	}
	if c.DataBackend != BackendSQLite {
		errors = append(errors, "the mirror worker reads records from the sqlite backend")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required by the mirror worker")
	}
	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "\n- "))
	}
	return nil
}

// EnsureDataDir creates the parent directory of SQLiteDBPath when missing.
func (c *Config) EnsureDataDir() error {
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create SQLite database directory '%s': %w", dir, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) getEnvInt(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("%s=%q is not an integer", key, value))
		return defaultValue
	}
	return i
}

func (c *Config) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("%s=%q is not a duration", key, value))
		return defaultValue
	}
	return d
}
