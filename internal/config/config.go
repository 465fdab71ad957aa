package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP (suggestion learning pipeline; empty URL disables it)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Suggestion cache
	SuggestionCacheSize int
	SuggestionCacheTTL  time.Duration

	// Cards: comma-separated id:closingDay pairs, e.g. "nubank:4,visa:25"
	Cards string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8082"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/contas.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "contas"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "suggestion_learn"),

		SuggestionCacheSize: getEnvInt("SUGGESTION_CACHE_SIZE", 512),
		SuggestionCacheTTL:  getEnvDuration("SUGGESTION_CACHE_TTL", 15*time.Minute),

		Cards: getEnv("CARDS", ""),
	}
}

// ParseCards parses the CARDS value into id→closingDay pairs.
func (c *Config) ParseCards() (map[string]int, error) {
	cards := map[string]int{}
	if c.Cards == "" {
		return cards, nil
	}
	for _, pair := range strings.Split(c.Cards, ",") {
		id, dayStr, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid card entry %q: expected id:closingDay", pair)
		}
		day, err := strconv.Atoi(dayStr)
		if err != nil || day < 1 || day > 31 {
			return nil, fmt.Errorf("invalid closing day in card entry %q", pair)
		}
		cards[id] = day
	}
	return cards, nil
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SuggestionCacheSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid suggestion cache size %d: must be at least 1", c.SuggestionCacheSize))
	}
	if c.SuggestionCacheTTL < time.Second {
		errs = append(errs, fmt.Sprintf("invalid suggestion cache TTL %v: must be at least 1 second", c.SuggestionCacheTTL))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
