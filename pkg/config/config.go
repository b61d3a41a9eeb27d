package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	LogLevel   slog.Level

	// Listing endpoint
	UsersBaseURL string
	PageSize     int
	Decoder      string
	FetchTimeout time.Duration // 0 means the transport may block indefinitely

	SearchDebounce time.Duration
	AvatarBaseURL  string

	// Screens untouched for this long are unmounted; 0 keeps them until DELETE
	SessionIdleTimeout time.Duration

	// Optional page event sink; empty brokers disables it
	KafkaBrokers         []string
	KafkaPageEventsTopic string

	TracingEnabled bool
	ServiceName    string

	RateLimitRPS   float64
	RateLimitBurst int
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		LogLevel:             getLevelEnv("LOG_LEVEL", slog.LevelInfo),
		UsersBaseURL:         strings.TrimRight(getEnv("USERS_BASE_URL", "https://jsonplaceholder.typicode.com"), "/"),
		PageSize:             getIntEnv("USERS_PAGE_SIZE", 5),
		Decoder:              getEnv("USERS_DECODER", "array"),
		FetchTimeout:         getDurationEnv("FETCH_TIMEOUT", 0),
		SearchDebounce:       getDurationEnv("SEARCH_DEBOUNCE", 300*time.Millisecond),
		AvatarBaseURL:        getEnv("AVATAR_BASE_URL", "https://ui-avatars.com/api/"),
		SessionIdleTimeout:   getDurationEnv("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		KafkaBrokers:         splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaPageEventsTopic: getEnv("KAFKA_PAGE_EVENTS_TOPIC", "user_list_page_events"),
		TracingEnabled:       getBoolEnv("TRACING_ENABLED", false),
		ServiceName:          getEnv("OTEL_SERVICE_NAME", "user-directory"),
		RateLimitRPS:         getFloatEnv("RATE_LIMIT_RPS", 20),
		RateLimitBurst:       getIntEnv("RATE_LIMIT_BURST", 40),
	}
	return cfg
}

// Validate rejects settings the list core cannot run with.
func (c *Config) Validate() error {
	if c.UsersBaseURL == "" {
		return errors.New("users base URL not configured")
	}
	if c.PageSize < 1 {
		return fmt.Errorf("invalid page size: %d (must be >= 1)", c.PageSize)
	}
	if c.SearchDebounce < 0 {
		return fmt.Errorf("invalid search debounce: %s", c.SearchDebounce)
	}
	if c.SessionIdleTimeout < 0 {
		return fmt.Errorf("invalid session idle timeout: %s", c.SessionIdleTimeout)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaPageEventsTopic == "" {
		return errors.New("kafka page events topic not configured")
	}
	return nil
}

// PageEventsEnabled reports whether page events should be published.
func (c *Config) PageEventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getLevelEnv(key string, fallback slog.Level) slog.Level {
	if value, ok := os.LookupEnv(key); ok {
		var level slog.Level
		if err := level.UnmarshalText([]byte(value)); err == nil {
			return level
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		// Try parsing as duration string (e.g. "300ms", "10s")
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Try parsing as integer milliseconds
		if i, err := strconv.Atoi(value); err == nil {
			return time.Duration(i) * time.Millisecond
		}
	}
	return fallback
}
