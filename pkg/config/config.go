// Package config loads client configuration from the environment. It is
// the composition-root collaborator: programs load a Config once at
// startup and hand it to client.New.
package config

import (
	"errors"
	"os"
	"time"

	"github.com/schooldata/veracross-client/pkg/client"
	"github.com/schooldata/veracross-client/pkg/logging"
)

// Config holds everything a program needs to construct a client.
type Config struct {
	// SchoolShortName derives the API base URL ("school_short_name").
	SchoolShortName string

	// BaseURL overrides the derived URL when set ("vcurl").
	BaseURL string

	// Username and Password are the Basic auth credentials
	// ("vcuser" / "vcpass").
	Username string
	Password string

	// Strict surfaces non-success HTTP statuses as errors.
	Strict bool

	// RedisURL enables the Redis-backed shared rate limit store when set.
	RedisURL string

	// Timeout per HTTP request.
	Timeout time.Duration

	// LogLevel and LogPretty configure the global logger.
	LogLevel  logging.LogLevel
	LogPretty bool
}

// Load reads configuration from environment variables.
//
// Recognized variables: VC_SCHOOL_SHORT_NAME, VC_URL, VC_USER, VC_PASS,
// VC_STRICT, VC_REDIS_URL, VC_TIMEOUT (Go duration), VC_LOG_LEVEL,
// VC_LOG_PRETTY.
func Load() (Config, error) {
	cfg := Config{
		SchoolShortName: os.Getenv("VC_SCHOOL_SHORT_NAME"),
		BaseURL:         os.Getenv("VC_URL"),
		Username:        os.Getenv("VC_USER"),
		Password:        os.Getenv("VC_PASS"),
		Strict:          os.Getenv("VC_STRICT") == "true",
		RedisURL:        os.Getenv("VC_REDIS_URL"),
		LogLevel:        logging.LogLevel(getEnv("VC_LOG_LEVEL", string(logging.LevelInfo))),
		LogPretty:       os.Getenv("VC_LOG_PRETTY") == "true",
	}

	if timeoutStr := os.Getenv("VC_TIMEOUT"); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil || timeout <= 0 {
			return Config{}, errors.New("VC_TIMEOUT must be a positive duration")
		}
		cfg.Timeout = timeout
	}

	if cfg.SchoolShortName == "" && cfg.BaseURL == "" {
		return Config{}, errors.New("VC_SCHOOL_SHORT_NAME or VC_URL must be set")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return Config{}, errors.New("VC_USER and VC_PASS must be set")
	}

	return cfg, nil
}

// ClientConfig maps the loaded configuration onto a client.Config. The
// rate limit store is left nil (in-memory); programs wanting the shared
// Redis store set it from RedisURL themselves.
func (c Config) ClientConfig() client.Config {
	return client.Config{
		SchoolShortName: c.SchoolShortName,
		BaseURL:         c.BaseURL,
		Username:        c.Username,
		Password:        c.Password,
		Strict:          c.Strict,
		Timeout:         c.Timeout,
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
