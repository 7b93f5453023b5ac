// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"talos-store/pkg/db" // Import db package for its Config struct
)

// Environment variable names.
const (
	EnvServerPort     = "SERVER_PORT"
	EnvLogLevel       = "LOG_LEVEL"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvMaxConnections = "DATABASE_MAX_CONNECTIONS"
	EnvMinConnections = "DATABASE_MIN_CONNECTIONS"
	EnvAcquireTimeout = "DATABASE_ACQUIRE_TIMEOUT"
	EnvIdleTimeout    = "DATABASE_IDLE_TIMEOUT"
	EnvMaxLifetime    = "DATABASE_MAX_LIFETIME"
)

const (
	DefaultServerPort = "8080"
	DefaultLogLevel   = "info"
	DefaultDotEnvPath = ".env"
)

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	ServerPort string
	LogLevel   string
	DB         db.Config
}

// LoadDotEnv loads variables from path into the environment. Variables that
// are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadConfig loads configuration from environment variables.
// Every pool option is resolved on its own: a missing value takes the default
// silently, an unparsable one takes the default and is reported on logger.
// It fails only when SERVER_PORT is not a valid port.
func LoadConfig(logger *slog.Logger) (*AppConfig, error) {
	if logger == nil {
		logger = slog.Default()
	}

	serverPort := os.Getenv(EnvServerPort)
	if serverPort == "" {
		serverPort = DefaultServerPort // Default port
	}
	if p, err := strconv.Atoi(serverPort); err != nil || p <= 0 || p > 65535 {
		return nil, fmt.Errorf("invalid %s %q", EnvServerPort, serverPort)
	}

	logLevel := os.Getenv(EnvLogLevel)
	if logLevel == "" {
		logLevel = DefaultLogLevel
	}

	url := os.Getenv(EnvDatabaseURL)
	if url == "" {
		url = db.DefaultURL
	}

	maxConns := envInt(logger, EnvMaxConnections, db.DefaultMaxConnections, 1)
	minConns := envInt(logger, EnvMinConnections, db.DefaultMinConnections, 1)
	if minConns > maxConns {
		logger.Warn("Minimum connections exceed maximum, clamping",
			"field", EnvMinConnections, "value", minConns, "fallback", maxConns)
		minConns = maxConns
	}

	return &AppConfig{
		ServerPort: serverPort,
		LogLevel:   logLevel,
		DB: db.Config{
			URL:            url,
			MaxConnections: maxConns,
			MinConnections: minConns,
			AcquireTimeout: envSeconds(logger, EnvAcquireTimeout, db.DefaultAcquireTimeout),
			IdleTimeout:    envSeconds(logger, EnvIdleTimeout, db.DefaultIdleTimeout),
			MaxLifetime:    envSeconds(logger, EnvMaxLifetime, db.DefaultMaxLifetime),
		},
	}, nil
}

// envInt reads an integer no smaller than floor, falling back to def.
func envInt(logger *slog.Logger, key string, def, floor int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < floor {
		logger.Warn("Invalid configuration value, using default", "field", key, "value", raw, "fallback", def)
		return def
	}
	return n
}

// envSeconds reads a positive whole number of seconds, falling back to def.
func envSeconds(logger *slog.Logger, key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		logger.Warn("Invalid configuration value, using default", "field", key, "value", raw, "fallback", def.String())
		return def
	}
	return time.Duration(n) * time.Second
}
