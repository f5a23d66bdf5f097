package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Scoring  ScoringConfig
}

type ServerConfig struct {
	// Host defaults to loopback; the dashboard is a local single-user tool.
	Host string
	Port int
	Env  string
}

type DatabaseConfig struct {
	// Path is the SQLite database file, created on first run.
	Path string
	// BusyTimeoutMS is passed to the driver so writes don't fail
	// immediately when the file is briefly locked.
	BusyTimeoutMS int
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ScoringConfig struct {
	// MeasurementWindowDays limits how far back the latest-measurement
	// snapshot reaches when assembling engine input. 0 means unlimited.
	MeasurementWindowDays int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "127.0.0.1"),
			Port: getEnvInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Path:          getEnv("DB_PATH", "mediclin.db"),
			BusyTimeoutMS: getEnvInt("DB_BUSY_TIMEOUT_MS", 5000),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Scoring: ScoringConfig{
			MeasurementWindowDays: getEnvInt("SCORING_MEASUREMENT_WINDOW_DAYS", 0),
		},
	}, nil
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
