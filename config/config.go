package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DataPath     string
	ArtifactsDir string

	ForecastMonths int
	HoldoutPoints  int
	RollingWindow  int
	TopRegions     int

	MaxConcurrency int
	MaxRetries     int
	LogLevel       string

	ExportXLSX bool
	RenderPDF  bool
	ChromeBin  string

	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	return &Config{
		DataPath:     getEnv("DATA_PATH", "data/UK-HPI-full-file-2025-04.csv"),
		ArtifactsDir: getEnv("ARTIFACTS_DIR", "artifacts"),

		ForecastMonths: getEnvInt("FORECAST_MONTHS", 6),
		HoldoutPoints:  getEnvInt("HOLDOUT_POINTS", 6),
		RollingWindow:  getEnvInt("ROLLING_WINDOW", 12),
		TopRegions:     getEnvInt("TOP_REGIONS", 10),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		ExportXLSX: getEnvBool("EXPORT_XLSX", true),
		RenderPDF:  getEnvBool("RENDER_PDF", false),
		ChromeBin:  getEnv("CHROME_BIN", ""),

		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "hpi"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "hpi"),
		PostgresDB:       getEnv("POSTGRES_DB", "hpi_forecast"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}
}

// DSN returns the lib/pq keyword/value connection string for the forecast store.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err == nil {
			return b
		}
	}
	return fallback
}
