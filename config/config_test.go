package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"DATA_PATH", "ARTIFACTS_DIR", "FORECAST_MONTHS", "HOLDOUT_POINTS", "ROLLING_WINDOW",
		"TOP_REGIONS", "EXPORT_XLSX", "RENDER_PDF", "POSTGRES_ENABLED", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, "data/UK-HPI-full-file-2025-04.csv", cfg.DataPath)
	assert.Equal(t, "artifacts", cfg.ArtifactsDir)
	assert.Equal(t, 6, cfg.ForecastMonths)
	assert.Equal(t, 6, cfg.HoldoutPoints)
	assert.Equal(t, 12, cfg.RollingWindow)
	assert.Equal(t, 10, cfg.TopRegions)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.ExportXLSX)
	assert.False(t, cfg.RenderPDF)
	assert.False(t, cfg.PostgresEnabled)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DATA_PATH", "/tmp/hpi.csv")
	t.Setenv("FORECAST_MONTHS", "12")
	t.Setenv("EXPORT_XLSX", "false")
	t.Setenv("POSTGRES_ENABLED", "true")
	t.Setenv("POSTGRES_HOST", "db")

	cfg := FromEnv()

	assert.Equal(t, "/tmp/hpi.csv", cfg.DataPath)
	assert.Equal(t, 12, cfg.ForecastMonths)
	assert.False(t, cfg.ExportXLSX)
	assert.True(t, cfg.PostgresEnabled)
	assert.Contains(t, cfg.DSN(), "host=db")
}

func TestFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("FORECAST_MONTHS", "six")
	t.Setenv("RENDER_PDF", "maybe")

	cfg := FromEnv()

	assert.Equal(t, 6, cfg.ForecastMonths)
	assert.False(t, cfg.RenderPDF)
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost: "localhost", PostgresPort: "5432", PostgresUser: "hpi",
		PostgresPassword: "secret", PostgresDB: "hpi_forecast", PostgresSSLMode: "disable",
	}
	want := "host=localhost port=5432 user=hpi password=secret dbname=hpi_forecast sslmode=disable"
	assert.Equal(t, want, cfg.DSN())
}
