package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"hpi-forecast/models"
	"hpi-forecast/utils"
)

// PostgresWriter persists forecast runs to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, pings it with the
// given retry policy, runs schema migrations and returns a ready writer.
func NewPostgresWriter(dsn string, retry *utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1}
	}
	if err := retry.Do("postgres-ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw, err := NewPostgresWriterWithDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return pw, nil
}

// NewPostgresWriterWithDB wraps an existing handle and runs migrations.
func NewPostgresWriterWithDB(db *sql.DB) (*PostgresWriter, error) {
	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS forecast_runs (
			run_id        UUID          PRIMARY KEY,
			region        TEXT          NOT NULL,
			property_type TEXT          NOT NULL DEFAULT '',
			rows_loaded   INTEGER       NOT NULL DEFAULT 0,
			rows_clean    INTEGER       NOT NULL DEFAULT 0,
			mae           NUMERIC(14,2),
			rmse          NUMERIC(14,2),
			created_at    TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS forecasts (
			id              SERIAL        PRIMARY KEY,
			run_id          UUID          NOT NULL REFERENCES forecast_runs(run_id) ON DELETE CASCADE,
			forecast_date   DATE          NOT NULL,
			region          TEXT          NOT NULL,
			property_type   TEXT          NOT NULL DEFAULT '',
			predicted_price NUMERIC(14,2) NOT NULL,
			UNIQUE (region, property_type, forecast_date)
		);

		CREATE INDEX IF NOT EXISTS idx_forecast_runs_series ON forecast_runs(region, property_type);
		CREATE INDEX IF NOT EXISTS idx_forecasts_run        ON forecasts(run_id);
	`)
	return err
}

// WriteRun replaces any stored run for the same region and property type
// with this one, inside a single transaction.
func (pw *PostgresWriter) WriteRun(ctx context.Context, run *models.RunResult) error {
	region := run.Summary.Region
	propertyType := ""
	if run.Summary.PropertyType != nil {
		propertyType = *run.Summary.PropertyType
	}

	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM forecast_runs WHERE region = $1 AND property_type = $2`,
		region, propertyType); err != nil {
		return fmt.Errorf("postgres: clear previous run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO forecast_runs (run_id, region, property_type, rows_loaded, rows_clean, mae, rmse)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.RunID, region, propertyType, run.Summary.RowsLoaded, run.Summary.RowsClean,
		run.Metrics.MAE, run.Metrics.RMSE); err != nil {
		return fmt.Errorf("postgres: insert run: %w", err)
	}

	const batchSize = 50
	for i := 0; i < len(run.Forecasts); i += batchSize {
		end := i + batchSize
		if end > len(run.Forecasts) {
			end = len(run.Forecasts)
		}
		if err := insertForecastBatch(ctx, tx, run.RunID, run.Forecasts[i:end]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func insertForecastBatch(ctx context.Context, tx *sql.Tx, runID string, batch []models.ForecastRow) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*5)

	for idx, f := range batch {
		base := idx * 5
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4, base+5))
		valueArgs = append(valueArgs,
			runID, f.Date.Format(DateLayout), f.Region, string(f.PropertyType), FormatPrice(f.PredictedPrice))
	}

	query := fmt.Sprintf(`
		INSERT INTO forecasts (run_id, forecast_date, region, property_type, predicted_price)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert forecasts: %w", err)
	}
	return nil
}

// FetchForecasts returns the stored forecasts of one series ordered by date.
func (pw *PostgresWriter) FetchForecasts(ctx context.Context, region, propertyType string) ([]models.ForecastRow, error) {
	rows, err := pw.db.QueryContext(ctx, `
		SELECT forecast_date, region, property_type, predicted_price
		FROM forecasts
		WHERE region = $1 AND property_type = $2
		ORDER BY forecast_date
	`, region, propertyType)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch forecasts: %w", err)
	}
	defer rows.Close()

	var out []models.ForecastRow
	for rows.Next() {
		var f models.ForecastRow
		var pt string
		if err := rows.Scan(&f.Date, &f.Region, &pt, &f.PredictedPrice); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		f.PropertyType = models.PropertyType(pt)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
