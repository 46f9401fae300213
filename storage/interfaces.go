package storage

import (
	"context"

	"hpi-forecast/models"
)

// ForecastWriter is the interface any forecast persistence backend must satisfy.
type ForecastWriter interface {
	WriteRun(ctx context.Context, run *models.RunResult) error
	Close() error
}

// DocumentRenderer converts an exported HTML report into another format.
type DocumentRenderer interface {
	Render(ctx context.Context, htmlPath, outPath string) error
}

var (
	_ ForecastWriter   = (*PostgresWriter)(nil)
	_ DocumentRenderer = (*PDFRenderer)(nil)
)
