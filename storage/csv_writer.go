package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"

	"hpi-forecast/models"
)

// DateLayout is how dates are written to every exported artifact.
const DateLayout = "2006-01-02"

// ForecastHeader is the column order of the forecast CSV.
var ForecastHeader = []string{"Date", "Region", "PropertyType", "PredictedPrice"}

// FormatPrice renders a price with two decimal places for display and the
// NUMERIC(14,2) store column.
func FormatPrice(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// ExactPrice renders the shortest decimal that reads back as v.
func ExactPrice(v float64) string {
	return decimal.NewFromFloat(v).String()
}

// ForecastRecord converts a forecast row to its CSV cells. The price keeps
// full precision.
func ForecastRecord(f models.ForecastRow) []string {
	return []string{
		f.Date.Format(DateLayout),
		f.Region,
		string(f.PropertyType),
		ExactPrice(f.PredictedPrice),
	}
}

// CSVWriter writes forecast rows to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(ForecastHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{path: path, file: f, writer: w}, nil
}

// Path returns the file being written.
func (c *CSVWriter) Path() string { return c.path }

// WriteForecasts appends every forecast row to the file.
func (c *CSVWriter) WriteForecasts(rows []models.ForecastRow) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range rows {
		if err := c.writer.Write(ForecastRecord(r)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		_ = c.file.Close()
		return fmt.Errorf("csv: flush: %w", err)
	}
	return c.file.Close()
}

// WriteForecastCSV writes header plus rows to path in one go.
func WriteForecastCSV(path string, rows []models.ForecastRow) error {
	w, err := NewCSVWriter(path)
	if err != nil {
		return err
	}
	if err := w.WriteForecasts(rows); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
