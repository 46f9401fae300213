package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"hpi-forecast/models"
)

func sampleForecasts() []models.ForecastRow {
	return []models.ForecastRow{
		{Date: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), Region: "London", PropertyType: models.Flat, PredictedPrice: 512345.678},
		{Date: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), Region: "London", PropertyType: models.Flat, PredictedPrice: 513000},
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{512345.678, "512345.68"},
		{5, "5.00"},
		{0.005, "0.01"},
		{-12.344, "-12.34"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPrice(tt.in), "FormatPrice(%v)", tt.in)
	}
}

func TestWriteForecastCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "forecasts.csv")

	require.NoError(t, WriteForecastCSV(path, sampleForecasts()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"Date", "Region", "PropertyType", "PredictedPrice"},
		{"2024-07-01", "London", "Flat", "512345.678"},
		{"2024-08-01", "London", "Flat", "513000"},
	}, records)
}

func TestCSVKeepsFullPrecision(t *testing.T) {
	tests := []float64{512345.678, 0.1 + 0.2, 1e-7, 199999.99999}
	for _, v := range tests {
		cell := ForecastRecord(models.ForecastRow{PredictedPrice: v})[3]
		got, err := strconv.ParseFloat(cell, 64)
		require.NoError(t, err, cell)
		assert.Equal(t, v, got, "round trip of %q", cell)
	}
}

func TestCSVWriterHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	w, err := NewCSVWriter(path)
	require.NoError(t, err)
	assert.Equal(t, path, w.Path())
	require.NoError(t, w.WriteForecasts(nil))
	require.NoError(t, w.Close())

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Date,Region,PropertyType,PredictedPrice\n", string(body))
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecasts.xlsx")
	series := []models.RollingPoint{
		{TidyPriceRow: models.TidyPriceRow{Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), RegionName: "London", PropertyType: models.Flat, Price: 450000}, RollingMean: 449000.5},
	}

	require.NoError(t, WriteWorkbook(path, sampleForecasts(), series))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetForecasts, SheetSeries}, f.GetSheetList())

	rows, err := f.GetRows(SheetForecasts)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Date", "Region", "PropertyType", "PredictedPrice"}, rows[0])
	assert.Equal(t, "2024-07-01", rows[1][0])
	assert.Equal(t, "512345.68", rows[1][3])

	seriesRows, err := f.GetRows(SheetSeries)
	require.NoError(t, err)
	require.Len(t, seriesRows, 2)
	assert.Equal(t, []string{"Date", "Region", "PropertyType", "Price", "RollingMean12"}, seriesRows[0])
	assert.Equal(t, []string{"2024-06-01", "London", "Flat", "450000", "449000.5"}, seriesRows[1])
}
