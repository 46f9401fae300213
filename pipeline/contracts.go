package pipeline

import (
	"hpi-forecast/models"
	"hpi-forecast/services"
)

// Loader supplies the raw source table.
type Loader interface {
	Load() (*models.RawTable, error)
}

// Analyzer cleans and reshapes source rows.
type Analyzer interface {
	Clean(raw *models.RawTable) []*models.PriceRecord
	Features(records []*models.PriceRecord) []*models.PriceRecord
	MeltPropertyPrices(records []*models.PriceRecord) []models.TidyPriceRow
	AverageSeries(records []*models.PriceRecord) []models.TidyPriceRow
	AveragePriceByRegion(records []*models.PriceRecord) []models.RegionAverage
	RollingMean(rows []models.TidyPriceRow, window int) []models.RollingPoint
}

// Predictor fits a model on time index → price and forecasts from it.
type Predictor interface {
	Train(x, y []float64) error
	Validate(x, y []float64) (models.Metrics, error)
	Forecast(x []float64) ([]float64, error)
}

// Visualizer renders charts that the controller saves as artifacts.
type Visualizer interface {
	TrendLine(points []models.TrendPoint, title string) (*services.Figure, error)
	BarGrowth(points []models.TrendPoint, title string) (*services.Figure, error)
}

// Reporter builds and exports the run report.
type Reporter interface {
	Compile(summary models.Summary, figures []string, metrics models.Metrics, forecasts []models.ForecastRow) error
	Export(path string) (string, error)
	ExportCSV(forecasts []models.ForecastRow, path string) (string, error)
}

var (
	_ Analyzer   = (*services.Analyzer)(nil)
	_ Predictor  = (*services.Predictor)(nil)
	_ Visualizer = (*services.Visualizer)(nil)
	_ Reporter   = (*services.Reporter)(nil)
)
