package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"hpi-forecast/models"
	"hpi-forecast/services"
	"hpi-forecast/storage"
	"hpi-forecast/utils"
)

// Artifact file names written under Options.ArtifactsDir.
const (
	TrendChartFile   = "trend.png"
	ReportFile       = "report.html"
	ForecastCSVFile  = "forecasts.csv"
	ForecastXLSXFile = "forecasts.xlsx"
	ReportPDFFile    = "report.pdf"
	RegionChartFile  = "region_averages.png"

	DefaultHoldoutPoints  = 6
	DefaultForecastMonths = 6
)

// Deps are the collaborators a Controller drives. Store and Renderer are
// optional.
type Deps struct {
	Loader     Loader
	Analyzer   Analyzer
	Predictor  Predictor
	Visualizer Visualizer
	Reporter   Reporter

	Store    storage.ForecastWriter
	Renderer storage.DocumentRenderer
}

// Options tune a Controller.
type Options struct {
	ArtifactsDir  string
	HoldoutPoints int
	RollingWindow int
	ExportXLSX    bool
}

// Request selects the series to model.
type Request struct {
	Region string
	// PropertyType is one of Detached, SemiDetached, Terraced, Flat, or
	// empty for the overall AveragePrice series.
	PropertyType   string
	ForecastMonths int
}

// Controller runs load → clean → select → train/validate → forecast →
// chart → report for a single request.
type Controller struct {
	deps   Deps
	opts   Options
	logger *utils.Logger
}

// NewController checks that every required collaborator is present.
func NewController(deps Deps, opts Options, logger *utils.Logger) (*Controller, error) {
	switch {
	case deps.Loader == nil:
		return nil, errors.New("pipeline: loader is required")
	case deps.Analyzer == nil:
		return nil, errors.New("pipeline: analyzer is required")
	case deps.Predictor == nil:
		return nil, errors.New("pipeline: predictor is required")
	case deps.Visualizer == nil:
		return nil, errors.New("pipeline: visualizer is required")
	case deps.Reporter == nil:
		return nil, errors.New("pipeline: reporter is required")
	}

	if opts.ArtifactsDir == "" {
		opts.ArtifactsDir = "artifacts"
	}
	if opts.HoldoutPoints < 1 {
		opts.HoldoutPoints = DefaultHoldoutPoints
	}
	if opts.RollingWindow < 1 {
		opts.RollingWindow = services.DefaultRollingWindow
	}

	return &Controller{deps: deps, opts: opts, logger: logger}, nil
}

// Run executes the pipeline. Errors from loading and selection abort before
// anything is written; later failures may leave earlier artifacts on disk.
func (c *Controller) Run(ctx context.Context, req Request) (*models.RunResult, error) {
	if req.ForecastMonths < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidHorizon, req.ForecastMonths)
	}

	runID := uuid.NewString()
	c.logger.Info("[pipeline] Run %s: region=%q property_type=%q months=%d",
		runID, req.Region, req.PropertyType, req.ForecastMonths)

	raw, err := c.deps.Loader.Load()
	if err != nil {
		return nil, err
	}

	clean := c.deps.Analyzer.Clean(raw)
	feats := c.deps.Analyzer.Features(clean)

	series, err := c.selectSeries(feats, req)
	if err != nil {
		return nil, err
	}
	c.logger.Info("[pipeline] Selected %d observations (%s → %s)", len(series),
		series[0].Date.Format(storage.DateLayout), series[len(series)-1].Date.Format(storage.DateLayout))

	x := make([]float64, len(series))
	y := make([]float64, len(series))
	for i, p := range series {
		x[i] = float64(p.T)
		y[i] = p.Price
	}

	split := len(series) - c.opts.HoldoutPoints
	if split < 1 {
		split = 1
	}
	xTrain, yTrain := x[:split], y[:split]
	xVal, yVal := x[split:], y[split:]

	if err := c.deps.Predictor.Train(xTrain, yTrain); err != nil {
		return nil, fmt.Errorf("pipeline: train: %w", err)
	}

	var metrics models.Metrics
	if len(xVal) > 0 {
		metrics, err = c.deps.Predictor.Validate(xVal, yVal)
		if err != nil {
			return nil, fmt.Errorf("pipeline: validate: %w", err)
		}
	} else {
		c.logger.Warn("[pipeline] No holdout points: metrics unavailable")
	}

	last := series[len(series)-1]
	xFuture := make([]float64, req.ForecastMonths)
	for i := range xFuture {
		xFuture[i] = float64(last.T + 1 + i)
	}
	preds, err := c.deps.Predictor.Forecast(xFuture)
	if err != nil {
		return nil, fmt.Errorf("pipeline: forecast: %w", err)
	}

	dates := FutureMonths(last.Date, req.ForecastMonths)
	forecasts := make([]models.ForecastRow, req.ForecastMonths)
	for i := range forecasts {
		forecasts[i] = models.ForecastRow{
			Date:           dates[i],
			Region:         req.Region,
			PropertyType:   models.PropertyType(req.PropertyType),
			PredictedPrice: preds[i],
		}
	}

	result := &models.RunResult{
		RunID:     runID,
		Metrics:   metrics,
		Forecasts: forecasts,
	}

	trend := make([]models.TrendPoint, len(series))
	tidy := make([]models.TidyPriceRow, len(series))
	for i, p := range series {
		trend[i] = models.TrendPoint{Date: p.Date, Region: p.RegionName, Price: p.Price}
		tidy[i] = p.TidyPriceRow
	}

	title := "Trend – " + req.Region
	if req.PropertyType != "" {
		title += " / " + req.PropertyType
	}
	fig, err := c.deps.Visualizer.TrendLine(trend, title)
	if err != nil {
		return nil, fmt.Errorf("pipeline: trend chart: %w", err)
	}
	result.ChartPath = c.artifact(TrendChartFile)
	if err := fig.Save(result.ChartPath); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	result.Summary = models.Summary{
		RowsLoaded: raw.Len(),
		RowsClean:  len(clean),
		Region:     req.Region,
	}
	if req.PropertyType != "" {
		pt := req.PropertyType
		result.Summary.PropertyType = &pt
	}

	if err := c.deps.Reporter.Compile(result.Summary, []string{result.ChartPath}, metrics, forecasts); err != nil {
		return nil, fmt.Errorf("pipeline: compile report: %w", err)
	}
	if result.ReportPath, err = c.deps.Reporter.Export(c.artifact(ReportFile)); err != nil {
		return nil, fmt.Errorf("pipeline: export report: %w", err)
	}
	if result.CSVPath, err = c.deps.Reporter.ExportCSV(forecasts, c.artifact(ForecastCSVFile)); err != nil {
		return nil, fmt.Errorf("pipeline: export csv: %w", err)
	}

	result.Series = c.deps.Analyzer.RollingMean(tidy, c.opts.RollingWindow)

	if c.opts.ExportXLSX {
		path := c.artifact(ForecastXLSXFile)
		if err := storage.WriteWorkbook(path, forecasts, result.Series); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		result.XLSXPath = path
	}

	if c.deps.Renderer != nil {
		path := c.artifact(ReportPDFFile)
		if err := c.deps.Renderer.Render(ctx, result.ReportPath, path); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		result.PDFPath = path
	}

	if c.deps.Store != nil {
		if err := c.deps.Store.WriteRun(ctx, result); err != nil {
			return nil, fmt.Errorf("pipeline: store run: %w", err)
		}
		c.logger.Info("[pipeline] Run %s stored (%d forecasts)", runID, len(forecasts))
	}

	for _, p := range result.Artifacts() {
		c.logger.Info("[pipeline] Saved: %s", p)
	}
	return result, nil
}

// Regions ranks regions by mean AveragePrice, renders the top ones as a bar
// chart and returns at most top entries (all when top < 1).
func (c *Controller) Regions(top int) ([]models.RegionAverage, string, error) {
	raw, err := c.deps.Loader.Load()
	if err != nil {
		return nil, "", err
	}
	clean := c.deps.Analyzer.Clean(raw)

	ranking := c.deps.Analyzer.AveragePriceByRegion(clean)
	if len(ranking) == 0 {
		return nil, "", ErrNoRegions
	}

	var points []models.TrendPoint
	for _, row := range c.deps.Analyzer.AverageSeries(clean) {
		points = append(points, models.TrendPoint{Date: row.Date, Region: row.RegionName, Price: row.Price})
	}
	fig, err := c.deps.Visualizer.BarGrowth(points, "Average price by region")
	if err != nil {
		return nil, "", fmt.Errorf("pipeline: region chart: %w", err)
	}
	chartPath := c.artifact(RegionChartFile)
	if err := fig.Save(chartPath); err != nil {
		return nil, "", fmt.Errorf("pipeline: %w", err)
	}

	if top > 0 && len(ranking) > top {
		ranking = ranking[:top]
	}
	c.logger.Info("[pipeline] Ranked %d regions, chart saved to %s", len(ranking), chartPath)
	return ranking, chartPath, nil
}

func (c *Controller) selectSeries(feats []*models.PriceRecord, req Request) ([]models.SeriesPoint, error) {
	var candidates []models.TidyPriceRow
	if req.PropertyType != "" {
		candidates = c.deps.Analyzer.MeltPropertyPrices(feats)
	} else {
		candidates = c.deps.Analyzer.AverageSeries(feats)
	}

	var series []models.SeriesPoint
	for _, row := range candidates {
		if row.RegionName != req.Region {
			continue
		}
		if req.PropertyType != "" && string(row.PropertyType) != req.PropertyType {
			continue
		}
		series = append(series, models.SeriesPoint{TidyPriceRow: row})
	}
	if len(series) == 0 {
		return nil, &SelectionError{Region: req.Region, PropertyType: req.PropertyType}
	}

	sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	for i := range series {
		series[i].T = i
	}
	return series, nil
}

func (c *Controller) artifact(name string) string {
	return filepath.Join(c.opts.ArtifactsDir, name)
}

// FutureMonths returns n first-of-month dates starting with the month after last.
func FutureMonths(last time.Time, n int) []time.Time {
	start := time.Date(last.Year(), last.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, i, 0)
	}
	return out
}
