package models

import "time"

// PropertyType is a housing category with its own price column in the
// wide-format UK HPI file.
type PropertyType string

const (
	Detached     PropertyType = "Detached"
	SemiDetached PropertyType = "SemiDetached"
	Terraced     PropertyType = "Terraced"
	Flat         PropertyType = "Flat"
)

// Column names used by the UK HPI source file.
const (
	ColDate              = "Date"
	ColRegionName        = "RegionName"
	ColAveragePrice      = "AveragePrice"
	ColDetachedPrice     = "DetachedPrice"
	ColSemiDetachedPrice = "SemiDetachedPrice"
	ColTerracedPrice     = "TerracedPrice"
	ColFlatPrice         = "FlatPrice"
)

// RequiredColumns must be present in every input file.
var RequiredColumns = []string{ColDate, ColRegionName, ColAveragePrice}

// PropertyTypeColumns lists the per-type price columns in melt order.
var PropertyTypeColumns = []struct {
	Column string
	Type   PropertyType
}{
	{ColDetachedPrice, Detached},
	{ColSemiDetachedPrice, SemiDetached},
	{ColTerracedPrice, Terraced},
	{ColFlatPrice, Flat},
}

// PriceRecord is one row of the source file. Nil price pointers are missing
// cells; a zero Date is a missing date. Year and Month are filled in by the
// feature step and are zero before it.
type PriceRecord struct {
	Date         time.Time
	RegionName   string
	AveragePrice *float64

	DetachedPrice     *float64
	SemiDetachedPrice *float64
	TerracedPrice     *float64
	FlatPrice         *float64

	Year  int
	Month int
}

// TypePrice returns the price column for pt, or nil when the cell is missing.
func (r *PriceRecord) TypePrice(pt PropertyType) *float64 {
	switch pt {
	case Detached:
		return r.DetachedPrice
	case SemiDetached:
		return r.SemiDetachedPrice
	case Terraced:
		return r.TerracedPrice
	case Flat:
		return r.FlatPrice
	}
	return nil
}

// RawTable is the loader output: the header as read plus every data row.
type RawTable struct {
	Columns []string
	Records []*PriceRecord
}

// Len returns the number of data rows.
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// TidyPriceRow is the long-format reshaping of the per-type price columns.
// PropertyType is empty for rows derived from AveragePrice.
type TidyPriceRow struct {
	Date         time.Time
	RegionName   string
	PropertyType PropertyType
	Price        float64
}

// SeriesPoint is one observation of a selected series with its time index.
type SeriesPoint struct {
	TidyPriceRow
	T int
}

// RollingPoint carries a trailing moving average alongside the observation.
type RollingPoint struct {
	TidyPriceRow
	RollingMean float64
}

// TrendPoint is the chart input: one price per region and date.
type TrendPoint struct {
	Date   time.Time
	Region string
	Price  float64
}

// RegionAverage is the mean AveragePrice of one region.
type RegionAverage struct {
	Region       string
	AveragePrice float64
	Observations int
}

// Metrics holds validation errors. Both are nil when no holdout was available.
type Metrics struct {
	MAE  *float64 `json:"MAE"`
	RMSE *float64 `json:"RMSE"`
}

// Available reports whether validation produced numbers.
func (m Metrics) Available() bool {
	return m.MAE != nil && m.RMSE != nil
}

// ForecastRow is one predicted month.
type ForecastRow struct {
	Date           time.Time
	Region         string
	PropertyType   PropertyType
	PredictedPrice float64
}

// Summary is the top-line description of a run.
type Summary struct {
	RowsLoaded   int     `json:"rows_loaded"`
	RowsClean    int     `json:"rows_clean"`
	Region       string  `json:"region"`
	PropertyType *string `json:"property_type"`
}

// RunResult describes everything a successful run produced.
type RunResult struct {
	RunID      string
	Summary    Summary
	Metrics    Metrics
	Forecasts  []ForecastRow
	Series     []RollingPoint
	ChartPath  string
	ReportPath string
	CSVPath    string
	XLSXPath   string
	PDFPath    string
}

// Artifacts returns the paths of every file the run wrote, in write order.
func (r *RunResult) Artifacts() []string {
	var out []string
	for _, p := range []string{r.ChartPath, r.ReportPath, r.CSVPath, r.XLSXPath, r.PDFPath} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
