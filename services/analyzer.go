package services

import (
	"sort"
	"strings"

	"hpi-forecast/models"
	"hpi-forecast/utils"
)

// DefaultRollingWindow is the trailing window used when none is given.
const DefaultRollingWindow = 12

// Analyzer cleans raw UK HPI rows and reshapes them for modelling.
type Analyzer struct {
	logger *utils.Logger
}

// NewAnalyzer creates an Analyzer with the given logger.
func NewAnalyzer(logger *utils.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Clean drops rows with a missing Date or AveragePrice and trims whitespace
// from RegionName. The input table is not modified.
func (a *Analyzer) Clean(raw *models.RawTable) []*models.PriceRecord {
	if raw == nil {
		return nil
	}

	result := make([]*models.PriceRecord, 0, len(raw.Records))
	for _, r := range raw.Records {
		if r == nil || r.Date.IsZero() || r.AveragePrice == nil {
			continue
		}
		rec := *r
		rec.RegionName = strings.TrimSpace(rec.RegionName)
		result = append(result, &rec)
	}

	a.logger.Info("[analyzer] Cleaned %d → %d rows (dropped %d)",
		raw.Len(), len(result), raw.Len()-len(result))
	return result
}

// Features returns copies of records with Year and Month derived from Date.
func (a *Analyzer) Features(records []*models.PriceRecord) []*models.PriceRecord {
	result := make([]*models.PriceRecord, 0, len(records))
	for _, r := range records {
		rec := *r
		rec.Year = rec.Date.Year()
		rec.Month = int(rec.Date.Month())
		result = append(result, &rec)
	}
	return result
}

// MeltPropertyPrices unpivots the per-type price columns into one row per
// (Date, RegionName, PropertyType). Rows are emitted column by column in
// Detached, SemiDetached, Terraced, Flat order; missing prices are skipped.
func (a *Analyzer) MeltPropertyPrices(records []*models.PriceRecord) []models.TidyPriceRow {
	result := make([]models.TidyPriceRow, 0, len(records)*len(models.PropertyTypeColumns))
	for _, col := range models.PropertyTypeColumns {
		for _, r := range records {
			price := r.TypePrice(col.Type)
			if price == nil {
				continue
			}
			result = append(result, models.TidyPriceRow{
				Date:         r.Date,
				RegionName:   r.RegionName,
				PropertyType: col.Type,
				Price:        *price,
			})
		}
	}

	a.logger.Debug("[analyzer] Melted %d rows → %d property-type rows", len(records), len(result))
	return result
}

// AverageSeries maps records onto tidy rows using AveragePrice as the price
// and an empty property type. Rows without an AveragePrice are skipped.
func (a *Analyzer) AverageSeries(records []*models.PriceRecord) []models.TidyPriceRow {
	result := make([]models.TidyPriceRow, 0, len(records))
	for _, r := range records {
		if r.AveragePrice == nil {
			continue
		}
		result = append(result, models.TidyPriceRow{
			Date:       r.Date,
			RegionName: r.RegionName,
			Price:      *r.AveragePrice,
		})
	}
	return result
}

// AveragePriceByRegion returns the mean AveragePrice per region, highest
// first. Ties are ordered by region name.
func (a *Analyzer) AveragePriceByRegion(records []*models.PriceRecord) []models.RegionAverage {
	type acc struct {
		sum float64
		n   int
	}
	byRegion := make(map[string]*acc)
	for _, r := range records {
		if r.AveragePrice == nil {
			continue
		}
		g, ok := byRegion[r.RegionName]
		if !ok {
			g = &acc{}
			byRegion[r.RegionName] = g
		}
		g.sum += *r.AveragePrice
		g.n++
	}

	result := make([]models.RegionAverage, 0, len(byRegion))
	for region, g := range byRegion {
		result = append(result, models.RegionAverage{
			Region:       region,
			AveragePrice: g.sum / float64(g.n),
			Observations: g.n,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].AveragePrice != result[j].AveragePrice {
			return result[i].AveragePrice > result[j].AveragePrice
		}
		return result[i].Region < result[j].Region
	})
	return result
}

// RollingMean computes a trailing moving average of Price over window
// observations (at least one) within each (RegionName, PropertyType) group.
// The output is ordered by Date; rows with equal dates keep input order.
// A window below 1 falls back to DefaultRollingWindow.
func (a *Analyzer) RollingMean(rows []models.TidyPriceRow, window int) []models.RollingPoint {
	if window < 1 {
		window = DefaultRollingWindow
	}

	sorted := make([]models.TidyPriceRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	type groupKey struct {
		region string
		pt     models.PropertyType
	}
	type state struct {
		values []float64
		sum    float64
	}
	groups := make(map[groupKey]*state)

	result := make([]models.RollingPoint, len(sorted))
	for i, row := range sorted {
		key := groupKey{row.RegionName, row.PropertyType}
		g, ok := groups[key]
		if !ok {
			g = &state{}
			groups[key] = g
		}

		g.values = append(g.values, row.Price)
		g.sum += row.Price
		if len(g.values) > window {
			g.sum -= g.values[0]
			g.values = g.values[1:]
		}

		result[i] = models.RollingPoint{
			TidyPriceRow: row,
			RollingMean:  g.sum / float64(len(g.values)),
		}
	}
	return result
}
