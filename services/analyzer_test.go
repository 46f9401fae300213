package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpi-forecast/models"
	"hpi-forecast/utils"
)

func newTestLogger() *utils.Logger { return utils.NewNopLogger() }

func f(v float64) *float64 { return &v }

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

// baseTable mirrors a few UK HPI rows; the third has no Date and no AveragePrice.
func baseTable() *models.RawTable {
	return &models.RawTable{
		Columns: []string{"Date", "RegionName", "AveragePrice", "DetachedPrice", "SemiDetachedPrice", "TerracedPrice", "FlatPrice"},
		Records: []*models.PriceRecord{
			{Date: month(2024, time.January), RegionName: "London", AveragePrice: f(500000),
				DetachedPrice: f(800000), SemiDetachedPrice: f(600000), TerracedPrice: f(550000), FlatPrice: f(450000)},
			{Date: month(2024, time.February), RegionName: " London ", AveragePrice: f(505000),
				DetachedPrice: f(810000), SemiDetachedPrice: f(605000), TerracedPrice: f(552000), FlatPrice: f(452000)},
			{RegionName: "Manchester",
				DetachedPrice: f(400000), SemiDetachedPrice: f(300000), TerracedPrice: f(250000), FlatPrice: f(200000)},
		},
	}
}

func TestCleanDropsMissingAndTrimsRegion(t *testing.T) {
	a := NewAnalyzer(newTestLogger())
	raw := baseTable()

	clean := a.Clean(raw)

	require.Len(t, clean, 2)
	assert.Equal(t, "London", clean[0].RegionName)
	assert.Equal(t, "London", clean[1].RegionName)
	assert.Equal(t, " London ", raw.Records[1].RegionName, "input must not be modified")
}

func TestCleanDropsExactlyTheIncompleteRows(t *testing.T) {
	tests := []struct {
		name string
		rec  *models.PriceRecord
		keep bool
	}{
		{"complete", &models.PriceRecord{Date: month(2023, time.May), RegionName: "Leeds", AveragePrice: f(1)}, true},
		{"no date", &models.PriceRecord{RegionName: "Leeds", AveragePrice: f(1)}, false},
		{"no price", &models.PriceRecord{Date: month(2023, time.May), RegionName: "Leeds"}, false},
		{"neither", &models.PriceRecord{RegionName: "Leeds"}, false},
		{"blank region kept", &models.PriceRecord{Date: month(2023, time.May), RegionName: "  ", AveragePrice: f(1)}, true},
	}

	a := NewAnalyzer(newTestLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := &models.RawTable{Records: []*models.PriceRecord{tt.rec, {Date: month(2023, time.June), RegionName: "York", AveragePrice: f(2)}}}
			clean := a.Clean(raw)
			if tt.keep {
				assert.Len(t, clean, 2)
			} else {
				assert.Len(t, clean, 1)
			}
		})
	}
}

func TestFeaturesAddsYearMonth(t *testing.T) {
	a := NewAnalyzer(newTestLogger())
	feats := a.Features(a.Clean(baseTable()))

	require.Len(t, feats, 2)
	assert.Equal(t, 2024, feats[0].Year)
	assert.Equal(t, 1, feats[0].Month)
	assert.Equal(t, 2, feats[1].Month)
}

func TestMeltPropertyPricesProducesLongTable(t *testing.T) {
	a := NewAnalyzer(newTestLogger())
	records := baseTable().Records

	long := a.MeltPropertyPrices(records)

	// every base row has all four typed prices, including the one cleaning would drop
	require.Len(t, long, 12)

	types := map[models.PropertyType]int{}
	for _, row := range long {
		types[row.PropertyType]++
	}
	assert.Equal(t, map[models.PropertyType]int{
		models.Detached: 3, models.SemiDetached: 3, models.Terraced: 3, models.Flat: 3,
	}, types)

	assert.Equal(t, models.TidyPriceRow{
		Date: month(2024, time.January), RegionName: "London", PropertyType: models.Detached, Price: 800000,
	}, long[0])
}

func TestMeltPropertyPricesSkipsMissingPrices(t *testing.T) {
	a := NewAnalyzer(newTestLogger())
	records := []*models.PriceRecord{
		{Date: month(2024, time.January), RegionName: "York", AveragePrice: f(1), DetachedPrice: f(10), FlatPrice: f(4)},
		{Date: month(2024, time.February), RegionName: "York", AveragePrice: f(1), TerracedPrice: f(7)},
	}

	long := a.MeltPropertyPrices(records)

	require.Len(t, long, 3)
	assert.Equal(t, models.Detached, long[0].PropertyType)
	assert.Equal(t, models.Terraced, long[1].PropertyType)
	assert.Equal(t, models.Flat, long[2].PropertyType)
}

func TestAverageSeriesUsesAveragePrice(t *testing.T) {
	a := NewAnalyzer(newTestLogger())
	rows := a.AverageSeries(a.Clean(baseTable()))

	require.Len(t, rows, 2)
	assert.Equal(t, 500000.0, rows[0].Price)
	assert.Empty(t, rows[0].PropertyType)
}

func TestAveragePriceByRegionDescending(t *testing.T) {
	a := NewAnalyzer(newTestLogger())
	records := []*models.PriceRecord{
		{RegionName: "Leeds", AveragePrice: f(200)},
		{RegionName: "London", AveragePrice: f(500)},
		{RegionName: "London", AveragePrice: f(700)},
		{RegionName: "Bath", AveragePrice: f(200)},
		{RegionName: "Hull"},
	}

	got := a.AveragePriceByRegion(records)

	require.Len(t, got, 3)
	assert.Equal(t, "London", got[0].Region)
	assert.Equal(t, 600.0, got[0].AveragePrice)
	assert.Equal(t, 2, got[0].Observations)
	assert.Equal(t, "Bath", got[1].Region, "ties ordered by name")
	assert.Equal(t, "Leeds", got[2].Region)
}

func TestRollingMeanPerGroup(t *testing.T) {
	a := NewAnalyzer(newTestLogger())

	var rows []models.TidyPriceRow
	for i := 0; i < 5; i++ {
		d := month(2024, time.January).AddDate(0, i, 0)
		rows = append(rows,
			models.TidyPriceRow{Date: d, RegionName: "London", PropertyType: models.Flat, Price: float64(i + 1)},
			models.TidyPriceRow{Date: d, RegionName: "London", PropertyType: models.Detached, Price: float64(10 * (i + 1))},
		)
	}

	got := a.RollingMean(rows, 3)
	require.Len(t, got, 10)

	var flat, detached []float64
	for _, p := range got {
		if p.PropertyType == models.Flat {
			flat = append(flat, p.RollingMean)
		} else {
			detached = append(detached, p.RollingMean)
		}
	}

	assert.Equal(t, []float64{1, 1.5, 2, 3, 4}, flat)
	assert.Equal(t, []float64{10, 15, 20, 30, 40}, detached)
}

func TestRollingMeanSortsByDateAndDefaultsWindow(t *testing.T) {
	a := NewAnalyzer(newTestLogger())
	rows := []models.TidyPriceRow{
		{Date: month(2024, time.March), RegionName: "York", Price: 30},
		{Date: month(2024, time.January), RegionName: "York", Price: 10},
		{Date: month(2024, time.February), RegionName: "York", Price: 20},
	}

	got := a.RollingMean(rows, 0)

	require.Len(t, got, 3)
	assert.Equal(t, month(2024, time.January), got[0].Date)
	assert.Equal(t, 10.0, got[0].RollingMean)
	assert.Equal(t, 15.0, got[1].RollingMean)
	assert.Equal(t, 20.0, got[2].RollingMean)
}
