package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"hpi-forecast/models"
)

const (
	SheetForecasts = "Forecasts"
	SheetSeries    = "Series"
)

var seriesHeader = []interface{}{"Date", "Region", "PropertyType", "Price", "RollingMean12"}

// WriteWorkbook saves forecasts and the observed series (with its rolling
// mean) as two sheets of an .xlsx file at path.
func WriteWorkbook(path string, forecasts []models.ForecastRow, series []models.RollingPoint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("xlsx: create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetForecasts); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetSeries); err != nil {
		return fmt.Errorf("xlsx: add sheet: %w", err)
	}

	header := make([]interface{}, len(ForecastHeader))
	for i, h := range ForecastHeader {
		header[i] = h
	}
	if err := setRow(f, SheetForecasts, 1, header); err != nil {
		return err
	}
	for i, r := range forecasts {
		row := []interface{}{r.Date.Format(DateLayout), r.Region, string(r.PropertyType), round2(r.PredictedPrice)}
		if err := setRow(f, SheetForecasts, i+2, row); err != nil {
			return err
		}
	}

	if err := setRow(f, SheetSeries, 1, seriesHeader); err != nil {
		return err
	}
	for i, p := range series {
		row := []interface{}{p.Date.Format(DateLayout), p.RegionName, string(p.PropertyType), round2(p.Price), round2(p.RollingMean)}
		if err := setRow(f, SheetSeries, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx: save %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("xlsx: cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("xlsx: write %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
