package ukhpi

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"hpi-forecast/models"
	"hpi-forecast/utils"
)

// dateLayouts are tried in order for every Date cell. The published UK HPI
// file uses day-first dates; exports from other tools are usually ISO.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006",
}

// LoadError reports source data that is unreadable or structurally invalid.
type LoadError struct {
	Path    string
	Reason  string
	Missing []string
	Err     error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("load %s: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Err }

// Loader reads a UK HPI CSV file into a RawTable.
type Loader struct {
	path   string
	logger *utils.Logger
}

// New creates a Loader for the file at path.
func New(path string, logger *utils.Logger) *Loader {
	return &Loader{path: path, logger: logger}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string { return l.path }

// Load opens the configured file, validates its header and parses every row.
func (l *Loader) Load() (*models.RawTable, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Path: l.path, Reason: "file not found", Err: err}
		}
		return nil, &LoadError{Path: l.path, Reason: "cannot open file", Err: err}
	}
	defer f.Close()

	table, err := l.Read(f)
	if err != nil {
		return nil, err
	}

	l.logger.Info("[loader] Read %d rows (%d columns) from %s", table.Len(), len(table.Columns), l.path)
	return table, nil
}

// Read parses CSV content from r. Errors are *LoadError values carrying the
// loader's path.
func (l *Loader) Read(r io.Reader) (*models.RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Path: l.path, Reason: "file is empty"}
		}
		return nil, &LoadError{Path: l.path, Reason: "cannot read header", Err: err}
	}

	columns := make([]string, len(header))
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		columns[i] = name
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	if missing := missingColumns(index); len(missing) > 0 {
		return nil, &LoadError{
			Path:    l.path,
			Reason:  "Missing required columns: " + strings.Join(missing, ", "),
			Missing: missing,
		}
	}

	table := &models.RawTable{Columns: columns}
	var badDates int
	var firstBad string
	var firstBadLine int
	var badNumbers int

	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &LoadError{Path: l.path, Reason: fmt.Sprintf("malformed row at line %d", line), Err: err}
		}

		cell := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		rawDate := cell(models.ColDate)
		date, ok := parseDate(rawDate)
		if !ok {
			if badDates == 0 {
				firstBad, firstBadLine = rawDate, line
			}
			badDates++
			continue
		}

		rec := &models.PriceRecord{
			Date:       date,
			RegionName: rowValue(row, index[models.ColRegionName]),
		}
		rec.AveragePrice = parsePrice(cell(models.ColAveragePrice), &badNumbers)
		rec.DetachedPrice = parsePrice(cell(models.ColDetachedPrice), &badNumbers)
		rec.SemiDetachedPrice = parsePrice(cell(models.ColSemiDetachedPrice), &badNumbers)
		rec.TerracedPrice = parsePrice(cell(models.ColTerracedPrice), &badNumbers)
		rec.FlatPrice = parsePrice(cell(models.ColFlatPrice), &badNumbers)

		table.Records = append(table.Records, rec)
	}

	if badDates > 0 {
		return nil, &LoadError{
			Path: l.path,
			Reason: fmt.Sprintf("Invalid dates detected (%d rows, first at line %d: %q)",
				badDates, firstBadLine, firstBad),
		}
	}

	if badNumbers > 0 {
		l.logger.Warn("[loader] %d non-numeric price cells treated as missing", badNumbers)
	}

	return table, nil
}

func missingColumns(index map[string]int) []string {
	var missing []string
	for _, name := range models.RequiredColumns {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// rowValue returns the untrimmed cell; whitespace on RegionName is the
// cleaning step's job.
func rowValue(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parsePrice(s string, bad *int) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		*bad++
		return nil
	}
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
