package services

import (
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"hpi-forecast/models"
	"hpi-forecast/storage"
	"hpi-forecast/utils"
)

const (
	reportTitle      = "UK Housing Market – Summary"
	reportTableLimit = 10
)

// Reporter holds the HTML sections of the latest Compile and exports them
// along with the forecast table.
type Reporter struct {
	logger   *utils.Logger
	sections []string
}

// NewReporter creates an empty Reporter.
func NewReporter(logger *utils.Logger) *Reporter {
	return &Reporter{logger: logger}
}

// Sections returns the compiled sections in order.
func (r *Reporter) Sections() []string {
	out := make([]string, len(r.sections))
	copy(out, r.sections)
	return out
}

// Compile replaces any earlier sections with the title, metrics, summary, figure references and the
// first ten forecast rows. Figures are file names saved elsewhere; they are
// listed, not embedded.
func (r *Reporter) Compile(summary models.Summary, figures []string, metrics models.Metrics, forecasts []models.ForecastRow) error {
	metricsDump, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("reporter: encode metrics: %w", err)
	}
	summaryDump, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("reporter: encode summary: %w", err)
	}

	r.sections = append(r.sections[:0:0],
		"<h1>"+html.EscapeString(reportTitle)+"</h1>",
		"<h2>Key Metrics</h2>",
		"<pre>"+html.EscapeString(string(metricsDump))+"</pre>",
		"<h2>Top-line Stats</h2>",
		"<pre>"+html.EscapeString(string(summaryDump))+"</pre>",
		"<h2>Figures</h2>"+figuresParagraph(figures),
		"<h2>Forecasts</h2>",
		forecastTable(forecasts, reportTableLimit),
	)
	return nil
}

// Export writes the accumulated sections wrapped in a minimal HTML document
// and returns path.
func (r *Reporter) Export(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("reporter: create output dir: %w", err)
	}

	doc := "<html><head><meta charset=\"utf-8\"></head><body>" +
		strings.Join(r.sections, "\n") +
		"</body></html>"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		return "", fmt.Errorf("reporter: write %s: %w", path, err)
	}

	r.logger.Info("[reporter] Report written to %s (%d sections)", path, len(r.sections))
	return path, nil
}

// ExportCSV writes the full forecast table to path and returns path.
func (r *Reporter) ExportCSV(forecasts []models.ForecastRow, path string) (string, error) {
	if err := storage.WriteForecastCSV(path, forecasts); err != nil {
		return "", fmt.Errorf("reporter: %w", err)
	}
	r.logger.Info("[reporter] %d forecast rows written to %s", len(forecasts), path)
	return path, nil
}

func figuresParagraph(figures []string) string {
	if len(figures) == 0 {
		return "<p>See exported PNGs.</p>"
	}
	names := make([]string, len(figures))
	for i, fig := range figures {
		names[i] = html.EscapeString(filepath.Base(fig))
	}
	return "<p>See exported PNGs: " + strings.Join(names, ", ") + "</p>"
}

func forecastTable(rows []models.ForecastRow, limit int) string {
	if len(rows) > limit {
		rows = rows[:limit]
	}

	var b strings.Builder
	b.WriteString("<table border=\"1\" class=\"dataframe\">\n<thead><tr>")
	for _, h := range storage.ForecastHeader {
		b.WriteString("<th>" + h + "</th>")
	}
	b.WriteString("</tr></thead>\n<tbody>\n")
	for _, row := range rows {
		b.WriteString("<tr>")
		cells := storage.ForecastRecord(row)
		cells[len(cells)-1] = storage.FormatPrice(row.PredictedPrice)
		for _, cell := range cells {
			b.WriteString("<td>" + html.EscapeString(cell) + "</td>")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody>\n</table>")
	return b.String()
}
