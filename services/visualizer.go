package services

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"hpi-forecast/models"
	"hpi-forecast/utils"
)

// ErrNoChartData is returned when a chart is requested for an empty frame.
var ErrNoChartData = errors.New("visualizer: no data to plot")

const (
	topBarRegions = 10
	axisDate      = "Date"
	axisPrice     = "Price (£)"
	axisRegion    = "Region"
	axisAvgPrice  = "Avg Price (£)"
)

// Figure is a rendered chart that has not been written anywhere yet.
type Figure struct {
	Plot *plot.Plot
	// Labels are the legend entries (line charts) or bar labels, in draw order.
	Labels []string
	Width  vg.Length
	Height vg.Length
}

// Save writes the figure to path; the extension picks the format (png, svg, pdf).
func (f *Figure) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("visualizer: create output dir: %w", err)
	}
	if err := f.Plot.Save(f.Width, f.Height, path); err != nil {
		return fmt.Errorf("visualizer: save %s: %w", path, err)
	}
	return nil
}

// Visualizer draws price charts with gonum/plot.
type Visualizer struct {
	logger *utils.Logger
	Width  vg.Length
	Height vg.Length
}

// NewVisualizer creates a Visualizer producing 8x5 inch figures.
func NewVisualizer(logger *utils.Logger) *Visualizer {
	return &Visualizer{logger: logger, Width: 8 * vg.Inch, Height: 5 * vg.Inch}
}

// TrendLine draws one line per region, x=Date and y=Price, sorted by date
// within each region. Regions are drawn in name order.
func (v *Visualizer) TrendLine(points []models.TrendPoint, title string) (*Figure, error) {
	if len(points) == 0 {
		return nil, ErrNoChartData
	}

	groups := make(map[string][]models.TrendPoint)
	for _, pt := range points {
		groups[pt.Region] = append(groups[pt.Region], pt)
	}
	regions := make([]string, 0, len(groups))
	for r := range groups {
		regions = append(regions, r)
	}
	sort.Strings(regions)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = axisDate
	p.Y.Label.Text = axisPrice
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	for i, region := range regions {
		sub := groups[region]
		sort.SliceStable(sub, func(a, b int) bool { return sub[a].Date.Before(sub[b].Date) })

		xys := make(plotter.XYs, len(sub))
		for j, pt := range sub {
			xys[j].X = float64(pt.Date.Unix())
			xys[j].Y = pt.Price
		}

		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("visualizer: line for %s: %w", region, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)

		p.Add(line)
		p.Legend.Add(region, line)
	}

	v.logger.Debug("[visualizer] Trend chart %q: %d regions, %d points", title, len(regions), len(points))
	return &Figure{Plot: p, Labels: regions, Width: v.Width, Height: v.Height}, nil
}

// BarGrowth draws the ten regions with the highest mean price as bars,
// highest first, with x tick labels rotated 45 degrees.
func (v *Visualizer) BarGrowth(points []models.TrendPoint, title string) (*Figure, error) {
	if len(points) == 0 {
		return nil, ErrNoChartData
	}

	type acc struct {
		sum float64
		n   int
	}
	byRegion := make(map[string]*acc)
	for _, pt := range points {
		g, ok := byRegion[pt.Region]
		if !ok {
			g = &acc{}
			byRegion[pt.Region] = g
		}
		g.sum += pt.Price
		g.n++
	}

	avgs := make([]models.RegionAverage, 0, len(byRegion))
	for region, g := range byRegion {
		avgs = append(avgs, models.RegionAverage{Region: region, AveragePrice: g.sum / float64(g.n), Observations: g.n})
	}
	sort.Slice(avgs, func(i, j int) bool {
		if avgs[i].AveragePrice != avgs[j].AveragePrice {
			return avgs[i].AveragePrice > avgs[j].AveragePrice
		}
		return avgs[i].Region < avgs[j].Region
	})
	if len(avgs) > topBarRegions {
		avgs = avgs[:topBarRegions]
	}

	labels := make([]string, len(avgs))
	heights := make(plotter.Values, len(avgs))
	for i, a := range avgs {
		labels[i] = a.Region
		heights[i] = a.AveragePrice
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = axisRegion
	p.Y.Label.Text = axisAvgPrice

	bars, err := plotter.NewBarChart(heights, vg.Points(20))
	if err != nil {
		return nil, fmt.Errorf("visualizer: bar chart: %w", err)
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = vg.Length(0)

	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter

	return &Figure{Plot: p, Labels: labels, Width: v.Width, Height: v.Height}, nil
}
