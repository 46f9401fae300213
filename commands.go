package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"hpi-forecast/models"
	"hpi-forecast/pipeline"
	"hpi-forecast/services"
	"hpi-forecast/source/ukhpi"
	"hpi-forecast/storage"
	"hpi-forecast/utils"
)

var (
	region       string
	propertyType string
	months       int
	regionList   string
	topRegions   int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Forecast one region",
	Long: `Run the full pipeline for one region.

Without --property-type the overall AveragePrice series is modelled; with it
(Detached, SemiDetached, Terraced, Flat) the matching per-type series is used.`,
	RunE: runForecast,
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Forecast several regions concurrently",
	Long: `Run the pipeline once per region in --regions (comma separated).

Each region writes into its own sub-directory of the artifacts directory.
A failing region is reported and does not stop the others.`,
	RunE: runBatch,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the stored forecasts of one series",
	Long: `Print the forecasts last stored in Postgres for --region and
--property-type. Requires POSTGRES_ENABLED=true.`,
	RunE: runHistory,
}

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Rank regions by average price",
	RunE:  runRegions,
}

func init() {
	runCmd.Flags().StringVar(&region, "region", "", "region name as it appears in RegionName")
	runCmd.Flags().StringVar(&propertyType, "property-type", "", "Detached, SemiDetached, Terraced or Flat")
	runCmd.Flags().IntVar(&months, "months", 0, "forecast horizon in months (default FORECAST_MONTHS)")
	_ = runCmd.MarkFlagRequired("region")

	batchCmd.Flags().StringVar(&regionList, "regions", "", "comma separated region names")
	batchCmd.Flags().StringVar(&propertyType, "property-type", "", "Detached, SemiDetached, Terraced or Flat")
	batchCmd.Flags().IntVar(&months, "months", 0, "forecast horizon in months (default FORECAST_MONTHS)")
	_ = batchCmd.MarkFlagRequired("regions")

	historyCmd.Flags().StringVar(&region, "region", "", "region name as it appears in RegionName")
	historyCmd.Flags().StringVar(&propertyType, "property-type", "", "Detached, SemiDetached, Terraced or Flat")
	_ = historyCmd.MarkFlagRequired("region")

	regionsCmd.Flags().IntVar(&topRegions, "top", 0, "number of regions to list (default TOP_REGIONS)")
}

func horizon(cmd *cobra.Command) int {
	if cmd.Flags().Changed("months") {
		return months
	}
	return cfg.ForecastMonths
}

// newController wires the concrete collaborators for one run. The returned
// cleanup closes the Postgres store when one was opened.
func newController(dir string) (*pipeline.Controller, func(), error) {
	deps := pipeline.Deps{
		Loader:     ukhpi.New(cfg.DataPath, logger),
		Analyzer:   services.NewAnalyzer(logger),
		Predictor:  services.NewPredictor(logger),
		Visualizer: services.NewVisualizer(logger),
		Reporter:   services.NewReporter(logger),
	}
	cleanup := func() {}

	if cfg.RenderPDF {
		deps.Renderer = storage.NewPDFRenderer(cfg.ChromeBin, cfg.MaxRetries, logger)
	}
	if cfg.PostgresEnabled {
		retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, Logger: logger}
		store, err := storage.NewPostgresWriter(cfg.DSN(), retry)
		if err != nil {
			return nil, cleanup, err
		}
		deps.Store = store
		cleanup = func() {
			if err := store.Close(); err != nil {
				logger.Warn("[postgres] Close failed: %v", err)
			}
		}
	}

	ctrl, err := pipeline.NewController(deps, pipeline.Options{
		ArtifactsDir:  dir,
		HoldoutPoints: cfg.HoldoutPoints,
		RollingWindow: cfg.RollingWindow,
		ExportXLSX:    cfg.ExportXLSX,
	}, logger)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return ctrl, cleanup, nil
}

func runForecast(cmd *cobra.Command, args []string) error {
	ctrl, cleanup, err := newController(cfg.ArtifactsDir)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := ctrl.Run(cmd.Context(), pipeline.Request{
		Region:         region,
		PropertyType:   propertyType,
		ForecastMonths: horizon(cmd),
	})
	if err != nil {
		return describe(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run %s\n", res.RunID)
	for _, p := range res.Artifacts() {
		fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s\n", p)
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	var (
		mu       sync.Mutex
		cleanups []func()
	)
	defer func() {
		for _, c := range cleanups {
			c()
		}
	}()

	factory := func(dir string) (*pipeline.Controller, error) {
		ctrl, cleanup, err := newController(dir)
		if err != nil {
			return nil, err
		}
		mu.Lock()
		cleanups = append(cleanups, cleanup)
		mu.Unlock()
		return ctrl, nil
	}
	batch := pipeline.NewBatch(factory, cfg.ArtifactsDir, cfg.MaxConcurrency, logger)

	results := batch.Run(cmd.Context(), strings.Split(regionList, ","), propertyType, horizon(cmd))

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(cmd.OutOrStdout(), "%-30s FAILED  %v\n", r.Region, describe(r.Err))
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-30s OK      %s\n", r.Region, r.Result.ReportPath)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d regions failed", failed, len(results))
	}
	return nil
}

func runRegions(cmd *cobra.Command, args []string) error {
	ctrl, cleanup, err := newController(cfg.ArtifactsDir)
	if err != nil {
		return err
	}
	defer cleanup()

	top := topRegions
	if !cmd.Flags().Changed("top") {
		top = cfg.TopRegions
	}
	ranking, chart, err := ctrl.Regions(top)
	if err != nil {
		return describe(err)
	}

	out := cmd.OutOrStdout()
	for i, r := range ranking {
		fmt.Fprintf(out, "%3d. %-30s £%12s  (%d months)\n", i+1, r.Region, storage.FormatPrice(r.AveragePrice), r.Observations)
	}
	fmt.Fprintf(out, "Saved: %s\n", chart)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	if !cfg.PostgresEnabled {
		return errHistoryDisabled
	}
	retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, Logger: logger}
	store, err := storage.NewPostgresWriter(cfg.DSN(), retry)
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := store.FetchForecasts(cmd.Context(), region, propertyType)
	if err != nil {
		return err
	}
	printForecasts(cmd.OutOrStdout(), rows)
	return nil
}

var errHistoryDisabled = errors.New("history needs the forecast store: set POSTGRES_ENABLED=true")

func printForecasts(out io.Writer, rows []models.ForecastRow) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No stored forecasts.")
		return
	}
	for _, f := range rows {
		pt := string(f.PropertyType)
		if pt == "" {
			pt = "-"
		}
		fmt.Fprintf(out, "%s  %-30s %-12s £%12s\n", f.Date.Format(storage.DateLayout), f.Region, pt, storage.FormatPrice(f.PredictedPrice))
	}
}

// describe adds the input path to load failures so the CLI message is actionable.
func describe(err error) error {
	var loadErr *ukhpi.LoadError
	if errors.As(err, &loadErr) && errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w (set DATA_PATH or --data)", err)
	}
	return err
}
