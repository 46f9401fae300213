package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hpi-forecast/config"
	"hpi-forecast/utils"
)

var (
	cfg    *config.Config
	logger *utils.Logger

	dataPath     string
	artifactsDir string
)

var rootCmd = &cobra.Command{
	Use:   "hpi-forecast",
	Short: "UK house price index forecasting pipeline",
	Long: `Forecast UK HPI prices for a region and property type.

Loads the UK HPI CSV, cleans and reshapes it, fits a linear trend on the
selected monthly series, validates on the most recent months and writes a
trend chart, an HTML report and a forecast CSV under the artifacts directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("data") {
			cfg.DataPath = dataPath
		}
		if cmd.Flags().Changed("out") {
			cfg.ArtifactsDir = artifactsDir
		}
		logger.SetLevel(cfg.LogLevel)
	},
}

func init() {
	cfg = config.Load()
	logger = utils.NewLogger()

	rootCmd.PersistentFlags().StringVar(&dataPath, "data", cfg.DataPath, "path to the UK HPI CSV file")
	rootCmd.PersistentFlags().StringVar(&artifactsDir, "out", cfg.ArtifactsDir, "artifacts output directory")

	rootCmd.AddCommand(runCmd, batchCmd, regionsCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
