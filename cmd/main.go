package main

import (
	"fmt"
	"os"

	"allocator/internal/app"
	"allocator/internal/logger"

	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "allocator",
		Short: "Run a portfolio-construction backtest from a yaml config",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New()
			defer log.Sync()

			cfg, err := app.LoadBacktestConfig(configPath)
			if err != nil {
				return err
			}

			handler, err := app.NewBacktestFromConfig(cfg, log)
			if err != nil {
				return err
			}

			result, err := handler.Run(cmd.Context())
			if err != nil {
				return err
			}

			finalEquity := result.EquityCurve[len(result.EquityCurve)-1]
			log.Infow("backtest complete",
				"rebalances", len(result.EquityCurve),
				"finalDate", finalEquity.Date,
				"finalEquity", finalEquity.TotalEquity,
			)
			if result.Metrics != nil {
				log.Infow("performance metrics",
					"annualizedReturn", result.Metrics.AnnualizedReturn,
					"annualizedStdev", result.Metrics.AnnualizedStdev,
					"sharpeRatio", result.Metrics.SharpeRatio,
					"maxDrawdown", result.Metrics.MaxDrawdown,
				)
			}
			return nil
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "backtest.yaml", "path to the backtest yaml config")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
