package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aristath/rotor/internal/reporting"
	"github.com/aristath/rotor/internal/screen"
)

func newScreenCmd() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Rank the universe at the latest available date",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			univ, order, benchmark, err := app.loadData(ctx)
			if err != nil {
				return err
			}

			screener := screen.NewScreener(&app.cfg, app.log)
			result, err := screener.Run(ctx, univ, order, benchmark)
			if err != nil {
				return err
			}

			reporter := reporting.NewReporter(os.Stdout, app.cfg.OutputDir, app.log)
			if err := reporter.PrintScreen(result, app.cfg.TopN); err != nil {
				return err
			}
			if save {
				if _, err := reporter.SaveScreenCSV(result); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&flagTopN, "top", 0, "number of symbols to hold")
	cmd.Flags().Float64Var(&flagTxCostBps, "tx-cost-bps", 0, "flat transaction cost per rebalance in basis points")
	cmd.Flags().BoolVar(&save, "save", false, "also write the screen to a CSV file")

	return cmd
}
