package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aristath/rotor/internal/backtest"
	"github.com/aristath/rotor/internal/reporting"
)

func newBacktestCmd() *cobra.Command {
	var noChart bool

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Simulate the rotation strategy over history",
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

			sim := backtest.NewSimulator(&app.cfg, app.log)
			result, err := sim.Run(ctx, univ, order, benchmark)
			if err != nil {
				return err
			}
			summary := backtest.ComputeSummary(result.Events)

			reporter := reporting.NewReporter(os.Stdout, app.cfg.OutputDir, app.log)
			if err := reporter.PrintSummary(summary); err != nil {
				return err
			}
			if _, err := reporter.SaveSummaryJSON(summary); err != nil {
				return err
			}
			if _, err := reporter.SaveEventsCSV(result.Events); err != nil {
				return err
			}
			if !noChart {
				if _, err := reporter.SaveEquityChart(result.Events); err != nil {
					return err
				}
			}

			runsDB, err := openRunStore(app.cfg)
			if err != nil {
				return err
			}
			defer runsDB.Close()

			store, err := reporting.NewRunStore(runsDB)
			if err != nil {
				return err
			}
			id, err := store.Save(app.cfg.Benchmark, summary, result)
			if err != nil {
				return err
			}
			app.log.Info().Str("run_id", id).Msg("Run persisted")
			return nil
		},
	}

	cmd.Flags().IntVar(&flagTopN, "top", 0, "number of symbols to hold")
	cmd.Flags().Float64Var(&flagTxCostBps, "tx-cost-bps", 0, "flat transaction cost per rebalance in basis points")
	cmd.Flags().BoolVar(&noChart, "no-chart", false, "skip the equity curve PNG")

	return cmd
}
