package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/rotor/internal/reporting"
)

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List persisted backtest runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			runsDB, err := openRunStore(cfg)
			if err != nil {
				return err
			}
			defer runsDB.Close()

			store, err := reporting.NewRunStore(runsDB)
			if err != nil {
				return err
			}
			runs, err := store.List(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded yet.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tBENCHMARK\tPERIODS\tTOTAL RET\tCAGR\tSHARPE")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f%%\t%.2f%%\t%.2f\n",
					r.ID, r.CreatedAt.Format(time.DateOnly), r.Benchmark,
					r.Summary.NPeriods, r.Summary.TotalReturn*100, r.Summary.CAGR*100,
					r.Summary.SharpeRatio)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")

	return cmd
}
