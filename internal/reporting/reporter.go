// Package reporting renders backtest and screen results to the console and
// to files, and persists run history.
package reporting

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/rotor/internal/backtest"
	"github.com/aristath/rotor/internal/screen"
)

// Reporter writes human-readable tables to out and machine-readable files
// under dir.
type Reporter struct {
	out io.Writer
	dir string
	now func() time.Time
	log zerolog.Logger
}

// NewReporter creates a reporter writing tables to out and files under dir.
func NewReporter(out io.Writer, dir string, log zerolog.Logger) *Reporter {
	return &Reporter{
		out: out,
		dir: dir,
		now: time.Now,
		log: log.With().Str("component", "reporter").Logger(),
	}
}

// PrintSummary renders the performance summary as an aligned table.
func (r *Reporter) PrintSummary(s backtest.Summary) error {
	w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Period\t%s .. %s (%d periods, %.2f years)\n", s.StartDate, s.EndDate, s.NPeriods, s.Years)
	fmt.Fprintf(w, "Total return\t%s\n", pct(s.TotalReturn))
	fmt.Fprintf(w, "CAGR\t%s\n", pct(s.CAGR))
	fmt.Fprintf(w, "Annualized volatility\t%s\n", pct(s.AnnualizedVolatility))
	fmt.Fprintf(w, "Sharpe ratio\t%.2f\n", s.SharpeRatio)
	fmt.Fprintf(w, "Max drawdown\t%s\n", pct(s.MaxDrawdown))
	fmt.Fprintf(w, "Win rate\t%s\n", pct(s.WinRate))
	fmt.Fprintf(w, "Best period\t%s\n", pct(s.BestPeriod))
	fmt.Fprintf(w, "Worst period\t%s\n", pct(s.WorstPeriod))
	fmt.Fprintf(w, "Periods in cash\t%s\n", pct(s.PctPeriodsInCash))
	fmt.Fprintf(w, "Benchmark total return\t%s\n", pct(s.BenchmarkTotalReturn))
	fmt.Fprintf(w, "Benchmark CAGR\t%s\n", pct(s.BenchmarkCAGR))
	fmt.Fprintf(w, "Outperformance\t%s\n", pct(s.Outperformance))
	return w.Flush()
}

// PrintScreen renders the ranked screen as an aligned table, followed by the
// equal-weight snapshot of the top entries and aggregate statistics.
func (r *Reporter) PrintScreen(res *screen.Result, topN int) error {
	fmt.Fprintf(r.out, "Screen as of %s, regime: %s\n\n", res.AsOf.Format(time.DateOnly), res.Regime)

	w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSYMBOL\tSCORE\tMOM 6M\tMOM 12M\tVOL\tDD\tTREND\tREL STR\tPRICE")
	for _, e := range res.Entries {
		trend := "-"
		if e.AboveLongMA {
			trend = "up"
		}
		fmt.Fprintf(w, "%d\t%s\t%.3f\t%s\t%s\t%s\t%s\t%s\t%s\t%.2f\n",
			e.Rank, e.Symbol, e.Score,
			pct(e.Momentum6M), pct(e.Momentum12M), pct(e.Volatility), pct(e.MaxDrawdown),
			trend, pct(e.RelativeStrength), e.CurrentPrice)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if snapshot := res.Snapshot(topN); len(snapshot) > 0 {
		fmt.Fprintf(r.out, "\nEqual-weight portfolio (top %d):\n", len(snapshot))
		for _, p := range snapshot {
			fmt.Fprintf(r.out, "  %-6s %s\n", p.Symbol, pct(p.Weight))
		}
	}

	if stats := res.Stats(); len(res.Entries) > 0 {
		fmt.Fprintf(r.out, "\nAvg momentum 6m/12m: %s / %s, avg volatility: %s, above long MA: %s\n",
			pct(stats.AvgMomentum6M), pct(stats.AvgMomentum12M),
			pct(stats.AvgVolatility), pct(stats.PctAboveLongMA))
		fmt.Fprintf(r.out, "Top score: %.3f, median score: %.3f\n", stats.TopScore, stats.MedianScore)
	}

	if len(res.Excluded) > 0 {
		fmt.Fprintf(r.out, "\nExcluded (insufficient data): %s\n", strings.Join(res.Excluded, ", "))
	}
	return nil
}

// SaveSummaryJSON writes the summary to a date-stamped JSON file and returns
// its path.
func (r *Reporter) SaveSummaryJSON(s backtest.Summary) (string, error) {
	path := r.stampedPath("summary", "json")
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := r.writeFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// SaveEventsCSV writes the period timeline to a date-stamped CSV file.
func (r *Reporter) SaveEventsCSV(events []backtest.RebalanceEvent) (string, error) {
	path := r.stampedPath("periods", "csv")

	rows := [][]string{{"date", "portfolio_return", "benchmark_return", "in_cash", "num_selected", "selected"}}
	for _, e := range events {
		rows = append(rows, []string{
			e.Date.Format(time.DateOnly),
			formatFloat(e.PortfolioReturn),
			formatFloat(e.BenchmarkReturn),
			strconv.FormatBool(e.InCash),
			strconv.Itoa(e.NumSelected),
			strings.Join(e.Selected, " "),
		})
	}
	return path, r.writeCSV(path, rows)
}

// SaveScreenCSV writes the ranked screen to a date-stamped CSV file.
func (r *Reporter) SaveScreenCSV(res *screen.Result) (string, error) {
	path := r.stampedPath("screen", "csv")

	rows := [][]string{{"rank", "symbol", "score", "momentum_6m", "momentum_12m",
		"volatility", "max_drawdown", "above_long_ma", "relative_strength", "current_price"}}
	for _, e := range res.Entries {
		rows = append(rows, []string{
			strconv.Itoa(e.Rank),
			e.Symbol,
			formatFloat(e.Score),
			formatFloat(e.Momentum6M),
			formatFloat(e.Momentum12M),
			formatFloat(e.Volatility),
			formatFloat(e.MaxDrawdown),
			strconv.FormatBool(e.AboveLongMA),
			formatFloat(e.RelativeStrength),
			formatFloat(e.CurrentPrice),
		})
	}
	return path, r.writeCSV(path, rows)
}

func (r *Reporter) stampedPath(kind, ext string) string {
	stamp := r.now().UTC().Format("20060102_150405")
	return filepath.Join(r.dir, fmt.Sprintf("%s_%s.%s", kind, stamp, ext))
}

func (r *Reporter) writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	r.log.Info().Str("path", path).Msg("Report written")
	return nil
}

func (r *Reporter) writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	r.log.Info().Str("path", path).Msg("Report written")
	return nil
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
