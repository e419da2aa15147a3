package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/aristath/rotor/internal/backtest"
)

// SaveEquityChart renders the growth of $100 through the portfolio and the
// benchmark to a date-stamped PNG and returns its path.
func (r *Reporter) SaveEquityChart(events []backtest.RebalanceEvent) (string, error) {
	if len(events) == 0 {
		return "", fmt.Errorf("no events to chart")
	}

	portfolio, benchmark := backtest.EquityCurve(events)

	p := plot.New()
	p.Title.Text = "Growth of $100"
	p.X.Label.Text = "Period"
	p.Y.Label.Text = "Value"
	p.Legend.Top = true
	p.Legend.Left = true

	toPoints := func(curve []float64) plotter.XYs {
		pts := make(plotter.XYs, len(curve)+1)
		pts[0] = plotter.XY{X: 0, Y: 100}
		for i, v := range curve {
			pts[i+1] = plotter.XY{X: float64(i + 1), Y: v * 100}
		}
		return pts
	}

	if err := plotutil.AddLines(p,
		"Strategy", toPoints(portfolio),
		"Benchmark", toPoints(benchmark),
	); err != nil {
		return "", fmt.Errorf("failed to build equity chart: %w", err)
	}

	path := r.stampedPath("equity", "png")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return "", fmt.Errorf("failed to save equity chart: %w", err)
	}

	r.log.Info().Str("path", path).Msg("Chart written")
	return path, nil
}
