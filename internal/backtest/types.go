package backtest

import "time"

// RebalanceEvent records one simulated period. The timeline is append-only
// and ordered; one event per period, dated at the period's realize boundary.
type RebalanceEvent struct {
	Date            time.Time `json:"date"`
	PortfolioReturn float64   `json:"portfolio_return"`
	BenchmarkReturn float64   `json:"benchmark_return"`
	InCash          bool      `json:"in_cash"`
	Selected        []string  `json:"selected"`
	NumSelected     int       `json:"num_selected"`
}

// Exclusion names one symbol dropped from a period's ranking and why.
type Exclusion struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// PeriodAudit lists the symbols excluded at one decision boundary. Kept so a
// run's selection can be reproduced and debugged after the fact.
type PeriodAudit struct {
	Date     time.Time   `json:"date"`
	Excluded []Exclusion `json:"excluded,omitempty"`
}

// Result is the full output of one simulation run.
type Result struct {
	Events []RebalanceEvent `json:"events"`
	Audits []PeriodAudit    `json:"audits,omitempty"`
}
