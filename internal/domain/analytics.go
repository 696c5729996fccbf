package domain

// BacktestPoint is one row of a backtest: cumulative percent returns of the
// portfolio and the risk-free benchmark since the first row.
type BacktestPoint struct {
	Date      string  `json:"date"`
	Portfolio float64 `json:"portfolio"`
	Benchmark float64 `json:"benchmark"`
	Value     float64 `json:"value"`
}

// BacktestSummary holds scalar statistics of a backtest. Day returns and totals
// are percentages.
type BacktestSummary struct {
	BestDay        float64 `json:"best_day"`
	WorstDay       float64 `json:"worst_day"`
	WinRate        float64 `json:"win_rate"`
	TotalReturn    float64 `json:"total_return"`
	TotalBenchmark float64 `json:"total_benchmark"`
	ExcessReturn   float64 `json:"excess_return"`
	Days           int     `json:"days"`
}

// BacktestResult is a backtest series aligned 1:1 with its price rows.
type BacktestResult struct {
	Series  []BacktestPoint `json:"series"`
	Summary BacktestSummary `json:"summary"`
}

// DrawdownPoint is the percent decline from the running peak on one date.
type DrawdownPoint struct {
	Date        string  `json:"date"`
	DrawdownPct float64 `json:"drawdown_pct"`
}

// DatedValue is a generic dated scalar.
type DatedValue struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// RiskProfile holds tail-risk metrics of a reconstructed portfolio path.
// VaR95, CVaR95 and MaxDrawdown are fractions; the series are percentages.
type RiskProfile struct {
	VaR95             float64         `json:"var95"`
	CVaR95            float64         `json:"cvar95"`
	MaxDrawdown       float64         `json:"max_drawdown"`
	Volatility        float64         `json:"volatility"`
	DrawdownSeries    []DrawdownPoint `json:"drawdown_series"`
	RollingVolatility []DatedValue    `json:"rolling_volatility"`
	Days              int             `json:"days"`
}
