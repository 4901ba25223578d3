package model

// Metrics are derived once per run by the metrics engine.
type Metrics struct {
	TotalReturnPct    float64 `json:"total_return_pct"`
	Sharpe            float64 `json:"sharpe"`
	MaxDrawdownPct    float64 `json:"max_drawdown_pct"`
	OOSDegradationPct float64 `json:"oos_degradation_pct"`
}

// WorstCaseMetrics is the sentinel attached to failed runs so a long-running
// search never promotes a candidate that could not be evaluated.
func WorstCaseMetrics() Metrics {
	return Metrics{
		TotalReturnPct:    -100.0,
		Sharpe:            0.0,
		MaxDrawdownPct:    100.0,
		OOSDegradationPct: 100.0,
	}
}

// Gates is the risk-limit evaluation of one run's metrics.
type Gates struct {
	PassDrawdown       bool `json:"pass_drawdown"`
	PassSharpe         bool `json:"pass_sharpe"`
	PassOOSDegradation bool `json:"pass_oos_degradation"`
	Promoted           bool `json:"promoted"`
}

// CostProfile is the per-run trading cost resolved from fee and slippage
// basis points, or from the strategy default when none are configured.
type CostProfile struct {
	FeeBpsPerSide       float64 `json:"fee_bps_per_side"`
	SlippageBpsPerSide  float64 `json:"slippage_bps_per_side"`
	FeeFraction         float64 `json:"fee_fraction"`
	SlippageFraction    float64 `json:"slippage_fraction"`
	PerSideCostFraction float64 `json:"per_side_cost_fraction"`
	Source              string  `json:"source"`
}

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// BacktestResult is the simulator output consumed by the metrics engine and
// the reporting layer. Failed runs carry a reason instead of raising.
type BacktestResult struct {
	Status          string      `json:"status"`
	Reason          string      `json:"reason,omitempty"`
	Dataset         string      `json:"dataset,omitempty"`
	Market          string      `json:"market,omitempty"`
	Symbol          string      `json:"symbol,omitempty"`
	Timeframe       string      `json:"timeframe,omitempty"`
	BarsCount       int         `json:"bars_count"`
	ParamsEffective Params      `json:"params_effective,omitempty"`
	CostProfile     CostProfile `json:"cost_profile"`
	TradesCount     int         `json:"trades_count"`
	WinRatePct      float64     `json:"win_rate_pct"`
	Trades          []Trade     `json:"trade_log,omitempty"`
	EquityCurve     []float64   `json:"-"`
	Returns         []float64   `json:"-"`
}

// OptimizationMeta records how a candidate was selected.
type OptimizationMeta struct {
	Source             string `json:"source"`
	Reason             string `json:"reason,omitempty"`
	CandidateIndex     *int   `json:"candidate_index"`
	TotalCandidates    int    `json:"total_candidates"`
	SearchMode         string `json:"search_mode"`
	Truncated          bool   `json:"truncated"`
	RawTotalCandidates int    `json:"raw_total_candidates"`
}

// RunReport is the persisted record of one simulation run.
type RunReport struct {
	RunID                     string           `json:"run_id"`
	CreatedAt                 string           `json:"created_at"`
	Mode                      string           `json:"mode"`
	Iteration                 int              `json:"iteration"`
	Strategy                  string           `json:"strategy"`
	StrategyID                string           `json:"strategy_id"`
	Market                    string           `json:"market"`
	Symbol                    string           `json:"symbol"`
	Timeframes                []string         `json:"timeframes"`
	Params                    Params           `json:"params"`
	Optimization              OptimizationMeta `json:"optimization"`
	Backtest                  *BacktestResult  `json:"backtest"`
	Metrics                   Metrics          `json:"metrics"`
	Gates                     Gates            `json:"gates"`
	Score                     float64          `json:"score"`
	RetriesWithoutImprovement int              `json:"retries_without_improvement"`
}

// Status reports the underlying simulation status, failed when absent.
func (r *RunReport) Status() string {
	if r.Backtest == nil {
		return StatusFailed
	}
	return r.Backtest.Status
}

// Timeframe is the timeframe the run actually executed on.
func (r *RunReport) Timeframe() string {
	if r.Backtest != nil && r.Backtest.Timeframe != "" {
		return r.Backtest.Timeframe
	}
	if len(r.Timeframes) > 0 {
		return r.Timeframes[0]
	}
	return ""
}
