package optimize

import "github.com/eziosantori/cbot-farm/internal/model"

// GateLimits are the promotion thresholds from the risk configuration.
type GateLimits struct {
	MaxDrawdownPct       float64
	MinSharpe            float64
	MaxOOSDegradationPct float64
}

// EvaluateGates checks a run's metrics against the risk limits. A candidate
// is promoted only when every gate passes.
func EvaluateGates(m model.Metrics, limits GateLimits) model.Gates {
	passDD := m.MaxDrawdownPct <= limits.MaxDrawdownPct
	passSharpe := m.Sharpe >= limits.MinSharpe
	passOOS := m.OOSDegradationPct <= limits.MaxOOSDegradationPct
	return model.Gates{
		PassDrawdown:       passDD,
		PassSharpe:         passSharpe,
		PassOOSDegradation: passOOS,
		Promoted:           passDD && passSharpe && passOOS,
	}
}
