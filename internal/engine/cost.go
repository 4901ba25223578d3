package engine

import (
	"github.com/eziosantori/cbot-farm/internal/config"
	"github.com/eziosantori/cbot-farm/internal/model"
	"github.com/eziosantori/cbot-farm/internal/strategy"
)

// ResolveCostProfile turns the execution config into the per-run cost
// profile: market override wins over the default, basis points become
// fractions. When nothing is configured for the market the strategy's own
// default per-side cost applies.
func ResolveCostProfile(exec *config.ExecutionConfig, market, timeframe string, strat strategy.Strategy) model.CostProfile {
	var defaults, override config.MarketCosts
	if exec != nil {
		defaults = exec.Default
		if exec.MarketCosts != nil {
			override = exec.MarketCosts[market]
		}
	}

	if defaults.Empty() && override.Empty() {
		perSide := strat.DefaultTradeCost(market, timeframe)
		return model.CostProfile{
			FeeBpsPerSide:       perSide * 10000.0,
			FeeFraction:         perSide,
			PerSideCostFraction: perSide,
			Source:              "strategy_default",
		}
	}

	feeBps := pick(override.FeeBpsPerSide, defaults.FeeBpsPerSide)
	slipBps := pick(override.SlippageBpsPerSide, defaults.SlippageBpsPerSide)

	fee := feeBps / 10000.0
	slip := slipBps / 10000.0
	return model.CostProfile{
		FeeBpsPerSide:       feeBps,
		SlippageBpsPerSide:  slipBps,
		FeeFraction:         fee,
		SlippageFraction:    slip,
		PerSideCostFraction: fee + slip,
		Source:              "execution_config",
	}
}

func pick(override, def *float64) float64 {
	if override != nil {
		return *override
	}
	if def != nil {
		return *def
	}
	return 0
}
