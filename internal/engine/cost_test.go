package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eziosantori/cbot-farm/internal/config"
	"github.com/eziosantori/cbot-farm/internal/strategy"
)

func fptr(v float64) *float64 { return &v }

func TestResolveCostProfileFromExecutionConfig(t *testing.T) {
	exec := &config.ExecutionConfig{
		Default: config.MarketCosts{
			FeeBpsPerSide:      fptr(2.0),
			SlippageBpsPerSide: fptr(1.0),
		},
		MarketCosts: map[string]config.MarketCosts{
			"crypto": {FeeBpsPerSide: fptr(5.0)},
		},
	}
	strat := &strategy.SuperTrendRsi{}

	// market override on fee, default slippage
	profile := ResolveCostProfile(exec, "crypto", "1h", strat)
	assert.Equal(t, 5.0, profile.FeeBpsPerSide)
	assert.Equal(t, 1.0, profile.SlippageBpsPerSide)
	assert.InDelta(t, 0.0006, profile.PerSideCostFraction, 1e-12)
	assert.Equal(t, "execution_config", profile.Source)

	// unknown market uses the default profile
	profile = ResolveCostProfile(exec, "forex", "1h", strat)
	assert.InDelta(t, 0.0003, profile.PerSideCostFraction, 1e-12)
}

func TestResolveCostProfileFallsBackToStrategyDefault(t *testing.T) {
	strat := &strategy.SuperTrendRsi{}

	profile := ResolveCostProfile(nil, "crypto", "1h", strat)
	assert.Equal(t, "strategy_default", profile.Source)
	assert.InDelta(t, 0.0005, profile.PerSideCostFraction, 1e-12)

	profile = ResolveCostProfile(&config.ExecutionConfig{}, "forex", "1h", strat)
	assert.Equal(t, "strategy_default", profile.Source)
	assert.InDelta(t, 0.0001, profile.PerSideCostFraction, 1e-12)
}
