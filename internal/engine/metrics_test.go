package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eziosantori/cbot-farm/internal/model"
)

func TestMaxDrawdownPct(t *testing.T) {
	assert.Equal(t, 25.0, MaxDrawdownPct([]float64{1.0, 1.2, 0.9, 1.1}))
	assert.Equal(t, 0.0, MaxDrawdownPct([]float64{1.0, 1.1, 1.2}))
	assert.Equal(t, 0.0, MaxDrawdownPct(nil))
}

func TestOOSDegradationSentinelBelowTwentyObservations(t *testing.T) {
	returns := make([]float64, 19)
	for i := range returns {
		returns[i] = 0.5 // content is irrelevant below the threshold
	}
	assert.Equal(t, 100.0, OOSDegradationPct(returns))
}

func TestOOSDegradationSentinelOnNonPositiveInSample(t *testing.T) {
	returns := make([]float64, 25)
	for i := range returns {
		returns[i] = -0.01
	}
	assert.Equal(t, 100.0, OOSDegradationPct(returns))
}

func TestOOSDegradationFlooredAtZero(t *testing.T) {
	// weak in-sample, strong out-of-sample: no degradation reported
	returns := make([]float64, 25)
	for i := 0; i < 20; i++ {
		returns[i] = 0.001
	}
	for i := 20; i < 25; i++ {
		returns[i] = 0.05
	}
	assert.Equal(t, 0.0, OOSDegradationPct(returns))
}

func TestOOSDegradationComputed(t *testing.T) {
	returns := make([]float64, 25)
	for i := 0; i < 20; i++ {
		returns[i] = 0.01
	}
	// flat out-of-sample: full falloff relative to in-sample
	isTotal := math.Pow(1.01, 20) - 1.0
	want := round2((isTotal - 0.0) / isTotal * 100.0)
	assert.InDelta(t, want, OOSDegradationPct(returns), 1e-9)
}

func TestSharpeAnnualization(t *testing.T) {
	// alternating returns with positive mean
	returns := []float64{0.02, -0.01, 0.02, -0.01, 0.02, -0.01}
	mean := 0.005
	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	std := math.Sqrt(variance / float64(len(returns)))

	want := mean / std * math.Sqrt(8760)
	assert.InDelta(t, want, sharpe(returns, "1h"), 1e-9)

	// unknown timeframe falls back to hourly
	assert.InDelta(t, want, sharpe(returns, "42x"), 1e-9)

	daily := mean / std * math.Sqrt(365)
	assert.InDelta(t, daily, sharpe(returns, "1d"), 1e-9)
}

func TestSharpeZeroVariance(t *testing.T) {
	assert.Equal(t, 0.0, sharpe([]float64{0.01, 0.01, 0.01}, "1h"))
	assert.Equal(t, 0.0, sharpe([]float64{0.01}, "1h"))
}

func TestComputeMetricsWorstCaseForFailedRun(t *testing.T) {
	failed := &model.BacktestResult{Status: model.StatusFailed, Reason: "insufficient bars"}
	assert.Equal(t, model.WorstCaseMetrics(), ComputeMetrics(failed, "1h"))
	assert.Equal(t, model.WorstCaseMetrics(), ComputeMetrics(nil, "1h"))
}
