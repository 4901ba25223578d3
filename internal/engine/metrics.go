package engine

import (
	"math"

	"github.com/eziosantori/cbot-farm/internal/model"
)

// barsPerYear converts a timeframe code into the annualization factor for
// the sharpe ratio. Unrecognized codes fall back to the hourly value.
func barsPerYear(timeframe string) float64 {
	switch timeframe {
	case "1m":
		return 525600
	case "5m":
		return 105120
	case "15m":
		return 35040
	case "30m":
		return 17520
	case "1h":
		return 8760
	case "4h":
		return 2190
	case "1d":
		return 365
	}
	return 8760
}

// ComputeMetrics derives the run metrics from a simulator result. Failed
// runs carry the worst-case sentinel so the optimization driver can keep
// ranking candidates without special cases.
func ComputeMetrics(result *model.BacktestResult, timeframe string) model.Metrics {
	if result == nil || result.Status != model.StatusOK || len(result.EquityCurve) == 0 {
		return model.WorstCaseMetrics()
	}

	finalEquity := result.EquityCurve[len(result.EquityCurve)-1]
	return model.Metrics{
		TotalReturnPct:    round2((finalEquity - 1.0) * 100.0),
		Sharpe:            round2(sharpe(result.Returns, timeframe)),
		MaxDrawdownPct:    round2(MaxDrawdownPct(result.EquityCurve)),
		OOSDegradationPct: OOSDegradationPct(result.Returns),
	}
}

// MaxDrawdownPct is the largest peak-to-trough decline over the curve,
// in percent of the running peak.
func MaxDrawdownPct(curve []float64) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0]
	maxDD := 0.0
	for _, v := range curve {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak * 100.0; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpe annualizes mean/population-stddev of the per-bar returns. A zero
// variance series has no meaningful ratio and maps to 0.
func sharpe(returns []float64, timeframe string) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(returns)))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(barsPerYear(timeframe))
}

// OOSDegradationPct splits the return series 80/20 and compares compounded
// in-sample vs out-of-sample return. Fewer than 20 observations or a
// non-positive in-sample total return to the sentinel 100. The result is
// floored at 0: outperforming out-of-sample is not degradation.
func OOSDegradationPct(returns []float64) float64 {
	n := len(returns)
	if n < 20 {
		return 100.0
	}

	split := int(float64(n) * 0.8)
	isTotal := compound(returns[:split])
	oosTotal := compound(returns[split:])

	if isTotal <= 0 {
		return 100.0
	}

	degradation := (isTotal - oosTotal) / math.Abs(isTotal) * 100.0
	if degradation < 0 {
		return 0.0
	}
	return round2(degradation)
}

func compound(returns []float64) float64 {
	total := 1.0
	for _, r := range returns {
		total *= 1.0 + r
	}
	return total - 1.0
}
