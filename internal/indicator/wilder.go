package indicator

import "math"

// trueRanges returns the true range at every index. Index 0 has no prior
// close and uses high-low only.
func trueRanges(high, low, close []float64) []float64 {
	trs := make([]float64, len(close))
	for i := range close {
		if i == 0 {
			trs[i] = high[i] - low[i]
			continue
		}
		tr := high[i] - low[i]
		if hc := math.Abs(high[i] - close[i-1]); hc > tr {
			tr = hc
		}
		if lc := math.Abs(low[i] - close[i-1]); lc > tr {
			tr = lc
		}
		trs[i] = tr
	}
	return trs
}

// ATR computes the Wilder average true range: seed is the mean of the first
// period true ranges at index period-1, then prev*(period-1)/period +
// tr/period.
func ATR(high, low, close []float64, period int) Series {
	out := NewSeries(len(close))
	if period <= 0 || len(close) < period {
		return out
	}

	trs := trueRanges(high, low, close)

	sum := 0.0
	for _, tr := range trs[:period] {
		sum += tr
	}
	prev := sum / float64(period)
	out.set(period-1, prev)

	for i := period; i < len(close); i++ {
		prev = (prev*float64(period-1) + trs[i]) / float64(period)
		out.set(i, prev)
	}
	return out
}

// RSI computes the Wilder relative strength index. The first defined value
// is at index period (period+1 closes required): average gain and loss are
// seeded by the simple mean of the first period signed deltas, then
// Wilder-smoothed. A zero average loss maps to RS = 100 by convention.
func RSI(close []float64, period int) Series {
	out := NewSeries(len(close))
	if period <= 0 || len(close) < period+1 {
		return out
	}

	gainSum, lossSum := 0.0, 0.0
	for i := 1; i <= period; i++ {
		delta := close[i] - close[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	out.set(period, rsiFromAverages(avgGain, avgLoss))

	for i := period + 1; i < len(close); i++ {
		delta := close[i] - close[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out.set(i, rsiFromAverages(avgGain, avgLoss))
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	rs := 100.0
	if avgLoss > 0 {
		rs = avgGain / avgLoss
	}
	return 100.0 - 100.0/(1.0+rs)
}

// ADX computes the Wilder average directional index. Fewer than 2*period
// bars leaves the whole series undefined. Directional movement and true
// range are Wilder-smoothed sums over period; the first ADX value at index
// 2*period-2 is the simple mean of the first period DX values.
func ADX(high, low, close []float64, period int) Series {
	out := NewSeries(len(close))
	n := len(close)
	if period <= 1 || n < 2*period {
		return out
	}

	trs := trueRanges(high, low, close)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := high[i] - high[i-1]
		downMove := low[i-1] - low[i]
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
	}

	// Smoothed sums seeded over the first period entries, DI available from
	// index period-1 onwards.
	var smTR, smPlus, smMinus float64
	for i := 0; i < period; i++ {
		smTR += trs[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	dx := make([]float64, n)
	dx[period-1] = dxValue(smPlus, smMinus, smTR)
	for i := period; i < n; i++ {
		smTR = smTR - smTR/float64(period) + trs[i]
		smPlus = smPlus - smPlus/float64(period) + plusDM[i]
		smMinus = smMinus - smMinus/float64(period) + minusDM[i]
		dx[i] = dxValue(smPlus, smMinus, smTR)
	}

	seedIdx := 2*period - 2
	sum := 0.0
	for i := period - 1; i <= seedIdx; i++ {
		sum += dx[i]
	}
	adx := sum / float64(period)
	out.set(seedIdx, adx)

	for i := seedIdx + 1; i < n; i++ {
		adx = (adx*float64(period-1) + dx[i]) / float64(period)
		out.set(i, adx)
	}
	return out
}

func dxValue(smPlus, smMinus, smTR float64) float64 {
	if smTR == 0 {
		return 0
	}
	plusDI := 100.0 * smPlus / smTR
	minusDI := 100.0 * smMinus / smTR
	if plusDI+minusDI == 0 {
		return 0
	}
	return 100.0 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
}
