package indicator

// SuperTrend returns two parallel series: the support line while in an
// uptrend and the resistance line while in a downtrend. At every index past
// the warm-up exactly one of the two is defined, never both.
//
// Basic bands are midprice +/- multiplier*ATR. Final bands ratchet: the
// upper band only decreases or holds unless the prior close broke above it,
// and the lower band only increases or holds unless the prior close broke
// below it. The trend flips when the close crosses the opposite final band.
func SuperTrend(high, low, close []float64, period int, multiplier float64) (support, resistance Series) {
	n := len(close)
	support = NewSeries(n)
	resistance = NewSeries(n)

	atr := ATR(high, low, close, period)
	if period <= 0 || n < period {
		return support, resistance
	}

	seed := period - 1
	mid := (high[seed] + low[seed]) / 2.0
	atrSeed, _ := atr.At(seed)
	finalUpper := mid + multiplier*atrSeed
	finalLower := mid - multiplier*atrSeed

	uptrend := close[seed] >= mid
	if uptrend {
		support.set(seed, finalLower)
	} else {
		resistance.set(seed, finalUpper)
	}

	for i := seed + 1; i < n; i++ {
		atrVal, _ := atr.At(i)
		m := (high[i] + low[i]) / 2.0
		basicUpper := m + multiplier*atrVal
		basicLower := m - multiplier*atrVal

		if basicUpper < finalUpper || close[i-1] > finalUpper {
			finalUpper = basicUpper
		}
		if basicLower > finalLower || close[i-1] < finalLower {
			finalLower = basicLower
		}

		if uptrend && close[i] < finalLower {
			uptrend = false
		} else if !uptrend && close[i] > finalUpper {
			uptrend = true
		}

		if uptrend {
			support.set(i, finalLower)
		} else {
			resistance.set(i, finalUpper)
		}
	}
	return support, resistance
}
