// Package indicator implements the technical indicators used by the
// strategies. All functions are pure, single-pass and deterministic; leading
// warm-up entries are explicitly undefined rather than zero.
package indicator

// EMA computes an exponential moving average. For period <= 1 the input is
// returned unchanged. The first defined value is the simple mean of the first
// period values, seeded at index period-1, then v*k + prev*(1-k) with
// k = 2/(period+1).
func EMA(values []float64, period int) Series {
	if period <= 1 {
		return FromValues(values)
	}

	out := NewSeries(len(values))
	if len(values) < period {
		return out
	}

	sum := 0.0
	for _, v := range values[:period] {
		sum += v
	}
	prev := sum / float64(period)
	out.set(period-1, prev)

	k := 2.0 / (float64(period) + 1.0)
	for i := period; i < len(values); i++ {
		prev = values[i]*k + prev*(1.0-k)
		out.set(i, prev)
	}
	return out
}

// SMAOver computes a simple moving average over another series. The output
// at i is defined only when every source value in the window is defined.
func SMAOver(src Series, window int) Series {
	out := NewSeries(len(src))
	if window <= 0 {
		return out
	}

	for i := window - 1; i < len(src); i++ {
		sum := 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			v, defined := src.At(j)
			if !defined {
				ok = false
				break
			}
			sum += v
		}
		if ok {
			out.set(i, sum/float64(window))
		}
	}
	return out
}
