package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// synthetic 30-bar series with some movement in both directions
func syntheticBars() (high, low, close []float64) {
	base := 100.0
	for i := 0; i < 30; i++ {
		c := base + 3.0*math.Sin(float64(i)/3.0) + 0.2*float64(i)
		high = append(high, c+1.0)
		low = append(low, c-1.0)
		close = append(close, c)
	}
	return
}

func TestEMAPeriodOneReturnsInput(t *testing.T) {
	values := []float64{1.5, 2.0, 3.25, 2.75}

	for _, period := range []int{0, 1} {
		out := EMA(values, period)
		require.Len(t, out, len(values))
		for i, v := range values {
			got, ok := out.At(i)
			assert.True(t, ok)
			assert.Equal(t, v, got)
		}
	}
}

func TestEMASeedAndRecurrence(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6}
	out := EMA(values, 3)

	assert.False(t, out.Defined(0))
	assert.False(t, out.Defined(1))

	seed, ok := out.At(2)
	require.True(t, ok)
	assert.InDelta(t, 2.0, seed, 1e-12) // mean of 1,2,3

	k := 2.0 / 4.0
	want := 4.0*k + 2.0*(1.0-k)
	got, ok := out.At(3)
	require.True(t, ok)
	assert.InDelta(t, want, got, 1e-12)
}

func TestEMAShortInputAllUndefined(t *testing.T) {
	out := EMA([]float64{1, 2}, 5)
	for i := range out {
		assert.False(t, out.Defined(i))
	}
}

func TestATRWarmupAndSeed(t *testing.T) {
	high, low, close := syntheticBars()
	period := 14
	out := ATR(high, low, close, period)

	for i := 0; i < period-1; i++ {
		assert.False(t, out.Defined(i), "index %d should be warm-up", i)
	}

	// seed equals the simple mean of the first 14 true ranges
	trs := trueRanges(high, low, close)
	sum := 0.0
	for _, tr := range trs[:period] {
		sum += tr
	}
	seed, ok := out.At(period - 1)
	require.True(t, ok)
	assert.InDelta(t, sum/float64(period), seed, 1e-12)

	next, ok := out.At(period)
	require.True(t, ok)
	assert.InDelta(t, (seed*13.0+trs[period])/14.0, next, 1e-12)
}

func TestRSIWarmupBoundary(t *testing.T) {
	_, _, close := syntheticBars()
	period := 14
	out := RSI(close, period)

	for i := 0; i < period; i++ {
		assert.False(t, out.Defined(i), "index %d should be warm-up", i)
	}
	v, ok := out.At(period)
	require.True(t, ok)
	assert.Greater(t, v, 0.0)
	assert.Less(t, v, 100.0)
}

func TestRSIZeroLossConvention(t *testing.T) {
	// strictly rising closes: average loss stays zero, RS pegged at 100
	close := make([]float64, 20)
	for i := range close {
		close[i] = 100.0 + float64(i)
	}
	out := RSI(close, 14)

	v, ok := out.At(14)
	require.True(t, ok)
	assert.InDelta(t, 100.0-100.0/101.0, v, 1e-9)
}

func TestADXRequiresTwoPeriods(t *testing.T) {
	high, low, close := syntheticBars()
	period := 14

	short := ADX(high[:27], low[:27], close[:27], period)
	for i := range short {
		assert.False(t, short.Defined(i))
	}

	out := ADX(high, low, close, period)
	seedIdx := 2*period - 2
	for i := 0; i < seedIdx; i++ {
		assert.False(t, out.Defined(i), "index %d should be warm-up", i)
	}
	v, ok := out.At(seedIdx)
	require.True(t, ok)
	assert.GreaterOrEqual(t, v, 0.0)
	assert.LessOrEqual(t, v, 100.0)
}

func TestSuperTrendExactlyOneSideDefined(t *testing.T) {
	high, low, close := syntheticBars()
	period := 10

	support, resistance := SuperTrend(high, low, close, period, 3.0)
	require.Len(t, support, len(close))
	require.Len(t, resistance, len(close))

	for i := 0; i < period-1; i++ {
		assert.False(t, support.Defined(i))
		assert.False(t, resistance.Defined(i))
	}
	for i := period - 1; i < len(close); i++ {
		up := support.Defined(i)
		down := resistance.Defined(i)
		assert.True(t, up != down, "index %d: exactly one side must be defined", i)
	}
}

func TestSuperTrendBandsRatchet(t *testing.T) {
	high, low, close := syntheticBars()
	support, _ := SuperTrend(high, low, close, 5, 3.0)

	// while the uptrend holds, the support line never decreases
	prev := math.Inf(-1)
	for i := 4; i < len(close); i++ {
		v, ok := support.At(i)
		if !ok {
			prev = math.Inf(-1)
			continue
		}
		if prev != math.Inf(-1) {
			assert.GreaterOrEqual(t, v, prev, "support must ratchet at index %d", i)
		}
		prev = v
	}
}

func TestSMAOverSkipsUndefinedWindows(t *testing.T) {
	src := NewSeries(6)
	for i := 2; i < 6; i++ {
		src.set(i, float64(i))
	}
	out := SMAOver(src, 3)

	assert.False(t, out.Defined(2))
	assert.False(t, out.Defined(3))
	v, ok := out.At(4)
	require.True(t, ok)
	assert.InDelta(t, 3.0, v, 1e-12)
}
