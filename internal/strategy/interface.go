package strategy

import (
	"github.com/eziosantori/cbot-farm/internal/indicator"
	"github.com/eziosantori/cbot-farm/internal/model"
)

// Position side as seen by the strategy contract.
const (
	SignalLong  = 1
	SignalShort = -1
	SignalNone  = 0
)

// Indicators is the named series map a strategy precomputes once per run,
// plus scalar filter settings the entry signal needs (params are not passed
// to EntrySignal).
type Indicators struct {
	Series  map[string]indicator.Series
	Filters map[string]float64
}

// At reads series name at index i.
func (ind *Indicators) At(name string, i int) (float64, bool) {
	s, ok := ind.Series[name]
	if !ok {
		return 0, false
	}
	return s.At(i)
}

// Defined reports whether series name is defined at index i.
func (ind *Indicators) Defined(name string, i int) bool {
	_, ok := ind.At(name, i)
	return ok
}

// Strategy is the capability set the simulator drives. Variants are
// interchangeable and the simulator never looks past this contract.
type Strategy interface {
	ID() string
	DisplayName() string

	// SampleParams is the fallback sampler used when no parameter space is
	// configured for the strategy.
	SampleParams(iteration int) model.Params

	// NormalizeParams clamps and repairs a candidate so indicator periods fit
	// the dataset and ordering constraints hold. It returns a new Params and
	// never mutates its input.
	NormalizeParams(params model.Params, barsCount int) model.Params

	PrepareIndicators(bars []model.Bar, params model.Params) *Indicators

	// EntrySignal returns SignalLong, SignalShort or SignalNone for bar i.
	EntrySignal(i int, bars []model.Bar, ind *Indicators) int

	// ShouldFlip reports a signal-based forced exit for the open position.
	ShouldFlip(i int, side int, bars []model.Bar, ind *Indicators) bool

	// RiskLevels returns the stop and take prices for a position opened at
	// entryPrice on bar i.
	RiskLevels(i int, side int, entryPrice float64, bars []model.Bar, ind *Indicators, params model.Params) (stop, take float64)

	// DefaultTradeCost is the fractional per-side cost used when no explicit
	// fee/slippage configuration exists for the market.
	DefaultTradeCost(market, timeframe string) float64
}

func closes(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func highs(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

func lows(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
