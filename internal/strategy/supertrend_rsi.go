package strategy

import (
	"github.com/eziosantori/cbot-farm/internal/indicator"
	"github.com/eziosantori/cbot-farm/internal/model"
)

// SuperTrendRsi combines SuperTrend flips for direction, RSI for momentum
// timing, an EMA for directional bias and ADX as a trend-strength gate to
// stay out of ranging markets. The primary exit is a SuperTrend reversal;
// ATR stop/take levels back it up.
type SuperTrendRsi struct{}

func (s *SuperTrendRsi) ID() string          { return "supertrend_rsi" }
func (s *SuperTrendRsi) DisplayName() string { return "SuperTrend + RSI Momentum" }

func (s *SuperTrendRsi) SampleParams(iteration int) model.Params {
	return model.Params{
		"st_period":     float64(8 + iteration%7),
		"st_mult":       2.0 + 0.1*float64(iteration%21),
		"rsi_period":    14,
		"ema_period":    float64(150 + (iteration%3)*50),
		"min_adx":       float64(15 + (iteration%3)*5),
		"atr_period":    14,
		"atr_mult_stop": 1.5 + 0.1*float64(iteration%16),
		"atr_mult_take": 2.0 + 0.2*float64(iteration%16),
	}
}

func (s *SuperTrendRsi) NormalizeParams(params model.Params, barsCount int) model.Params {
	out := params.Clone()
	maxPeriod := barsCount / 3

	out["st_period"] = float64(clampInt(out.Int("st_period", 10), 5, maxPeriod))
	out["st_mult"] = clampFloat(out.Float("st_mult", 3.0), 1.0, 5.0)
	out["rsi_period"] = float64(clampInt(out.Int("rsi_period", 14), 2, maxPeriod))
	out["ema_period"] = float64(clampInt(out.Int("ema_period", 200), 20, maxPeriod))
	out["min_adx"] = float64(clampInt(out.Int("min_adx", 20), 0, 50))
	out["atr_period"] = float64(clampInt(out.Int("atr_period", 14), 5, maxPeriod))
	out["atr_mult_stop"] = clampFloat(out.Float("atr_mult_stop", 2.0), 0.5, 10.0)
	out["atr_mult_take"] = clampFloat(out.Float("atr_mult_take", 3.0), 0.5, 10.0)
	return out
}

func (s *SuperTrendRsi) PrepareIndicators(bars []model.Bar, params model.Params) *Indicators {
	c := closes(bars)
	h := highs(bars)
	l := lows(bars)

	stUp, stDown := indicator.SuperTrend(h, l, c,
		params.Int("st_period", 10), params.Float("st_mult", 3.0))

	return &Indicators{
		Series: map[string]indicator.Series{
			"st_up":   stUp,
			"st_down": stDown,
			"rsi":     indicator.RSI(c, params.Int("rsi_period", 14)),
			"adx":     indicator.ADX(h, l, c, 14),
			"ema":     indicator.EMA(c, params.Int("ema_period", 200)),
			"atr":     indicator.ATR(h, l, c, params.Int("atr_period", 14)),
		},
		Filters: map[string]float64{
			"min_adx": params.Float("min_adx", 20),
		},
	}
}

func (s *SuperTrendRsi) EntrySignal(i int, bars []model.Bar, ind *Indicators) int {
	if i < 1 {
		return SignalNone
	}

	currUp := ind.Defined("st_up", i)
	currDown := ind.Defined("st_down", i)
	prevUp := ind.Defined("st_up", i-1)
	prevDown := ind.Defined("st_down", i-1)

	rsiVal, ok1 := ind.At("rsi", i-1)
	adxVal, ok2 := ind.At("adx", i-1)
	emaVal, ok3 := ind.At("ema", i-1)
	if (!currUp && !currDown) || (!prevUp && !prevDown) || !ok1 || !ok2 || !ok3 {
		return SignalNone
	}

	// Trend-strength gate: skip choppy markets.
	if adxVal < ind.Filters["min_adx"] {
		return SignalNone
	}

	closePrev := bars[i-1].Close

	// Long: SuperTrend switched to uptrend with momentum and bias aligned.
	if prevDown && currUp && rsiVal > 50 && closePrev > emaVal {
		return SignalLong
	}
	// Short: SuperTrend switched to downtrend with momentum and bias aligned.
	if prevUp && currDown && rsiVal < 50 && closePrev < emaVal {
		return SignalShort
	}
	return SignalNone
}

func (s *SuperTrendRsi) ShouldFlip(i int, side int, bars []model.Bar, ind *Indicators) bool {
	currUp := ind.Defined("st_up", i)
	currDown := ind.Defined("st_down", i)
	if !currUp && !currDown {
		return false
	}
	if side == SignalLong && currDown {
		return true
	}
	if side == SignalShort && currUp {
		return true
	}
	return false
}

func (s *SuperTrendRsi) RiskLevels(i int, side int, entryPrice float64, bars []model.Bar, ind *Indicators, params model.Params) (float64, float64) {
	atrVal, ok := ind.At("atr", i)
	if !ok {
		atrVal = entryPrice * 0.01
		if atrVal < 1e-8 {
			atrVal = 1e-8
		}
	}
	stopDist := atrVal * params.Float("atr_mult_stop", 2.0)
	takeDist := atrVal * params.Float("atr_mult_take", 3.0)

	if side == SignalLong {
		return entryPrice - stopDist, entryPrice + takeDist
	}
	return entryPrice + stopDist, entryPrice - takeDist
}

// DefaultTradeCost returns the per-side cost fraction for the market when no
// explicit fee/slippage configuration is present.
func (s *SuperTrendRsi) DefaultTradeCost(market, timeframe string) float64 {
	switch market {
	case "forex":
		return 0.0001
	case "crypto":
		return 0.0005
	case "indices":
		return 0.0002
	case "commodities":
		return 0.0003
	case "equities":
		return 0.00025
	}
	return 0.0002
}
