package strategy

import (
	"github.com/eziosantori/cbot-farm/internal/indicator"
	"github.com/eziosantori/cbot-farm/internal/model"
)

// EmaCrossAtr trades the crossover of a fast and a slow EMA with ATR-based
// stop and take levels. Entries are gated by the prior bar's RSI and by an
// ATR volatility ratio so signals in overheated or choppy conditions are
// skipped. Positions flip on the opposite cross.
type EmaCrossAtr struct{}

func (s *EmaCrossAtr) ID() string          { return "ema_cross_atr" }
func (s *EmaCrossAtr) DisplayName() string { return "EMA Cross ATR Bot" }

func (s *EmaCrossAtr) SampleParams(iteration int) model.Params {
	return model.Params{
		"ema_fast":          float64(20 + iteration),
		"ema_slow":          float64(50 + iteration),
		"atr_period":        14,
		"atr_mult_stop":     1.2 + 0.05*float64(iteration%7),
		"atr_mult_take":     1.8 + 0.1*float64(iteration%7),
		"rsi_period":        14,
		"rsi_gate":          50,
		"atr_vol_window":    20,
		"atr_vol_ratio_max": 2.0,
	}
}

func (s *EmaCrossAtr) NormalizeParams(params model.Params, barsCount int) model.Params {
	out := params.Clone()

	maxSlow := barsCount / 2
	if maxSlow < 6 {
		maxSlow = 6
	}
	emaSlow := clampInt(out.Int("ema_slow", 50), 5, maxSlow)
	emaFast := clampInt(out.Int("ema_fast", 20), 3, emaSlow-1)

	out["ema_slow"] = float64(emaSlow)
	out["ema_fast"] = float64(emaFast)
	out["atr_period"] = float64(clampInt(out.Int("atr_period", 14), 5, barsCount))
	out["rsi_period"] = float64(clampInt(out.Int("rsi_period", 14), 2, barsCount))
	out["atr_mult_stop"] = clampFloat(out.Float("atr_mult_stop", 1.5), 0.5, 10.0)
	out["atr_mult_take"] = clampFloat(out.Float("atr_mult_take", 2.0), 0.5, 10.0)
	out["rsi_gate"] = float64(clampInt(out.Int("rsi_gate", 50), 40, 60))
	out["atr_vol_window"] = float64(clampInt(out.Int("atr_vol_window", 20), 5, barsCount))
	out["atr_vol_ratio_max"] = clampFloat(out.Float("atr_vol_ratio_max", 2.0), 1.0, 10.0)
	return out
}

func (s *EmaCrossAtr) PrepareIndicators(bars []model.Bar, params model.Params) *Indicators {
	c := closes(bars)
	h := highs(bars)
	l := lows(bars)

	atr := indicator.ATR(h, l, c, params.Int("atr_period", 14))
	return &Indicators{
		Series: map[string]indicator.Series{
			"ema_fast": indicator.EMA(c, params.Int("ema_fast", 20)),
			"ema_slow": indicator.EMA(c, params.Int("ema_slow", 50)),
			"atr":      atr,
			"rsi":      indicator.RSI(c, params.Int("rsi_period", 14)),
			"atr_avg":  indicator.SMAOver(atr, params.Int("atr_vol_window", 20)),
		},
		Filters: map[string]float64{
			"rsi_gate":          params.Float("rsi_gate", 50),
			"atr_vol_ratio_max": params.Float("atr_vol_ratio_max", 2.0),
		},
	}
}

func (s *EmaCrossAtr) crossSignal(i int, ind *Indicators) int {
	prevFast, ok1 := ind.At("ema_fast", i-1)
	prevSlow, ok2 := ind.At("ema_slow", i-1)
	currFast, ok3 := ind.At("ema_fast", i)
	currSlow, ok4 := ind.At("ema_slow", i)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return SignalNone
	}

	if prevFast <= prevSlow && currFast > currSlow {
		return SignalLong
	}
	if prevFast >= prevSlow && currFast < currSlow {
		return SignalShort
	}
	return SignalNone
}

func (s *EmaCrossAtr) EntrySignal(i int, bars []model.Bar, ind *Indicators) int {
	signal := s.crossSignal(i, ind)
	if signal == SignalNone {
		return SignalNone
	}

	// Momentum gate on the previous (completed) bar.
	rsiVal, ok := ind.At("rsi", i-1)
	if !ok {
		return SignalNone
	}
	gate := ind.Filters["rsi_gate"]
	if signal == SignalLong && rsiVal <= gate {
		return SignalNone
	}
	if signal == SignalShort && rsiVal >= 100.0-gate {
		return SignalNone
	}

	// Volatility gate: skip entries when ATR runs hot against its average.
	atrVal, ok1 := ind.At("atr", i-1)
	atrAvg, ok2 := ind.At("atr_avg", i-1)
	if !ok1 || !ok2 || atrAvg <= 0 {
		return SignalNone
	}
	if atrVal/atrAvg > ind.Filters["atr_vol_ratio_max"] {
		return SignalNone
	}

	return signal
}

func (s *EmaCrossAtr) ShouldFlip(i int, side int, bars []model.Bar, ind *Indicators) bool {
	signal := s.crossSignal(i, ind)
	return (side == SignalLong && signal == SignalShort) ||
		(side == SignalShort && signal == SignalLong)
}

func (s *EmaCrossAtr) RiskLevels(i int, side int, entryPrice float64, bars []model.Bar, ind *Indicators, params model.Params) (float64, float64) {
	atrVal, ok := ind.At("atr", i)
	if !ok {
		atrVal = entryPrice * 0.005
		if atrVal < 1e-8 {
			atrVal = 1e-8
		}
	}
	stopDist := atrVal * params.Float("atr_mult_stop", 1.5)
	takeDist := atrVal * params.Float("atr_mult_take", 2.0)

	if side == SignalLong {
		return entryPrice - stopDist, entryPrice + takeDist
	}
	return entryPrice + stopDist, entryPrice - takeDist
}

func (s *EmaCrossAtr) DefaultTradeCost(market, timeframe string) float64 {
	return 0.0002
}
