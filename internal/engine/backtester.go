// Package engine contains the backtest simulator, the metrics engine, the
// bar loaders and the candidate evaluation pool.
package engine

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/eziosantori/cbot-farm/internal/infrastructure"
	"github.com/eziosantori/cbot-farm/internal/model"
	"github.com/eziosantori/cbot-farm/internal/strategy"
)

// MinBars is the smallest dataset the simulator accepts.
const MinBars = 12

// Backtester replays a bar series against one strategy candidate. One run is
// a pure function of (bars, params, strategy, cost profile); there is no
// hidden randomness and no shared mutable state, so runs can be fanned out
// across workers safely.
type Backtester struct {
	strategy strategy.Strategy
	cost     model.CostProfile
	logger   *zap.Logger
}

func NewBacktester(strat strategy.Strategy, cost model.CostProfile, logger *zap.Logger) *Backtester {
	return &Backtester{
		strategy: strat,
		cost:     cost,
		logger:   logger,
	}
}

func (b *Backtester) failed(reason string, barsCount int) *model.BacktestResult {
	b.logger.Warn("backtest not runnable",
		zap.String("strategy", b.strategy.ID()),
		zap.String("reason", reason),
		zap.Int("bars", barsCount),
	)
	infrastructure.SimulationsTotal.WithLabelValues(b.strategy.ID(), model.StatusFailed).Inc()
	return &model.BacktestResult{
		Status:      model.StatusFailed,
		Reason:      reason,
		BarsCount:   barsCount,
		CostProfile: b.cost,
	}
}

// Run simulates the series bar by bar. Bar 0 only seeds indicators. Dataset
// problems never raise: they come back as failed results so an optimization
// driver keeps iterating.
func (b *Backtester) Run(bars []model.Bar, params model.Params) *model.BacktestResult {
	if len(bars) == 0 {
		return b.failed("no dataset found", 0)
	}
	if len(bars) < MinBars {
		return b.failed("insufficient bars", len(bars))
	}

	timer := prometheus.NewTimer(infrastructure.SimulationDuration.WithLabelValues(b.strategy.ID()))
	defer timer.ObserveDuration()

	effective := b.strategy.NormalizeParams(params, len(bars))
	indicators := b.strategy.PrepareIndicators(bars, effective)
	cost := b.cost.PerSideCostFraction

	var (
		position   int // 0 flat, +1 long, -1 short
		entryPrice float64
		stopPrice  float64
		takePrice  float64
		entryTS    int64

		equity      = 1.0
		equityCurve = make([]float64, 1, len(bars))
		returns     = make([]float64, 0, len(bars)-1)
		trades      []model.Trade
	)
	equityCurve[0] = 1.0

	closeTrade := func(i int, exitPrice float64, reason string) {
		dir := float64(position)
		gross := dir * (exitPrice - entryPrice) / entryPrice * 100.0
		net := gross - 2.0*cost*100.0

		side := model.SideLong
		if position == strategy.SignalShort {
			side = model.SideShort
		}
		trades = append(trades, model.Trade{
			EntryTimestamp: entryTS,
			ExitTimestamp:  bars[i].Timestamp,
			Side:           side,
			EntryPrice:     entryPrice,
			ExitPrice:      exitPrice,
			StopPrice:      stopPrice,
			TakePrice:      takePrice,
			GrossReturnPct: gross,
			NetReturnPct:   net,
			ExitReason:     reason,
		})
		position = 0
	}

	for i := 1; i < len(bars); i++ {
		bar := bars[i]
		prevClose := bars[i-1].Close
		barReturn := 0.0

		if position != 0 {
			dir := float64(position)
			exitPrice, reason := 0.0, ""

			// Exit priority is fixed: stop first, then take, then flip.
			// When both are intrabar-reachable the stop wins.
			if position == strategy.SignalLong {
				if bar.Low <= stopPrice {
					exitPrice, reason = stopPrice, model.ExitStopLoss
				} else if bar.High >= takePrice {
					exitPrice, reason = takePrice, model.ExitTakeProfit
				}
			} else {
				if bar.High >= stopPrice {
					exitPrice, reason = stopPrice, model.ExitStopLoss
				} else if bar.Low <= takePrice {
					exitPrice, reason = takePrice, model.ExitTakeProfit
				}
			}
			if reason == "" && b.strategy.ShouldFlip(i, position, bars, indicators) {
				exitPrice, reason = bar.Close, model.ExitSignalFlip
			}

			if reason != "" {
				barReturn += dir*(exitPrice-prevClose)/prevClose - cost
				closeTrade(i, exitPrice, reason)
			} else {
				barReturn += dir * (bar.Close - prevClose) / prevClose
			}
		}

		// Plain conditional, not an else-branch: a position forced closed
		// above may re-open on the same bar and pays a second cost unit.
		if position == 0 {
			if signal := b.strategy.EntrySignal(i, bars, indicators); signal != strategy.SignalNone {
				position = signal
				entryPrice = bar.Close
				entryTS = bar.Timestamp
				stopPrice, takePrice = b.strategy.RiskLevels(i, signal, entryPrice, bars, indicators, effective)
				barReturn -= cost
			}
		}

		equity *= 1.0 + barReturn
		returns = append(returns, barReturn)
		equityCurve = append(equityCurve, equity)
	}

	wins := 0
	for _, t := range trades {
		if t.NetReturnPct > 0 {
			wins++
		}
	}
	winRate := 0.0
	if len(trades) > 0 {
		winRate = float64(wins) / float64(len(trades)) * 100.0
	}

	infrastructure.SimulationsTotal.WithLabelValues(b.strategy.ID(), model.StatusOK).Inc()

	return &model.BacktestResult{
		Status:          model.StatusOK,
		BarsCount:       len(bars),
		ParamsEffective: effective,
		CostProfile:     b.cost,
		TradesCount:     len(trades),
		WinRatePct:      round2(winRate),
		Trades:          trades,
		EquityCurve:     equityCurve,
		Returns:         returns,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100.0) / 100.0
}
