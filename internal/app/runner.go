package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/eziosantori/cbot-farm/internal/config"
	"github.com/eziosantori/cbot-farm/internal/engine"
	"github.com/eziosantori/cbot-farm/internal/model"
	"github.com/eziosantori/cbot-farm/internal/optimize"
	"github.com/eziosantori/cbot-farm/internal/strategy"
)

// ReportSink persists finished run reports. Satisfied by storage.ReportStore.
type ReportSink interface {
	Save(ctx context.Context, report *model.RunReport) (string, error)
}

// reportPublisher is the slice of nats.JetStreamContext the runner uses.
type reportPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// RunRequest drives one optimization campaign for a strategy over the
// ingested data universe.
type RunRequest struct {
	StrategyID string   `json:"strategy_id"`
	Markets    []string `json:"markets,omitempty"`
	Symbols    []string `json:"symbols,omitempty"`
	Timeframes []string `json:"timeframes,omitempty"`
	Iterations int      `json:"iterations,omitempty"`
}

// RunOutcome summarizes a finished campaign: every report produced, the
// best-scoring one, and whether any candidate cleared the gates.
type RunOutcome struct {
	Reports  []*model.RunReport `json:"reports"`
	Best     *model.RunReport   `json:"best"`
	Promoted bool               `json:"promoted"`
}

// Runner is the optimization driver: it expands the parameter plan, walks
// candidates iteration by iteration, simulates, gates, persists and publishes
// each report, and stops on promotion or exhausted patience.
type Runner struct {
	logger    *zap.Logger
	risk      *config.RiskConfig
	universe  *config.UniverseConfig
	dataDir   string
	sink      ReportSink
	publisher reportPublisher
}

func NewRunner(logger *zap.Logger, risk *config.RiskConfig, universe *config.UniverseConfig, dataDir string, sink ReportSink, js nats.JetStreamContext) *Runner {
	var pub reportPublisher
	if js != nil {
		pub = js
	}
	return &Runner{
		logger:    logger,
		risk:      risk,
		universe:  universe,
		dataDir:   dataDir,
		sink:      sink,
		publisher: pub,
	}
}

// universeFilters fills empty request filters from the configured universe so
// a bare campaign request still stays inside the tradable set.
func (r *Runner) universeFilters(req RunRequest) (markets, symbols []string) {
	markets, symbols = req.Markets, req.Symbols
	if r.universe == nil || len(r.universe.Markets) == 0 {
		return markets, symbols
	}
	if len(markets) == 0 {
		for m := range r.universe.Markets {
			markets = append(markets, m)
		}
	}
	if len(symbols) == 0 {
		for _, m := range markets {
			symbols = append(symbols, r.universe.Markets[m]...)
		}
	}
	return markets, symbols
}

const defaultIterations = 20

// Run executes one campaign. Plan-building errors abort; per-iteration
// dataset problems do not, they produce failed reports and the loop keeps
// counting them against the retry budget.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunOutcome, error) {
	strat, err := strategy.New(req.StrategyID)
	if err != nil {
		return nil, err
	}

	plan, err := optimize.BuildPlan(r.risk.SpaceFor(req.StrategyID))
	if err != nil {
		return nil, fmt.Errorf("invalid parameter space for %s: %w", req.StrategyID, err)
	}

	iterations := req.Iterations
	if iterations <= 0 {
		iterations = defaultIterations
	}

	markets, symbols := r.universeFilters(req)
	dataset, found := engine.FindDataset(r.dataDir, markets, symbols, req.Timeframes)
	var bars []model.Bar
	if found {
		bars, err = engine.LoadCSVBars(dataset.Path)
		if err != nil {
			r.logger.Error("failed to load dataset",
				zap.String("path", dataset.Path), zap.Error(err))
			bars = nil
		}
	} else {
		r.logger.Warn("no dataset matched request",
			zap.String("strategy", req.StrategyID),
			zap.Strings("markets", markets),
			zap.Strings("symbols", symbols),
		)
	}

	cost := engine.ResolveCostProfile(r.risk.Execution, dataset.Market, dataset.Timeframe, strat)
	tester := engine.NewBacktester(strat, cost, r.logger)
	limits := r.risk.GateLimits()
	maxRetries := r.risk.Optimization.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 10
	}

	outcome := &RunOutcome{}
	bestScore := 0.0
	retries := 0
	runStamp := time.Now().UTC().Format("20060102T150405")

	for iteration := 1; iteration <= iterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		candidate, meta := optimize.CandidateForIteration(iteration, plan, strat.SampleParams(iteration))

		result := tester.Run(bars, candidate)
		result.Dataset = dataset.Path
		result.Market = dataset.Market
		result.Symbol = dataset.Symbol
		result.Timeframe = dataset.Timeframe

		metrics := engine.ComputeMetrics(result, dataset.Timeframe)
		gates := optimize.EvaluateGates(metrics, limits)
		score := metrics.TotalReturnPct - metrics.MaxDrawdownPct

		if outcome.Best == nil || score > bestScore {
			bestScore = score
			retries = 0
		} else {
			retries++
		}

		report := &model.RunReport{
			RunID:                     fmt.Sprintf("%s_it%03d", runStamp, iteration),
			CreatedAt:                 time.Now().UTC().Format(time.RFC3339),
			Mode:                      "optimize",
			Iteration:                 iteration,
			Strategy:                  strat.DisplayName(),
			StrategyID:                strat.ID(),
			Market:                    dataset.Market,
			Symbol:                    dataset.Symbol,
			Timeframes:                req.Timeframes,
			Params:                    candidate,
			Optimization:              meta,
			Backtest:                  result,
			Metrics:                   metrics,
			Gates:                     gates,
			Score:                     score,
			RetriesWithoutImprovement: retries,
		}
		outcome.Reports = append(outcome.Reports, report)
		if outcome.Best == nil || score >= outcome.Best.Score {
			outcome.Best = report
		}

		r.persist(ctx, report)

		if gates.Promoted {
			outcome.Promoted = true
			r.logger.Info("candidate promoted",
				zap.String("strategy", strat.ID()),
				zap.Int("iteration", iteration),
				zap.Float64("score", score),
			)
			break
		}
		if retries >= maxRetries {
			r.logger.Info("stopping after retries without improvement",
				zap.String("strategy", strat.ID()),
				zap.Int("iteration", iteration),
				zap.Int("retries", retries),
			)
			break
		}
	}

	return outcome, nil
}

// RunCampaign is the request-shaped entry point used by the HTTP layer.
func (r *Runner) RunCampaign(ctx context.Context, strategyID string, markets, symbols, timeframes []string, iterations int) (interface{}, error) {
	return r.Run(ctx, RunRequest{
		StrategyID: strategyID,
		Markets:    markets,
		Symbols:    symbols,
		Timeframes: timeframes,
		Iterations: iterations,
	})
}

// persist saves and publishes one report. Neither failure aborts the
// campaign; the in-memory outcome still carries the report.
func (r *Runner) persist(ctx context.Context, report *model.RunReport) {
	if r.sink != nil {
		if _, err := r.sink.Save(ctx, report); err != nil {
			r.logger.Error("failed to persist report",
				zap.String("run_id", report.RunID), zap.Error(err))
		}
	}

	if r.publisher == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		r.logger.Error("failed to marshal report", zap.Error(err))
		return
	}
	symbol := report.Symbol
	if symbol == "" {
		symbol = "unknown"
	}
	subject := fmt.Sprintf("backtest.report.%s.%s", report.StrategyID, symbol)
	if _, err := r.publisher.Publish(subject, data); err != nil {
		r.logger.Error("failed to publish report",
			zap.String("subject", subject), zap.Error(err))
	}
}
