package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/eziosantori/cbot-farm/internal/infrastructure"
	"github.com/eziosantori/cbot-farm/internal/model"
	"github.com/eziosantori/cbot-farm/internal/strategy"
)

// CandidateOutcome is one evaluated parameter candidate.
type CandidateOutcome struct {
	Index   int                   `json:"candidate_index"`
	Params  model.Params          `json:"params"`
	Metrics model.Metrics         `json:"metrics"`
	Score   float64               `json:"score"`
	Status  string                `json:"status"`
	Trades  int                   `json:"trades_count"`
	WinRate float64               `json:"win_rate_pct"`
	Result  *model.BacktestResult `json:"-"`
}

// WorkerPool fans parameter candidates out across goroutines. Each run is
// independent, so workers share nothing but the read-only bar slice;
// cancellation is coarse-grained between candidates.
type WorkerPool struct {
	workerCount int
	logger      *zap.Logger
}

func NewWorkerPool(workerCount int, logger *zap.Logger) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &WorkerPool{workerCount: workerCount, logger: logger}
}

// EvaluateAll runs every candidate against the bars and returns outcomes
// indexed like the input. Workers may finish in any order; the slice keeps
// candidate order. Score is total return minus max drawdown.
func (p *WorkerPool) EvaluateAll(
	ctx context.Context,
	bars []model.Bar,
	strategyID string,
	candidates []model.Params,
	cost model.CostProfile,
	timeframe string,
) ([]CandidateOutcome, error) {
	outcomes := make([]CandidateOutcome, len(candidates))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < p.workerCount; w++ {
		strat, err := strategy.New(strategyID)
		if err != nil {
			return nil, err
		}
		tester := NewBacktester(strat, cost, p.logger)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				result := tester.Run(bars, candidates[idx])
				metrics := ComputeMetrics(result, timeframe)
				outcomes[idx] = CandidateOutcome{
					Index:   idx,
					Params:  candidates[idx],
					Metrics: metrics,
					Score:   metrics.TotalReturnPct - metrics.MaxDrawdownPct,
					Status:  result.Status,
					Trades:  result.TradesCount,
					WinRate: result.WinRatePct,
					Result:  result,
				}
				infrastructure.CandidatesEvaluated.WithLabelValues(strategyID).Inc()
			}
		}()
	}

	submitted := 0
dispatch:
	for i := range candidates {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
			submitted++
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		p.logger.Warn("candidate evaluation cancelled",
			zap.String("strategy", strategyID),
			zap.Int("submitted", submitted),
			zap.Int("total", len(candidates)),
		)
		return outcomes[:submitted], err
	}
	return outcomes, nil
}
