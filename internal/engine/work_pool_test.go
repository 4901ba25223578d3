package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eziosantori/cbot-farm/internal/model"
	"github.com/eziosantori/cbot-farm/internal/strategy"
)

func trendingBars(n int) []model.Bar {
	bars := make([]model.Bar, n)
	price := 100.0
	for i := range bars {
		if i%9 < 5 {
			price *= 1.012
		} else {
			price *= 0.992
		}
		bars[i] = model.Bar{
			Timestamp: int64(1700000000 + i*3600),
			Open:      price,
			High:      price * 1.004,
			Low:       price * 0.996,
			Close:     price,
		}
	}
	return bars
}

func TestWorkerPoolEvaluatesAllCandidatesInOrder(t *testing.T) {
	bars := trendingBars(150)
	candidates := []model.Params{
		{"ema_fast": 5, "ema_slow": 12},
		{"ema_fast": 8, "ema_slow": 21},
		{"ema_fast": 3, "ema_slow": 30},
		{"ema_fast": 10, "ema_slow": 40},
	}

	pool := NewWorkerPool(3, zap.NewNop())
	outcomes, err := pool.EvaluateAll(context.Background(), bars, "ema_cross_atr", candidates, model.CostProfile{}, "1h")
	require.NoError(t, err)
	require.Len(t, outcomes, len(candidates))

	for i, out := range outcomes {
		assert.Equal(t, i, out.Index)
		assert.Equal(t, candidates[i], out.Params)
		assert.Equal(t, model.StatusOK, out.Status)
		assert.InDelta(t, out.Metrics.TotalReturnPct-out.Metrics.MaxDrawdownPct, out.Score, 1e-9)
		require.NotNil(t, out.Result)
	}
}

func TestWorkerPoolMatchesSequentialRuns(t *testing.T) {
	bars := trendingBars(150)
	candidates := []model.Params{
		{"ema_fast": 5, "ema_slow": 12},
		{"ema_fast": 8, "ema_slow": 21},
	}
	cost := model.CostProfile{PerSideCostFraction: 0.0002}

	pool := NewWorkerPool(2, zap.NewNop())
	outcomes, err := pool.EvaluateAll(context.Background(), bars, "ema_cross_atr", candidates, cost, "1h")
	require.NoError(t, err)

	for i, candidate := range candidates {
		strat, err := strategy.New("ema_cross_atr")
		require.NoError(t, err)
		result := NewBacktester(strat, cost, zap.NewNop()).Run(bars, candidate)
		assert.Equal(t, ComputeMetrics(result, "1h"), outcomes[i].Metrics)
		assert.Equal(t, result.TradesCount, outcomes[i].Trades)
	}
}

func TestWorkerPoolUnknownStrategy(t *testing.T) {
	pool := NewWorkerPool(2, zap.NewNop())
	_, err := pool.EvaluateAll(context.Background(), trendingBars(30), "nope", []model.Params{{}}, model.CostProfile{}, "1h")
	assert.Error(t, err)
}

func TestWorkerPoolCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	candidates := make([]model.Params, 50)
	for i := range candidates {
		candidates[i] = model.Params{"ema_fast": 5, "ema_slow": 12}
	}

	pool := NewWorkerPool(2, zap.NewNop())
	outcomes, err := pool.EvaluateAll(ctx, trendingBars(60), "ema_cross_atr", candidates, model.CostProfile{}, "1h")
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, len(outcomes), len(candidates))
}
