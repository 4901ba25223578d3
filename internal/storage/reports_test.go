package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eziosantori/cbot-farm/internal/model"
)

func TestSaveWritesReportFile(t *testing.T) {
	dir := t.TempDir()
	store := NewReportStore(nil, dir, zap.NewNop())

	report := &model.RunReport{
		RunID:      "20260823T120000_abc123",
		StrategyID: "ema_cross_atr",
		Strategy:   "EMA Cross + ATR",
		Market:     "forex",
		Symbol:     "EURUSD",
		Timeframes: []string{"1h"},
		Backtest: &model.BacktestResult{
			Status:    model.StatusOK,
			Timeframe: "1h",
		},
		Metrics: model.Metrics{TotalReturnPct: 3.21, Sharpe: 1.1},
		Score:   1.05,
	}

	path, err := store.Save(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ema_cross_atr", "EURUSD_1h_20260823T120000_abc123_ok.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded model.RunReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, report.RunID, decoded.RunID)
	assert.Equal(t, report.Metrics, decoded.Metrics)
	assert.Equal(t, model.StatusOK, decoded.Status())
}

func TestSaveFailedRunUsesSentinelStatusInName(t *testing.T) {
	dir := t.TempDir()
	store := NewReportStore(nil, dir, zap.NewNop())

	report := &model.RunReport{
		RunID:      "r1",
		StrategyID: "supertrend_rsi",
		Symbol:     "BTCUSD",
		Timeframes: []string{"5m"},
		Backtest:   &model.BacktestResult{Status: model.StatusFailed, Reason: "insufficient bars"},
		Metrics:    model.WorstCaseMetrics(),
	}

	path, err := store.Save(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSD_5m_r1_failed.json", filepath.Base(path))
}
