package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"github.com/eziosantori/cbot-farm/internal/infrastructure"
	"github.com/eziosantori/cbot-farm/internal/model"
)

// ReportStore persists run reports twice: the full payload as a JSON file
// under the reports directory, and a summary row in Postgres for listing.
type ReportStore struct {
	db         *pgxpool.Pool
	reportsDir string
	logger     *zap.Logger
}

func NewReportStore(db *pgxpool.Pool, reportsDir string, logger *zap.Logger) *ReportStore {
	return &ReportStore{
		db:         db,
		reportsDir: reportsDir,
		logger:     logger,
	}
}

// ReportSummary is the index row kept in Postgres.
type ReportSummary struct {
	ID             int64     `json:"id"`
	RunID          string    `json:"run_id"`
	Strategy       string    `json:"strategy"`
	Market         string    `json:"market"`
	Symbol         string    `json:"symbol"`
	Timeframe      string    `json:"timeframe"`
	Status         string    `json:"status"`
	Promoted       bool      `json:"promoted"`
	TotalReturnPct float64   `json:"total_return_pct"`
	Sharpe         float64   `json:"sharpe"`
	MaxDrawdownPct float64   `json:"max_drawdown_pct"`
	Score          float64   `json:"score"`
	FilePath       string    `json:"file_path"`
	CreatedAt      time.Time `json:"created_at"`
}

// Save writes the JSON report file and inserts the index row. The file write
// happens first so a DB failure never leaves an index entry without a payload.
func (s *ReportStore) Save(ctx context.Context, report *model.RunReport) (string, error) {
	path, err := s.writeFile(report)
	if err != nil {
		return "", err
	}
	infrastructure.ReportsPersisted.WithLabelValues("file").Inc()

	if s.db == nil {
		return path, nil
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO backtest_runs
			(run_id, strategy, market, symbol, timeframe, status, promoted,
			 total_return_pct, sharpe, max_drawdown_pct, score, file_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		report.RunID, report.StrategyID, report.Market, report.Symbol,
		report.Timeframe(), report.Status(), report.Gates.Promoted,
		report.Metrics.TotalReturnPct, report.Metrics.Sharpe,
		report.Metrics.MaxDrawdownPct, report.Score, path,
	)
	if err != nil {
		return path, fmt.Errorf("failed to index report: %w", err)
	}
	infrastructure.ReportsPersisted.WithLabelValues("postgres").Inc()
	return path, nil
}

func (s *ReportStore) writeFile(report *model.RunReport) (string, error) {
	dir := filepath.Join(s.reportsDir, report.StrategyID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s_%s.json", report.Symbol, report.Timeframe(), report.RunID, report.Status())
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	s.logger.Info("report persisted",
		zap.String("run_id", report.RunID),
		zap.String("strategy", report.StrategyID),
		zap.String("path", path),
	)
	return path, nil
}

// List returns the most recent index rows, optionally filtered by strategy.
func (s *ReportStore) List(ctx context.Context, strategy string, limit int) ([]ReportSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, run_id, strategy, market, symbol, timeframe, status, promoted,
		       total_return_pct, sharpe, max_drawdown_pct, score, file_path, created_at
		FROM backtest_runs`
	args := []interface{}{}
	if strategy != "" {
		query += " WHERE strategy = $1"
		args = append(args, strategy)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	summaries := make([]ReportSummary, 0)
	for rows.Next() {
		var r ReportSummary
		if err := rows.Scan(&r.ID, &r.RunID, &r.Strategy, &r.Market, &r.Symbol,
			&r.Timeframe, &r.Status, &r.Promoted, &r.TotalReturnPct, &r.Sharpe,
			&r.MaxDrawdownPct, &r.Score, &r.FilePath, &r.CreatedAt); err != nil {
			s.logger.Error("failed to scan report row", zap.Error(err))
			continue
		}
		summaries = append(summaries, r)
	}
	return summaries, rows.Err()
}

// Get loads the full report payload for a run from its JSON file.
func (s *ReportStore) Get(ctx context.Context, runID string) (*model.RunReport, error) {
	var path string
	err := s.db.QueryRow(ctx,
		"SELECT file_path FROM backtest_runs WHERE run_id = $1", runID).Scan(&path)
	if err != nil {
		return nil, fmt.Errorf("run %s not found: %w", runID, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}

	var report model.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report file: %w", err)
	}
	return &report, nil
}
