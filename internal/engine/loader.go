package engine

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/eziosantori/cbot-farm/internal/model"
)

// DataLoader reads historical bars from Postgres for API-driven backtests.
type DataLoader struct {
	pool *pgxpool.Pool
}

func NewDataLoader(pool *pgxpool.Pool) *DataLoader {
	return &DataLoader{pool: pool}
}

func (l *DataLoader) LoadBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]model.Bar, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT time, open, high, low, close
		FROM bars
		WHERE symbol = $1 AND timeframe = $2 AND time >= $3 AND time <= $4
		ORDER BY time ASC`,
		symbol, timeframe, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var ts time.Time
		var open, high, low, closePx decimal.Decimal
		if err := rows.Scan(&ts, &open, &high, &low, &closePx); err != nil {
			return nil, err
		}
		bars = append(bars, model.Bar{
			Timestamp: ts.Unix(),
			Open:      open.InexactFloat64(),
			High:      high.InexactFloat64(),
			Low:       low.InexactFloat64(),
			Close:     closePx.InexactFloat64(),
		})
	}
	return bars, rows.Err()
}
