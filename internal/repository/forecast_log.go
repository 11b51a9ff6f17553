package repository

import (
	"context"
	"database/sql"
	"fmt"

	"CoinCast/internal/domain/models"
	"CoinCast/internal/domain/repository"
)

// ForecastLogSchema returns the idempotent DDL for the audit table.
func ForecastLogSchema(table string) []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts DateTime,
		symbol String,
		model String,
		candle_interval String,
		steps UInt32,
		last_close Float64,
		first_pred Float64,
		last_pred Float64,
		mse Float64,
		rmse Float64,
		mae Float64,
		trained UInt8
	) ENGINE = MergeTree()
	ORDER BY (symbol, ts)`, table)}
}

// ClickHouseForecastLog implements ForecastLog on ClickHouse.
type ClickHouseForecastLog struct {
	db    *sql.DB
	table string
}

// NewClickHouseForecastLog creates a ClickHouse-backed forecast log.
func NewClickHouseForecastLog(db *sql.DB, table string) repository.ForecastLog {
	return &ClickHouseForecastLog{db: db, table: table}
}

func (l *ClickHouseForecastLog) Store(ctx context.Context, rec models.ForecastRecord) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (ts, symbol, model, candle_interval, steps, last_close, first_pred, last_pred, mse, rmse, mae, trained) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		l.table)
	trained := uint8(0)
	if rec.Trained {
		trained = 1
	}
	_, err := l.db.ExecContext(ctx, q,
		rec.CreatedAt,
		rec.Ticker,
		rec.Model,
		rec.Interval,
		uint32(rec.Steps),
		rec.LastClose,
		rec.FirstPred,
		rec.LastPred,
		rec.MSE,
		rec.RMSE,
		rec.MAE,
		trained,
	)
	if err != nil {
		return fmt.Errorf("store forecast record: %w", err)
	}
	return nil
}

func (l *ClickHouseForecastLog) Recent(ctx context.Context, symbol string, limit int) ([]models.ForecastRecord, error) {
	q := fmt.Sprintf(
		"SELECT ts, symbol, model, candle_interval, steps, last_close, first_pred, last_pred, mse, rmse, mae, trained FROM %s",
		l.table)
	args := []interface{}{}
	if symbol != "" {
		q += " WHERE symbol = ?"
		args = append(args, symbol)
	}
	q += " ORDER BY ts DESC LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query forecast records: %w", err)
	}
	defer rows.Close()

	var recs []models.ForecastRecord
	for rows.Next() {
		var (
			rec     models.ForecastRecord
			steps   uint32
			trained uint8
		)
		if err := rows.Scan(&rec.CreatedAt, &rec.Ticker, &rec.Model, &rec.Interval,
			&steps, &rec.LastClose, &rec.FirstPred, &rec.LastPred,
			&rec.MSE, &rec.RMSE, &rec.MAE, &trained); err != nil {
			return nil, fmt.Errorf("scan forecast record: %w", err)
		}
		rec.Steps = int(steps)
		rec.Trained = trained == 1
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// NopForecastLog discards records. Used when ClickHouse is disabled.
type NopForecastLog struct{}

func (NopForecastLog) Store(context.Context, models.ForecastRecord) error {
	return nil
}

func (NopForecastLog) Recent(context.Context, string, int) ([]models.ForecastRecord, error) {
	return nil, nil
}
