package repository

import (
	"context"
	"time"

	"CoinCast/internal/domain/models"
)

// MarketData fetches historical and live prices from an upstream source.
type MarketData interface {
	// FetchSeries returns close prices for the ticker over the interval's
	// lookback period, oldest first.
	FetchSeries(ctx context.Context, ticker string, interval models.Interval) (*models.PriceSeries, error)
	// FetchLivePrice returns the most recent traded price.
	FetchLivePrice(ctx context.Context, ticker string) (models.PricePoint, error)
}

// Cache provides read-through caching for upstream responses.
type Cache interface {
	// GetOrFill returns the cached payload for key, calling fill on a miss
	// and storing its result for ttl.
	GetOrFill(ctx context.Context, key string, ttl time.Duration, fill func(ctx context.Context) ([]byte, error)) ([]byte, error)
}

// Metrics records operational measurements.
type Metrics interface {
	RecordTraining(symbol, model, interval string, seconds float64)
	RecordForecast(symbol, model string, steps int, seconds float64)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordArtifactLookup(hit bool)
}

// ForecastLog persists served forecasts for later inspection.
type ForecastLog interface {
	Store(ctx context.Context, rec models.ForecastRecord) error
	Recent(ctx context.Context, symbol string, limit int) ([]models.ForecastRecord, error)
}

// EventPublisher emits domain events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event interface{}) error
	Close() error
}
