package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"CoinCast/internal/domain/models"
	"CoinCast/internal/forecast"
	"CoinCast/pkg/config"
	"CoinCast/pkg/logger"
	"CoinCast/pkg/nn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarket struct {
	series *models.PriceSeries
}

func (m *fakeMarket) FetchSeries(ctx context.Context, ticker string, interval models.Interval) (*models.PriceSeries, error) {
	return m.series, nil
}

func (m *fakeMarket) FetchLivePrice(ctx context.Context, ticker string) (models.PricePoint, error) {
	p, _ := m.series.Last()
	return p, nil
}

type memStore struct {
	mu      sync.Mutex
	nets    map[forecast.ModelKey]*nn.Network
	scalers map[forecast.ScalerKey]*forecast.MinMaxScaler
}

func newMemStore() *memStore {
	return &memStore{
		nets:    make(map[forecast.ModelKey]*nn.Network),
		scalers: make(map[forecast.ScalerKey]*forecast.MinMaxScaler),
	}
}

func (s *memStore) HasModel(key forecast.ModelKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.nets[key]
	return ok
}

func (s *memStore) PutModel(key forecast.ModelKey, net *nn.Network) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nets[key] = net
	return nil
}

func (s *memStore) Model(key forecast.ModelKey) (*nn.Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if net, ok := s.nets[key]; ok {
		return net, nil
	}
	return nil, forecast.ErrArtifactNotFound
}

func (s *memStore) HasScaler(key forecast.ScalerKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.scalers[key]
	return ok
}

func (s *memStore) PutScaler(key forecast.ScalerKey, scaler *forecast.MinMaxScaler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scalers[key] = scaler
	return nil
}

func (s *memStore) Scaler(key forecast.ScalerKey) (*forecast.MinMaxScaler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc, ok := s.scalers[key]; ok {
		return sc, nil
	}
	return nil, forecast.ErrArtifactNotFound
}

type nopMetrics struct{}

func (nopMetrics) RecordTraining(string, string, string, float64) {}
func (nopMetrics) RecordForecast(string, string, int, float64)    {}
func (nopMetrics) RecordError(string)                             {}
func (nopMetrics) RecordLastPrice(string, float64)                {}
func (nopMetrics) RecordArtifactLookup(bool)                      {}

type memLog struct {
	mu   sync.Mutex
	recs []models.ForecastRecord
}

func (l *memLog) Store(ctx context.Context, rec models.ForecastRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recs = append(l.recs, rec)
	return nil
}

func (l *memLog) Recent(ctx context.Context, symbol string, limit int) ([]models.ForecastRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.ForecastRecord(nil), l.recs...), nil
}

type memEvents struct {
	mu   sync.Mutex
	keys []string
}

func (e *memEvents) Publish(ctx context.Context, key string, event interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keys = append(e.keys, key)
	return nil
}

func (e *memEvents) Close() error { return nil }

func newTestService(t *testing.T) (*ForecastService, *memStore, *memLog) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Environment = "test"
	cfg.Symbols = []config.Symbol{{Name: "Bitcoin", Ticker: "BTC-USD"}}
	cfg.Forecast.WindowSize = 8
	cfg.Forecast.Epochs = 1
	cfg.Forecast.BatchSize = 16
	cfg.Forecast.Neurons = 4
	cfg.Forecast.Dropout = 0.1
	cfg.Forecast.LearningRate = 0.01

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]models.PricePoint, 40)
	for i := range points {
		points[i] = models.PricePoint{
			Time:  start.Add(time.Duration(i) * 24 * time.Hour),
			Close: 40000 + 100*float64(i%7),
		}
	}
	market := &fakeMarket{series: &models.PriceSeries{
		Ticker: "BTC-USD", Interval: models.IntervalDay, Points: points,
	}}

	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)

	store := newMemStore()
	flog := &memLog{}
	trainer := forecast.NewTrainer(market, store, l)
	svc := NewForecastService(cfg, trainer, store, market, nopMetrics{}, flog, &memEvents{}, nil, l)
	return svc, store, flog
}

func TestForecastAutoTrainDisabled(t *testing.T) {
	svc, _, _ := newTestService(t)

	off := false
	_, err := svc.Forecast(context.Background(), &models.ForecastRequest{
		Symbol:    "BTC-USD",
		Model:     "MLP",
		Interval:  "1d",
		Steps:     5,
		AutoTrain: &off,
	})
	assert.ErrorIs(t, err, forecast.ErrArtifactNotFound)
}

func TestForecastAutoTrains(t *testing.T) {
	svc, store, flog := newTestService(t)

	res, err := svc.Forecast(context.Background(), &models.ForecastRequest{
		Symbol:   "Bitcoin",
		Model:    "MLP",
		Interval: "1d",
		Steps:    5,
	})
	require.NoError(t, err)

	assert.True(t, res.Trained, "first call must train")
	assert.Len(t, res.Points, 5)
	assert.Equal(t, "BTC-USD", res.Ticker)
	assert.Greater(t, res.Metrics.MSE, 0.0, "forecast carries evaluation metrics")
	assert.InDelta(t, res.Metrics.MSE, res.Metrics.RMSE*res.Metrics.RMSE, 1e-12)

	key := forecast.ModelKey{Symbol: "BTC-USD", Kind: forecast.KindMLP, Interval: models.IntervalDay}
	assert.True(t, store.HasModel(key), "artifact must be persisted")

	// second call reuses the artifact
	res2, err := svc.Forecast(context.Background(), &models.ForecastRequest{
		Symbol:   "BTC-USD",
		Model:    "MLP",
		Interval: "1d",
		Steps:    5,
	})
	require.NoError(t, err)
	assert.False(t, res2.Trained, "second call must reuse the stored model")

	recs, err := flog.Recent(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Len(t, recs, 2, "every served forecast is audited")
	assert.Greater(t, recs[0].MSE, 0.0, "audit rows carry evaluation metrics")
}

func TestSymbolsCatalog(t *testing.T) {
	svc, _, _ := newTestService(t)

	syms := svc.Symbols()
	require.Len(t, syms, 1)
	assert.Equal(t, models.Symbol{Name: "Bitcoin", Ticker: "BTC-USD"}, syms[0])
}

func TestForecastUnknownSymbol(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Forecast(context.Background(), &models.ForecastRequest{
		Symbol: "SHIB-USD", Model: "MLP", Interval: "1d", Steps: 5,
	})
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestForecastUnknownModel(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Forecast(context.Background(), &models.ForecastRequest{
		Symbol: "BTC-USD", Model: "RNN", Interval: "1d", Steps: 5,
	})
	assert.ErrorIs(t, err, forecast.ErrUnknownArchitecture)
}

func TestTrainReturnsReport(t *testing.T) {
	svc, store, _ := newTestService(t)

	report, err := svc.Train(context.Background(), &models.TrainRequest{
		Symbol:       "BTC-USD",
		Model:        "MLP",
		Interval:     "1d",
		Epochs:       1,
		BatchSize:    16,
		Neurons:      4,
		Dropout:      0.1,
		LearningRate: 0.01,
	})
	require.NoError(t, err)

	assert.Equal(t, "BTC-USD", report.Ticker)
	assert.Len(t, report.Loss, 1)
	assert.GreaterOrEqual(t, report.Metrics.RMSE, 0.0)
	assert.True(t, store.HasScaler(forecast.ScalerKey{Symbol: "BTC-USD", Interval: models.IntervalDay}))
}

func TestLiveFallsBackToChart(t *testing.T) {
	svc, _, _ := newTestService(t)

	price, err := svc.Live(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, "chart", price.Source)
	assert.Greater(t, price.Price, 0.0)
}
