package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CoinCast/internal/domain/models"
	"CoinCast/internal/domain/repository"
	"CoinCast/internal/forecast"
	"CoinCast/internal/service/ticker"
	"CoinCast/pkg/config"
	"CoinCast/pkg/logger"
)

// ErrUnknownSymbol means the requested symbol is not in the catalog.
var ErrUnknownSymbol = errors.New("unknown symbol")

// ForecastService orchestrates training, forecasting and the supporting
// audit trail.
type ForecastService struct {
	cfg     *config.Config
	trainer *forecast.Trainer
	store   forecast.ArtifactStore
	market  repository.MarketData
	metrics repository.Metrics
	flog    repository.ForecastLog
	events  repository.EventPublisher
	stream  *ticker.Stream
	log     *logger.Logger
}

// NewForecastService wires the forecasting use case. stream may be nil
// when the live feed is disabled.
func NewForecastService(
	cfg *config.Config,
	trainer *forecast.Trainer,
	store forecast.ArtifactStore,
	market repository.MarketData,
	metrics repository.Metrics,
	flog repository.ForecastLog,
	events repository.EventPublisher,
	stream *ticker.Stream,
	log *logger.Logger,
) *ForecastService {
	return &ForecastService{
		cfg:     cfg,
		trainer: trainer,
		store:   store,
		market:  market,
		metrics: metrics,
		flog:    flog,
		events:  events,
		stream:  stream,
		log:     log,
	}
}

// resolveTicker maps a catalog name or ticker to the upstream ticker.
func (s *ForecastService) resolveTicker(symbol string) (string, error) {
	for _, sym := range s.cfg.Symbols {
		if sym.Name == symbol || sym.Ticker == symbol {
			return sym.Ticker, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
}

// Forecast serves a multi-step forecast, training the model first when
// it is missing and auto-training is allowed.
func (s *ForecastService) Forecast(ctx context.Context, req *models.ForecastRequest) (*models.ForecastResult, error) {
	start := time.Now()

	kind, err := forecast.ParseModelKind(req.Model)
	if err != nil {
		return nil, err
	}
	interval, err := models.ParseInterval(req.Interval)
	if err != nil {
		return nil, err
	}
	tick, err := s.resolveTicker(req.Symbol)
	if err != nil {
		return nil, err
	}

	mkey := forecast.ModelKey{Symbol: tick, Kind: kind, Interval: interval}
	skey := forecast.ScalerKey{Symbol: tick, Interval: interval}

	hit := s.store.HasModel(mkey) && s.store.HasScaler(skey)
	s.metrics.RecordArtifactLookup(hit)

	var (
		net     forecast.Model
		scaler  *forecast.MinMaxScaler
		trained bool
	)
	if hit {
		loaded, err := s.store.Model(mkey)
		if err != nil {
			return nil, err
		}
		net = loaded
		if scaler, err = s.store.Scaler(skey); err != nil {
			return nil, err
		}
	} else {
		if !req.Train() {
			return nil, fmt.Errorf("%w: model %s/%s/%s",
				forecast.ErrArtifactNotFound, tick, kind, interval)
		}
		fitted, sc, _, err := s.trainer.Train(ctx, s.trainParams(tick, kind, interval))
		if err != nil {
			s.metrics.RecordError("training")
			return nil, err
		}
		net, scaler, trained = fitted, sc, true
	}

	series, err := s.market.FetchSeries(ctx, tick, interval)
	if err != nil {
		s.metrics.RecordError("market_data")
		return nil, err
	}

	res, err := forecast.Forecast(net, scaler, series, kind, s.cfg.Forecast.WindowSize, req.Steps)
	if err != nil {
		s.metrics.RecordError("forecast")
		return nil, err
	}
	res.Trained = trained

	// Served alongside the forecast so callers can judge model quality.
	windows, targets, err := forecast.MakeWindows(scaler.TransformAll(series.Prices()), s.cfg.Forecast.WindowSize)
	if err != nil {
		return nil, err
	}
	if res.Metrics, err = forecast.Evaluate(net, kind, windows, targets); err != nil {
		s.metrics.RecordError("forecast")
		return nil, fmt.Errorf("%w: %w", forecast.ErrForecast, err)
	}

	s.metrics.RecordForecast(tick, string(kind), req.Steps, time.Since(start).Seconds())
	s.audit(ctx, res, req.Steps)

	return res, nil
}

// Train runs an explicit training pass with request hyperparameters.
func (s *ForecastService) Train(ctx context.Context, req *models.TrainRequest) (*models.TrainingReport, error) {
	kind, err := forecast.ParseModelKind(req.Model)
	if err != nil {
		return nil, err
	}
	interval, err := models.ParseInterval(req.Interval)
	if err != nil {
		return nil, err
	}
	tick, err := s.resolveTicker(req.Symbol)
	if err != nil {
		return nil, err
	}

	params := forecast.TrainParams{
		Ticker:    tick,
		Kind:      kind,
		Interval:  interval,
		Epochs:    req.Epochs,
		BatchSize: req.BatchSize,
		Build: forecast.BuildParams{
			WindowSize:   s.cfg.Forecast.WindowSize,
			Neurons:      req.Neurons,
			Dropout:      req.Dropout,
			LearningRate: req.LearningRate,
		},
	}

	_, _, report, err := s.trainer.Train(ctx, params)
	if err != nil {
		s.metrics.RecordError("training")
		return nil, err
	}

	s.metrics.RecordTraining(tick, string(kind), string(interval), report.Duration)
	if err := s.events.Publish(ctx, tick, map[string]interface{}{
		"type":     "model_trained",
		"ticker":   tick,
		"model":    string(kind),
		"interval": string(interval),
		"mse":      report.Metrics.MSE,
		"at":       report.CreatedAt,
	}); err != nil {
		s.log.Warn("publish training event failed", logger.Error(err))
	}

	return report, nil
}

// Symbols returns the configured instrument catalog.
func (s *ForecastService) Symbols() []models.Symbol {
	out := make([]models.Symbol, len(s.cfg.Symbols))
	for i, sym := range s.cfg.Symbols {
		out[i] = models.Symbol{Name: sym.Name, Ticker: sym.Ticker}
	}
	return out
}

// Live returns the freshest price available, preferring the streaming
// feed over the chart endpoint.
func (s *ForecastService) Live(ctx context.Context, symbol string) (*models.LivePrice, error) {
	tick, err := s.resolveTicker(symbol)
	if err != nil {
		return nil, err
	}

	if s.stream != nil {
		if price, ok := s.stream.Price(tick); ok {
			return &models.LivePrice{
				Ticker: tick,
				Price:  price,
				Time:   time.Now().UTC(),
				Source: "stream",
			}, nil
		}
	}

	point, err := s.market.FetchLivePrice(ctx, tick)
	if err != nil {
		s.metrics.RecordError("market_data")
		return nil, err
	}
	s.metrics.RecordLastPrice(tick, point.Close)
	return &models.LivePrice{
		Ticker: tick,
		Price:  point.Close,
		Time:   point.Time,
		Source: "chart",
	}, nil
}

// History returns recent forecast audit rows.
func (s *ForecastService) History(ctx context.Context, req *models.HistoryRequest) ([]models.ForecastRecord, error) {
	symbol := req.Symbol
	if symbol != "" {
		tick, err := s.resolveTicker(symbol)
		if err != nil {
			return nil, err
		}
		symbol = tick
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	return s.flog.Recent(ctx, symbol, limit)
}

func (s *ForecastService) trainParams(tick string, kind forecast.ModelKind, interval models.Interval) forecast.TrainParams {
	fc := s.cfg.Forecast
	return forecast.TrainParams{
		Ticker:    tick,
		Kind:      kind,
		Interval:  interval,
		Epochs:    fc.Epochs,
		BatchSize: fc.BatchSize,
		Build: forecast.BuildParams{
			WindowSize:   fc.WindowSize,
			Neurons:      fc.Neurons,
			Dropout:      fc.Dropout,
			LearningRate: fc.LearningRate,
		},
	}
}

// audit persists and publishes the served forecast. Failures are logged,
// never surfaced to the caller.
func (s *ForecastService) audit(ctx context.Context, res *models.ForecastResult, steps int) {
	if len(res.Points) == 0 {
		return
	}
	rec := models.ForecastRecord{
		Ticker:    res.Ticker,
		Model:     res.Model,
		Interval:  string(res.Interval),
		Steps:     steps,
		LastClose: res.LastClose,
		FirstPred: res.Points[0].Price,
		LastPred:  res.Points[len(res.Points)-1].Price,
		MSE:       res.Metrics.MSE,
		RMSE:      res.Metrics.RMSE,
		MAE:       res.Metrics.MAE,
		Trained:   res.Trained,
		CreatedAt: res.CreatedAt,
	}
	if err := s.flog.Store(ctx, rec); err != nil {
		s.log.Warn("store forecast record failed", logger.Error(err))
	}
	if err := s.events.Publish(ctx, rec.Ticker, map[string]interface{}{
		"type":       "forecast_served",
		"ticker":     rec.Ticker,
		"model":      rec.Model,
		"interval":   rec.Interval,
		"steps":      rec.Steps,
		"last_close": rec.LastClose,
		"last_pred":  rec.LastPred,
		"mse":        rec.MSE,
		"at":         rec.CreatedAt,
	}); err != nil {
		s.log.Warn("publish forecast event failed", logger.Error(err))
	}
}
