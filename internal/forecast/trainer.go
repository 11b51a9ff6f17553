package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"CoinCast/internal/domain/models"
	"CoinCast/internal/domain/repository"
	"CoinCast/pkg/logger"
	"CoinCast/pkg/nn"
)

// TrainParams configures one training run.
type TrainParams struct {
	Ticker    string
	Kind      ModelKind
	Interval  models.Interval
	Epochs    int
	BatchSize int
	ValSplit  float64
	Build     BuildParams
}

func (p *TrainParams) normalize() {
	if p.Epochs <= 0 {
		p.Epochs = 8
	}
	if p.BatchSize <= 0 {
		p.BatchSize = 32
	}
	if p.ValSplit <= 0 || p.ValSplit >= 1 {
		p.ValSplit = 0.1
	}
	p.Build.normalize()
}

// Trainer fetches history, fits a scaler and a network, and persists
// both. Artifacts are only written after the fit succeeds, so a failed
// run leaves the store untouched.
type Trainer struct {
	market repository.MarketData
	store  ArtifactStore
	log    *logger.Logger
}

// NewTrainer creates a trainer.
func NewTrainer(market repository.MarketData, store ArtifactStore, log *logger.Logger) *Trainer {
	return &Trainer{market: market, store: store, log: log}
}

// Train runs the full pipeline for one (ticker, architecture, interval)
// combination and returns the fitted network, the scaler and a report.
func (t *Trainer) Train(ctx context.Context, p TrainParams) (*nn.Network, *MinMaxScaler, *models.TrainingReport, error) {
	p.normalize()
	start := time.Now()

	series, err := t.market.FetchSeries(ctx, p.Ticker, p.Interval)
	if err != nil {
		return nil, nil, nil, err
	}
	prices := series.Prices()
	if len(prices) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: empty series for %s", ErrDataUnavailable, p.Ticker)
	}

	// Reuse a previously fitted scaler so predictions from different
	// architectures live on the same scale.
	skey := ScalerKey{Symbol: p.Ticker, Interval: p.Interval}
	var (
		scaler    *MinMaxScaler
		newScaler bool
	)
	if t.store.HasScaler(skey) {
		if scaler, err = t.store.Scaler(skey); err != nil {
			return nil, nil, nil, fmt.Errorf("%w: load scaler: %w", ErrTraining, err)
		}
	} else {
		scaler = &MinMaxScaler{}
		if err := scaler.Fit(prices); err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %w", ErrTraining, err)
		}
		newScaler = true
	}

	scaled := scaler.TransformAll(prices)
	windows, targets, err := MakeWindows(scaled, p.Build.WindowSize)
	if err != nil {
		return nil, nil, nil, err
	}

	net, err := BuildModel(p.Kind, p.Build)
	if err != nil {
		return nil, nil, nil, err
	}

	x, err := InputTensor(p.Kind, windows)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrTraining, err)
	}
	y, err := TargetTensor(targets)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrTraining, err)
	}

	t.log.Info("training model",
		logger.String("ticker", p.Ticker),
		logger.String("model", string(p.Kind)),
		logger.String("interval", string(p.Interval)),
		logger.Int("samples", len(windows)),
		logger.Int("epochs", p.Epochs),
	)

	hist, err := net.Fit(x, y, p.Epochs, p.BatchSize, p.ValSplit)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrTraining, err)
	}

	mse, mae, err := net.Evaluate(x, y)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrTraining, err)
	}

	if newScaler {
		if err := t.store.PutScaler(skey, scaler); err != nil {
			return nil, nil, nil, fmt.Errorf("%w: persist scaler: %w", ErrTraining, err)
		}
	}
	mkey := ModelKey{Symbol: p.Ticker, Kind: p.Kind, Interval: p.Interval}
	if err := t.store.PutModel(mkey, net); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: persist model: %w", ErrTraining, err)
	}

	report := &models.TrainingReport{
		Ticker:   p.Ticker,
		Model:    string(p.Kind),
		Interval: p.Interval,
		Samples:  len(windows),
		Epochs:   p.Epochs,
		Loss:     hist.Loss,
		MAE:      hist.MAE,
		ValLoss:  hist.ValLoss,
		Metrics: models.EvalMetrics{
			MSE:  mse,
			RMSE: math.Sqrt(mse),
			MAE:  mae,
		},
		Duration:  time.Since(start).Seconds(),
		CreatedAt: time.Now().UTC(),
	}

	t.log.Info("training complete",
		logger.String("ticker", p.Ticker),
		logger.String("model", string(p.Kind)),
		logger.Float64("mse", report.Metrics.MSE),
		logger.Float64("mae", report.Metrics.MAE),
		logger.Duration("took", time.Since(start)),
	)

	return net, scaler, report, nil
}
