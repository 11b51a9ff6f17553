package models

import (
	"fmt"
	"time"
)

// Interval is a candle interval supported by the market data source.
type Interval string

const (
	IntervalHour  Interval = "1h"
	IntervalDay   Interval = "1d"
	IntervalWeek  Interval = "1wk"
	IntervalMonth Interval = "1mo"
)

// ParseInterval validates an interval string.
func ParseInterval(s string) (Interval, error) {
	switch Interval(s) {
	case IntervalHour, IntervalDay, IntervalWeek, IntervalMonth:
		return Interval(s), nil
	}
	return "", fmt.Errorf("unknown interval %q", s)
}

// LookbackDays returns how much history to request for the interval.
// Hourly data is capped by the upstream API; coarser intervals reach back
// roughly ten years.
func (i Interval) LookbackDays() int {
	switch i {
	case IntervalHour:
		return 36
	case IntervalDay:
		return 369
	case IntervalWeek, IntervalMonth:
		return 3690
	}
	return 369
}

// Step returns the wall-clock duration of one candle. Months are
// approximated as thirty days.
func (i Interval) Step() time.Duration {
	switch i {
	case IntervalHour:
		return time.Hour
	case IntervalDay:
		return 24 * time.Hour
	case IntervalWeek:
		return 7 * 24 * time.Hour
	case IntervalMonth:
		return 30 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// Symbol is a tradable instrument from the configured catalog.
type Symbol struct {
	Name   string `json:"name"`
	Ticker string `json:"ticker"`
}

// PricePoint is a single observed close price.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Close float64   `json:"close"`
}

// PriceSeries is an ordered close price history for one instrument.
type PriceSeries struct {
	Ticker   string       `json:"ticker"`
	Interval Interval     `json:"interval"`
	Points   []PricePoint `json:"points"`
}

// Prices returns the close values in order.
func (s *PriceSeries) Prices() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

// Last returns the most recent point. ok is false for an empty series.
func (s *PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// ForecastPoint is one predicted future price.
type ForecastPoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// ForecastResult is a multi-step forecast for one instrument, together
// with the model's regression errors over the historical windows.
type ForecastResult struct {
	Ticker    string          `json:"ticker"`
	Model     string          `json:"model"`
	Interval  Interval        `json:"interval"`
	LastClose float64         `json:"last_close"`
	Points    []ForecastPoint `json:"points"`
	Metrics   EvalMetrics     `json:"metrics"`
	Trained   bool            `json:"trained"`
	CreatedAt time.Time       `json:"created_at"`
}

// EvalMetrics are regression errors in the scaled [0, 1] domain.
type EvalMetrics struct {
	MSE  float64 `json:"mse"`
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
}

// TrainingReport summarizes one training run.
type TrainingReport struct {
	Ticker    string      `json:"ticker"`
	Model     string      `json:"model"`
	Interval  Interval    `json:"interval"`
	Samples   int         `json:"samples"`
	Epochs    int         `json:"epochs"`
	Loss      []float64   `json:"loss"`
	MAE       []float64   `json:"mae"`
	ValLoss   []float64   `json:"val_loss,omitempty"`
	Metrics   EvalMetrics `json:"metrics"`
	Duration  float64     `json:"duration_seconds"`
	CreatedAt time.Time   `json:"created_at"`
}

// LivePrice is the most recent price for one instrument, either from
// the streaming feed or the chart endpoint.
type LivePrice struct {
	Ticker string    `json:"ticker"`
	Price  float64   `json:"price"`
	Time   time.Time `json:"time"`
	Source string    `json:"source"`
}

// ForecastRecord is one audit log row for a served forecast.
type ForecastRecord struct {
	Ticker    string    `json:"ticker"`
	Model     string    `json:"model"`
	Interval  string    `json:"interval"`
	Steps     int       `json:"steps"`
	LastClose float64   `json:"last_close"`
	FirstPred float64   `json:"first_pred"`
	LastPred  float64   `json:"last_pred"`
	MSE       float64   `json:"mse"`
	RMSE      float64   `json:"rmse"`
	MAE       float64   `json:"mae"`
	Trained   bool      `json:"trained"`
	CreatedAt time.Time `json:"created_at"`
}
