package forecast

import (
	"fmt"
	"testing"
	"time"

	"CoinCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

// stubModel applies fn to the input window's last value and records every
// window it sees.
type stubModel struct {
	fn   func(last float64) float64
	seen [][]float64
}

func (m *stubModel) Predict(x *tensor.Dense) (*tensor.Dense, error) {
	data := x.Data().([]float64)
	win := make([]float64, len(data))
	copy(win, data)
	m.seen = append(m.seen, win)

	out := m.fn(data[len(data)-1])
	return tensor.New(tensor.WithShape(1, 1), tensor.WithBacking([]float64{out})), nil
}

type failingModel struct{}

func (failingModel) Predict(*tensor.Dense) (*tensor.Dense, error) {
	return nil, fmt.Errorf("boom")
}

func testSeries(n int, interval models.Interval) *models.PriceSeries {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]models.PricePoint, n)
	for i := range points {
		points[i] = models.PricePoint{
			Time:  start.Add(time.Duration(i) * interval.Step()),
			Close: 100 + float64(i),
		}
	}
	return &models.PriceSeries{Ticker: "BTC-USD", Interval: interval, Points: points}
}

func fittedScaler(t *testing.T, series *models.PriceSeries) *MinMaxScaler {
	t.Helper()
	s := &MinMaxScaler{}
	require.NoError(t, s.Fit(series.Prices()))
	return s
}

func TestForecastLengthAndTimestamps(t *testing.T) {
	series := testSeries(80, models.IntervalDay)
	scaler := fittedScaler(t, series)
	model := &stubModel{fn: func(last float64) float64 { return last }}

	res, err := Forecast(model, scaler, series, KindMLP, 10, 5)
	require.NoError(t, err)

	assert.Len(t, res.Points, 5)
	last, _ := series.Last()
	assert.Equal(t, last.Close, res.LastClose)

	step := models.IntervalDay.Step()
	for i, p := range res.Points {
		want := last.Time.Add(time.Duration(i+1) * step)
		assert.True(t, p.Time.Equal(want), "point %d: got %v want %v", i, p.Time, want)
	}
}

func TestForecastSeedWindowExcludesFinalPoint(t *testing.T) {
	series := testSeries(80, models.IntervalDay)
	scaler := fittedScaler(t, series)
	model := &stubModel{fn: func(last float64) float64 { return last }}

	const window = 10
	_, err := Forecast(model, scaler, series, KindMLP, window, 1)
	require.NoError(t, err)

	scaled := scaler.TransformAll(series.Prices())
	want := scaled[len(scaled)-1-window : len(scaled)-1]
	require.Len(t, model.seen, 1)
	assert.InDeltaSlice(t, want, model.seen[0], 1e-12)
}

func TestForecastCompounds(t *testing.T) {
	series := testSeries(80, models.IntervalDay)
	scaler := fittedScaler(t, series)

	// Each step drifts the scaled value up; later windows must contain
	// earlier predictions.
	const drift = 0.01
	model := &stubModel{fn: func(last float64) float64 { return last + drift }}

	res, err := Forecast(model, scaler, series, KindMLP, 10, 5)
	require.NoError(t, err)

	for i := 1; i < len(res.Points); i++ {
		assert.Greater(t, res.Points[i].Price, res.Points[i-1].Price)
	}

	// The third window ends with the second prediction.
	secondPred := model.seen[1][len(model.seen[1])-1] + drift
	thirdWin := model.seen[2]
	assert.InDelta(t, secondPred, thirdWin[len(thirdWin)-1], 1e-12)
}

func TestForecastShortSeries(t *testing.T) {
	series := testSeries(10, models.IntervalDay)
	scaler := fittedScaler(t, series)
	model := &stubModel{fn: func(last float64) float64 { return last }}

	_, err := Forecast(model, scaler, series, KindMLP, 60, 5)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestForecastBadSteps(t *testing.T) {
	series := testSeries(80, models.IntervalDay)
	scaler := fittedScaler(t, series)
	model := &stubModel{fn: func(last float64) float64 { return last }}

	_, err := Forecast(model, scaler, series, KindMLP, 10, 0)
	assert.ErrorIs(t, err, ErrForecast)
}

func TestForecastUnfitScaler(t *testing.T) {
	series := testSeries(80, models.IntervalDay)
	model := &stubModel{fn: func(last float64) float64 { return last }}

	_, err := Forecast(model, &MinMaxScaler{}, series, KindMLP, 10, 5)
	assert.ErrorIs(t, err, ErrForecast)
	assert.Empty(t, model.seen, "an unfit scaler must fail before any prediction")
}

func TestForecastModelFailure(t *testing.T) {
	series := testSeries(80, models.IntervalDay)
	scaler := fittedScaler(t, series)

	_, err := Forecast(failingModel{}, scaler, series, KindMLP, 10, 5)
	assert.ErrorIs(t, err, ErrForecast)
}
