package forecast

import (
	"fmt"
	"time"

	"CoinCast/internal/domain/models"
)

// Forecast rolls the model forward steps times. Each prediction is pushed
// back into the input window, so later steps compound on earlier ones.
// Predictions happen in the scaled domain and are inverse-transformed in
// one batch at the end.
func Forecast(model Model, scaler *MinMaxScaler, series *models.PriceSeries, kind ModelKind, windowSize, steps int) (*models.ForecastResult, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("%w: steps must be positive, got %d", ErrForecast, steps)
	}
	if !scaler.Fitted {
		return nil, fmt.Errorf("%w: scaler has not been fitted", ErrForecast)
	}

	prices := series.Prices()
	scaled := scaler.TransformAll(prices)

	windows, _, err := MakeWindows(scaled, windowSize)
	if err != nil {
		return nil, err
	}
	roll := NewRollingWindow(windows[len(windows)-1])

	preds := make([]float64, 0, steps)
	for i := 0; i < steps; i++ {
		x, err := InputTensor(kind, [][]float64{roll.Values()})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrForecast, err)
		}
		out, err := model.Predict(x)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %w", ErrForecast, i, err)
		}
		v, err := scalarOut(out.Data())
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %w", ErrForecast, i, err)
		}
		preds = append(preds, v)
		roll.Push(v)
	}

	future := scaler.InverseAll(preds)

	last, ok := series.Last()
	if !ok {
		return nil, fmt.Errorf("%w: empty series", ErrForecast)
	}
	step := series.Interval.Step()

	points := make([]models.ForecastPoint, steps)
	for i, p := range future {
		points[i] = models.ForecastPoint{
			Time:  last.Time.Add(time.Duration(i+1) * step),
			Price: p,
		}
	}

	return &models.ForecastResult{
		Ticker:    series.Ticker,
		Model:     string(kind),
		Interval:  series.Interval,
		LastClose: last.Close,
		Points:    points,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func scalarOut(data interface{}) (float64, error) {
	switch d := data.(type) {
	case float64:
		return d, nil
	case []float64:
		if len(d) == 0 {
			return 0, fmt.Errorf("model returned empty output")
		}
		return d[0], nil
	}
	return 0, fmt.Errorf("model returned unexpected output type %T", data)
}
