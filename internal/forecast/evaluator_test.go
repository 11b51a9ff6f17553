package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

// batchModel returns fixed predictions regardless of input.
type batchModel struct {
	preds []float64
}

func (m *batchModel) Predict(x *tensor.Dense) (*tensor.Dense, error) {
	out := make([]float64, len(m.preds))
	copy(out, m.preds)
	return tensor.New(tensor.WithShape(len(out), 1), tensor.WithBacking(out)), nil
}

func TestEvaluatePerfectModel(t *testing.T) {
	windows := [][]float64{{0.1, 0.2}, {0.2, 0.3}, {0.3, 0.4}}
	targets := []float64{0.3, 0.4, 0.5}

	metrics, err := Evaluate(&batchModel{preds: targets}, KindMLP, windows, targets)
	require.NoError(t, err)

	assert.Zero(t, metrics.MSE)
	assert.Zero(t, metrics.RMSE)
	assert.Zero(t, metrics.MAE)
}

func TestEvaluateKnownErrors(t *testing.T) {
	windows := [][]float64{{0.1, 0.2}, {0.2, 0.3}}
	targets := []float64{0.5, 0.5}
	preds := []float64{0.4, 0.7} // errors -0.1 and +0.2

	metrics, err := Evaluate(&batchModel{preds: preds}, KindMLP, windows, targets)
	require.NoError(t, err)

	wantMSE := (0.01 + 0.04) / 2
	assert.InDelta(t, wantMSE, metrics.MSE, 1e-12)
	assert.InDelta(t, math.Sqrt(wantMSE), metrics.RMSE, 1e-12)
	assert.InDelta(t, 0.15, metrics.MAE, 1e-12)
}

func TestEvaluateMismatchedInput(t *testing.T) {
	_, err := Evaluate(&batchModel{}, KindMLP, [][]float64{{1, 2}}, []float64{1, 2})
	assert.Error(t, err)

	_, err = Evaluate(&batchModel{}, KindMLP, nil, nil)
	assert.Error(t, err)
}
