package nn

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func randomData(t *testing.T, rows, cols int) (*tensor.Dense, *tensor.Dense) {
	t.Helper()
	rng := rand.New(rand.NewSource(7))

	xb := make([]float64, rows*cols)
	yb := make([]float64, rows)
	for i := range xb {
		xb[i] = rng.Float64()
	}
	for i := 0; i < rows; i++ {
		// target correlates with the row mean, so there is something to fit
		var sum float64
		for j := 0; j < cols; j++ {
			sum += xb[i*cols+j]
		}
		yb[i] = sum / float64(cols)
	}

	x := tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(xb))
	y := tensor.New(tensor.WithShape(rows, 1), tensor.WithBacking(yb))
	return x, y
}

func TestCompileValidation(t *testing.T) {
	err := NewNetwork([]int{4}).Compile(0.001)
	assert.Error(t, err, "no layers")

	err = NewNetwork([]int{4, 1}, Dense(1, ActLinear)).Compile(0.001)
	assert.Error(t, err, "dense on sequence input")

	err = NewNetwork([]int{4}, LSTM(3, false)).Compile(0.001)
	assert.Error(t, err, "lstm on flat input")

	err = NewNetwork([]int{4}, Dropout(1.5), Dense(1, ActLinear)).Compile(0.001)
	assert.Error(t, err, "dropout rate out of range")

	err = NewNetwork([]int{5, 1}, MaxPool1D(2), Dense(1, ActLinear)).Compile(0.001)
	assert.Error(t, err, "pool does not divide timesteps")

	err = NewNetwork([]int{4, 1}, LSTM(3, true)).Compile(0.001)
	assert.Error(t, err, "sequence output is not flat")

	err = NewNetwork([]int{4}, Dense(1, ActLinear)).Compile(0)
	assert.Error(t, err, "zero learning rate")
}

func TestPredictDeterministic(t *testing.T) {
	net := NewNetwork([]int{4},
		Dense(3, ActReLU),
		Dropout(0.5),
		Dense(1, ActLinear),
	)
	require.NoError(t, net.Compile(0.001, WithSeed(11)))

	x := tensor.New(tensor.WithShape(1, 4), tensor.WithBacking([]float64{0.1, 0.2, 0.3, 0.4}))

	a, err := net.Predict(x)
	require.NoError(t, err)
	b, err := net.Predict(x)
	require.NoError(t, err)

	assert.Equal(t, a.Data(), b.Data(), "inference must skip dropout")
}

func TestFitHistory(t *testing.T) {
	x, y := randomData(t, 20, 4)

	net := NewNetwork([]int{4},
		Dense(8, ActReLU),
		Dense(1, ActLinear),
	)
	require.NoError(t, net.Compile(0.01, WithSeed(3)))

	hist, err := net.Fit(x, y, 3, 8, 0.2)
	require.NoError(t, err)

	assert.Len(t, hist.Loss, 3)
	assert.Len(t, hist.MAE, 3)
	assert.Len(t, hist.ValLoss, 3)
	for i := range hist.Loss {
		assert.False(t, math.IsNaN(hist.Loss[i]), "epoch %d loss", i)
		assert.GreaterOrEqual(t, hist.Loss[i], 0.0)
		assert.GreaterOrEqual(t, hist.MAE[i], 0.0)
	}
}

func TestFitValidatesArgs(t *testing.T) {
	x, y := randomData(t, 10, 4)

	net := NewNetwork([]int{4}, Dense(1, ActLinear))
	require.NoError(t, net.Compile(0.01))

	_, err := net.Fit(x, y, 0, 8, 0)
	assert.Error(t, err, "zero epochs")

	uncompiled := NewNetwork([]int{4}, Dense(1, ActLinear))
	_, err = uncompiled.Fit(x, y, 1, 8, 0)
	assert.Error(t, err, "fit before compile")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	net := NewNetwork([]int{4},
		Dense(3, ActTanh),
		Dense(1, ActLinear),
	)
	require.NoError(t, net.Compile(0.001, WithSeed(5)))

	x := tensor.New(tensor.WithShape(1, 4), tensor.WithBacking([]float64{0.4, 0.3, 0.2, 0.1}))
	want, err := net.Predict(x)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, net.Save(&buf))

	restored, err := Load(&buf)
	require.NoError(t, err)

	got, err := restored.Predict(x)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.Data().([]float64), got.Data().([]float64), 1e-12)
}

func TestEvaluateMatchesResiduals(t *testing.T) {
	x, y := randomData(t, 12, 4)

	net := NewNetwork([]int{4}, Dense(1, ActLinear))
	require.NoError(t, net.Compile(0.01, WithSeed(9)))

	mse, mae, err := net.Evaluate(x, y)
	require.NoError(t, err)

	preds, err := net.Predict(x)
	require.NoError(t, err)

	pd := preds.Data().([]float64)
	yd := y.Data().([]float64)
	var wantMSE, wantMAE float64
	for i := range pd {
		d := pd[i] - yd[i]
		wantMSE += d * d
		wantMAE += math.Abs(d)
	}
	wantMSE /= float64(len(pd))
	wantMAE /= float64(len(pd))

	assert.InDelta(t, wantMSE, mse, 1e-9)
	assert.InDelta(t, wantMAE, mae, 1e-9)
}
