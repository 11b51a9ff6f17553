package forecast

import (
	"testing"

	"CoinCast/pkg/nn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelKind(t *testing.T) {
	for _, s := range []string{"MLP", "GRU", "LSTM", "CNN-LSTM"} {
		kind, err := ParseModelKind(s)
		require.NoError(t, err)
		assert.Equal(t, ModelKind(s), kind)
	}

	for _, s := range []string{"RNN", "lstm", "", "Transformer"} {
		_, err := ParseModelKind(s)
		assert.ErrorIs(t, err, ErrUnknownArchitecture, "input %q", s)
	}
}

func TestBuildModelAllKinds(t *testing.T) {
	params := BuildParams{WindowSize: 12, Neurons: 4, Dropout: 0.2, LearningRate: 0.001, Seed: 1}
	for _, kind := range Kinds() {
		net, err := BuildModel(kind, params)
		require.NoError(t, err, "kind %s", kind)
		assert.NotNil(t, net)
	}
}

func TestBuildModelMLPTopology(t *testing.T) {
	net, err := BuildModel(KindMLP, BuildParams{WindowSize: 12, Neurons: 4, Dropout: 0.2, LearningRate: 0.001, Seed: 1})
	require.NoError(t, err)

	layers := net.Layers()
	require.Len(t, layers, 4)
	assert.Equal(t, nn.KindDense, layers[0].Kind)
	assert.Equal(t, 8, layers[0].Units, "first dense layer is twice the neuron count")
	assert.Equal(t, nn.KindDropout, layers[1].Kind)
	assert.Equal(t, nn.KindDense, layers[2].Kind)
	assert.Equal(t, 4, layers[2].Units)
	assert.Equal(t, nn.KindDense, layers[3].Kind)
	assert.Equal(t, 1, layers[3].Units, "output head follows the second dense directly")
}

func TestBuildModelCNNLSTMTopology(t *testing.T) {
	net, err := BuildModel(KindCNNLSTM, BuildParams{WindowSize: 12, Neurons: 4, Dropout: 0.2, LearningRate: 0.001, Seed: 1})
	require.NoError(t, err)

	layers := net.Layers()
	require.Len(t, layers, 7)
	assert.Equal(t, nn.KindConv1D, layers[0].Kind)
	assert.Equal(t, nn.KindMaxPool1D, layers[1].Kind)
	assert.Equal(t, nn.KindLSTM, layers[2].Kind)
	assert.True(t, layers[2].ReturnSeq, "first stacked lstm returns sequences")
	assert.Equal(t, nn.KindDropout, layers[3].Kind)
	assert.Equal(t, nn.KindLSTM, layers[4].Kind)
	assert.False(t, layers[4].ReturnSeq)
	assert.Equal(t, nn.KindDropout, layers[5].Kind)
	assert.Equal(t, nn.KindDense, layers[6].Kind)
	assert.Equal(t, 1, layers[6].Units)
}

func TestBuildModelUnknownKind(t *testing.T) {
	_, err := BuildModel(ModelKind("RNN"), BuildParams{})
	assert.ErrorIs(t, err, ErrUnknownArchitecture)
}

func TestInputTensorShapes(t *testing.T) {
	windows := [][]float64{
		{1, 2, 3, 4},
		{2, 3, 4, 5},
		{3, 4, 5, 6},
	}

	flat, err := InputTensor(KindMLP, windows)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, []int(flat.Shape()))

	for _, kind := range []ModelKind{KindGRU, KindLSTM, KindCNNLSTM} {
		seq, err := InputTensor(kind, windows)
		require.NoError(t, err)
		assert.Equal(t, []int{3, 4, 1}, []int(seq.Shape()), "kind %s", kind)
	}
}

func TestInputTensorRaggedWindows(t *testing.T) {
	_, err := InputTensor(KindMLP, [][]float64{{1, 2}, {1}})
	assert.Error(t, err)
}

func TestTargetTensorShape(t *testing.T) {
	y, err := TargetTensor([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, []int(y.Shape()))
}
