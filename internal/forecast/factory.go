package forecast

import (
	"fmt"

	"CoinCast/pkg/nn"

	"gorgonia.org/tensor"
)

// ModelKind names a supported network architecture.
type ModelKind string

const (
	KindMLP     ModelKind = "MLP"
	KindGRU     ModelKind = "GRU"
	KindLSTM    ModelKind = "LSTM"
	KindCNNLSTM ModelKind = "CNN-LSTM"
)

// Kinds lists every supported architecture.
func Kinds() []ModelKind {
	return []ModelKind{KindMLP, KindGRU, KindLSTM, KindCNNLSTM}
}

// ParseModelKind validates an architecture name.
func ParseModelKind(s string) (ModelKind, error) {
	switch ModelKind(s) {
	case KindMLP, KindGRU, KindLSTM, KindCNNLSTM:
		return ModelKind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownArchitecture, s)
}

// BuildParams are architecture hyperparameters.
type BuildParams struct {
	WindowSize   int
	Neurons      int
	Dropout      float64
	LearningRate float64
	Seed         int64
}

func (p *BuildParams) normalize() {
	if p.WindowSize <= 0 {
		p.WindowSize = DefaultWindowSize
	}
	if p.Neurons <= 0 {
		p.Neurons = 50
	}
	if p.LearningRate <= 0 {
		p.LearningRate = 0.001
	}
	if p.Seed == 0 {
		p.Seed = 1
	}
}

// BuildModel assembles and compiles the network for the given
// architecture.
func BuildModel(kind ModelKind, params BuildParams) (*nn.Network, error) {
	params.normalize()
	w, units, drop := params.WindowSize, params.Neurons, params.Dropout

	var net *nn.Network
	switch kind {
	case KindMLP:
		net = nn.NewNetwork([]int{w},
			nn.Dense(2*units, nn.ActReLU),
			nn.Dropout(drop),
			nn.Dense(units, nn.ActReLU),
			nn.Dense(1, nn.ActLinear),
		)
	case KindGRU:
		net = nn.NewNetwork([]int{w, 1},
			nn.GRU(units, true),
			nn.Dropout(drop),
			nn.GRU(units, false),
			nn.Dropout(drop),
			nn.Dense(1, nn.ActLinear),
		)
	case KindLSTM:
		net = nn.NewNetwork([]int{w, 1},
			nn.LSTM(units, true),
			nn.Dropout(drop),
			nn.LSTM(units, false),
			nn.Dropout(drop),
			nn.Dense(1, nn.ActLinear),
		)
	case KindCNNLSTM:
		net = nn.NewNetwork([]int{w, 1},
			nn.Conv1D(64, 3),
			nn.MaxPool1D(2),
			nn.LSTM(units, true),
			nn.Dropout(drop),
			nn.LSTM(units, false),
			nn.Dropout(drop),
			nn.Dense(1, nn.ActLinear),
		)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownArchitecture, kind)
	}

	if err := net.Compile(params.LearningRate, nn.WithSeed(params.Seed)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelBuild, err)
	}
	return net, nil
}

// InputTensor packs supervised windows into the tensor shape the
// architecture expects: flat rows for the MLP, single-channel sequences
// for the recurrent and convolutional nets.
func InputTensor(kind ModelKind, windows [][]float64) (*tensor.Dense, error) {
	if len(windows) == 0 {
		return nil, fmt.Errorf("no windows to pack")
	}
	n, w := len(windows), len(windows[0])
	backing := make([]float64, n*w)
	for i, win := range windows {
		if len(win) != w {
			return nil, fmt.Errorf("window %d has length %d, want %d", i, len(win), w)
		}
		copy(backing[i*w:(i+1)*w], win)
	}

	switch kind {
	case KindMLP:
		return tensor.New(tensor.WithShape(n, w), tensor.WithBacking(backing)), nil
	case KindGRU, KindLSTM, KindCNNLSTM:
		return tensor.New(tensor.WithShape(n, w, 1), tensor.WithBacking(backing)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownArchitecture, kind)
}

// TargetTensor packs supervised targets into an (n, 1) tensor.
func TargetTensor(targets []float64) (*tensor.Dense, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets to pack")
	}
	backing := make([]float64, len(targets))
	copy(backing, targets)
	return tensor.New(tensor.WithShape(len(targets), 1), tensor.WithBacking(backing)), nil
}
