package nn

import (
	"encoding/gob"
	"fmt"
	"io"
	"math"
	"math/rand"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// History records per-epoch training diagnostics.
type History struct {
	Loss    []float64
	MAE     []float64
	ValLoss []float64
}

// Network is a sequential feed-forward network. Definitions are declarative:
// build one with NewNetwork, then Compile to allocate weights. Compiled
// execution graphs are cached per batch size and share the same weight
// tensors, so the optimizer sees a single set of parameters.
type Network struct {
	input  []int
	layers []Layer
	lr     float64
	seed   int64

	params     map[string]*tensor.Dense
	paramOrder []string
	progs      map[progKey]*program
	rng        *rand.Rand
}

// Option configures network compilation.
type Option func(*Network)

// WithSeed fixes the weight initialization seed.
func WithSeed(seed int64) Option {
	return func(n *Network) {
		n.seed = seed
	}
}

// NewNetwork creates a network over per-sample input dims. A flat input is
// []int{features}; a sequence input is []int{timesteps, channels}.
func NewNetwork(input []int, layers ...Layer) *Network {
	return &Network{
		input:  append([]int(nil), input...),
		layers: layers,
		seed:   1,
	}
}

// Layers returns a copy of the layer stack.
func (n *Network) Layers() []Layer {
	return append([]Layer(nil), n.layers...)
}

// Compile validates the layer stack against the input shape and allocates
// weight tensors.
func (n *Network) Compile(lr float64, opts ...Option) error {
	if lr <= 0 {
		return fmt.Errorf("learning rate must be positive, got %v", lr)
	}
	if len(n.layers) == 0 {
		return fmt.Errorf("network has no layers")
	}

	for _, opt := range opts {
		opt(n)
	}

	n.lr = lr
	n.rng = rand.New(rand.NewSource(n.seed))
	n.params = make(map[string]*tensor.Dense)
	n.paramOrder = nil
	n.progs = make(map[progKey]*program)

	shape := append([]int(nil), n.input...)
	for i, l := range n.layers {
		var err error
		shape, err = n.initLayer(i, l, shape)
		if err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
	}

	if len(shape) != 1 {
		return fmt.Errorf("network output must be flat, got shape %v", shape)
	}
	return nil
}

// initLayer allocates the layer's weights and returns the per-sample
// output shape.
func (n *Network) initLayer(i int, l Layer, in []int) ([]int, error) {
	switch l.Kind {
	case KindDense:
		if len(in) != 1 {
			return nil, fmt.Errorf("dense layer expects flat input, got shape %v", in)
		}
		if l.Units <= 0 {
			return nil, fmt.Errorf("dense layer needs positive units")
		}
		n.addParam(fmt.Sprintf("l%d_w", i), n.glorot(in[0], l.Units, in[0], l.Units))
		n.addParam(fmt.Sprintf("l%d_b", i), zeros(1, l.Units))
		return []int{l.Units}, nil

	case KindLSTM:
		if len(in) != 2 {
			return nil, fmt.Errorf("lstm layer expects (timesteps, channels) input, got shape %v", in)
		}
		c, h := in[1], l.Units
		if h <= 0 {
			return nil, fmt.Errorf("lstm layer needs positive units")
		}
		for _, gate := range []string{"i", "f", "g", "o"} {
			n.addParam(fmt.Sprintf("l%d_wx_%s", i, gate), n.glorot(c, h, c, h))
			n.addParam(fmt.Sprintf("l%d_wh_%s", i, gate), n.glorot(h, h, h, h))
			b := zeros(1, h)
			if gate == "f" {
				// Forget gate bias starts at one so early gradients flow
				// through the cell state.
				fill(b, 1)
			}
			n.addParam(fmt.Sprintf("l%d_b_%s", i, gate), b)
		}
		if l.ReturnSeq {
			return []int{in[0], h}, nil
		}
		return []int{h}, nil

	case KindGRU:
		if len(in) != 2 {
			return nil, fmt.Errorf("gru layer expects (timesteps, channels) input, got shape %v", in)
		}
		c, h := in[1], l.Units
		if h <= 0 {
			return nil, fmt.Errorf("gru layer needs positive units")
		}
		for _, gate := range []string{"r", "z", "h"} {
			n.addParam(fmt.Sprintf("l%d_wx_%s", i, gate), n.glorot(c, h, c, h))
			n.addParam(fmt.Sprintf("l%d_wh_%s", i, gate), n.glorot(h, h, h, h))
			n.addParam(fmt.Sprintf("l%d_b_%s", i, gate), zeros(1, h))
		}
		if l.ReturnSeq {
			return []int{in[0], h}, nil
		}
		return []int{h}, nil

	case KindConv1D:
		if len(in) != 2 {
			return nil, fmt.Errorf("conv1d layer expects (timesteps, channels) input, got shape %v", in)
		}
		if l.Filters <= 0 || l.Kernel <= 0 {
			return nil, fmt.Errorf("conv1d layer needs positive filters and kernel")
		}
		c := in[1]
		w := tensor.New(
			tensor.WithShape(l.Filters, c, 1, l.Kernel),
			tensor.WithBacking(n.glorotBacking(l.Filters*c*l.Kernel, c*l.Kernel, l.Filters*l.Kernel)),
		)
		n.addParam(fmt.Sprintf("l%d_w", i), w)
		n.addParam(fmt.Sprintf("l%d_b", i), zeros(1, l.Filters, 1, 1))
		return []int{in[0], l.Filters}, nil

	case KindMaxPool1D:
		if len(in) != 2 {
			return nil, fmt.Errorf("maxpool1d layer expects (timesteps, channels) input, got shape %v", in)
		}
		if l.Pool <= 0 || in[0]%l.Pool != 0 {
			return nil, fmt.Errorf("pool size %d must evenly divide %d timesteps", l.Pool, in[0])
		}
		return []int{in[0] / l.Pool, in[1]}, nil

	case KindDropout:
		if l.Rate < 0 || l.Rate >= 1 {
			return nil, fmt.Errorf("dropout rate %v out of range [0, 1)", l.Rate)
		}
		return in, nil
	}
	return nil, fmt.Errorf("unknown layer kind %d", l.Kind)
}

func (n *Network) addParam(name string, t *tensor.Dense) {
	n.params[name] = t
	n.paramOrder = append(n.paramOrder, name)
}

// glorot allocates a (rows, cols) matrix with Glorot uniform init.
func (n *Network) glorot(rows, cols, fanIn, fanOut int) *tensor.Dense {
	return tensor.New(
		tensor.WithShape(rows, cols),
		tensor.WithBacking(n.glorotBacking(rows*cols, fanIn, fanOut)),
	)
}

func (n *Network) glorotBacking(size, fanIn, fanOut int) []float64 {
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
	data := make([]float64, size)
	for i := range data {
		data[i] = (n.rng.Float64()*2 - 1) * limit
	}
	return data
}

func zeros(dims ...int) *tensor.Dense {
	return tensor.New(tensor.WithShape(dims...), tensor.Of(tensor.Float64))
}

func fill(t *tensor.Dense, v float64) {
	data := t.Data().([]float64)
	for i := range data {
		data[i] = v
	}
}

// Fit trains the network with Adam on mean squared error. The last
// valSplit fraction of rows is held out for validation; the remainder is
// shuffled every epoch.
func (n *Network) Fit(x, y *tensor.Dense, epochs, batch int, valSplit float64) (*History, error) {
	if n.params == nil {
		return nil, fmt.Errorf("network is not compiled")
	}
	total := x.Shape()[0]
	if y.Shape()[0] != total {
		return nil, fmt.Errorf("x has %d rows, y has %d", total, y.Shape()[0])
	}
	if epochs <= 0 || batch <= 0 {
		return nil, fmt.Errorf("epochs and batch must be positive")
	}

	nVal := int(float64(total) * valSplit)
	nTrain := total - nVal
	if nTrain < 1 {
		return nil, fmt.Errorf("validation split %v leaves no training rows", valSplit)
	}
	if batch > nTrain {
		batch = nTrain
	}

	var (
		xVal, yVal *tensor.Dense
		err        error
	)
	if nVal > 0 {
		if xVal, err = sliceRows(x, nTrain, total); err != nil {
			return nil, err
		}
		if yVal, err = sliceRows(y, nTrain, total); err != nil {
			return nil, err
		}
	}

	rowLen := 1
	for _, d := range n.input {
		rowLen *= d
	}
	xData := x.Data().([]float64)
	yData := y.Data().([]float64)
	xEpoch := make([]float64, nTrain*rowLen)
	yEpoch := make([]float64, nTrain)

	solver := gorgonia.NewAdamSolver(gorgonia.WithLearnRate(n.lr))
	hist := &History{}

	for epoch := 0; epoch < epochs; epoch++ {
		perm := n.rng.Perm(nTrain)
		for dst, src := range perm {
			copy(xEpoch[dst*rowLen:(dst+1)*rowLen], xData[src*rowLen:(src+1)*rowLen])
			yEpoch[dst] = yData[src]
		}

		var sumLoss, sumMAE float64
		for start := 0; start < nTrain; start += batch {
			end := start + batch
			if end > nTrain {
				end = nTrain
			}
			size := end - start

			prog, err := n.program(size, modeTrain)
			if err != nil {
				return nil, err
			}

			xb := tensor.New(
				tensor.WithShape(append([]int{size}, n.input...)...),
				tensor.WithBacking(xEpoch[start*rowLen:end*rowLen]),
			)
			yb := tensor.New(
				tensor.WithShape(size, 1),
				tensor.WithBacking(yEpoch[start:end]),
			)
			if err := gorgonia.Let(prog.x, xb); err != nil {
				return nil, fmt.Errorf("bind inputs: %w", err)
			}
			if err := gorgonia.Let(prog.y, yb); err != nil {
				return nil, fmt.Errorf("bind targets: %w", err)
			}

			if err := prog.vm.RunAll(); err != nil {
				return nil, fmt.Errorf("training step: %w", err)
			}
			if err := solver.Step(gorgonia.NodesToValueGrads(prog.params)); err != nil {
				return nil, fmt.Errorf("optimizer step: %w", err)
			}

			sumLoss += scalarOf(prog.loss) * float64(size)
			sumMAE += scalarOf(prog.mae) * float64(size)
			prog.vm.Reset()
		}

		hist.Loss = append(hist.Loss, sumLoss/float64(nTrain))
		hist.MAE = append(hist.MAE, sumMAE/float64(nTrain))

		if nVal > 0 {
			valLoss, _, err := n.Evaluate(xVal, yVal)
			if err != nil {
				return nil, fmt.Errorf("validation: %w", err)
			}
			hist.ValLoss = append(hist.ValLoss, valLoss)
		}
	}

	return hist, nil
}

// Predict runs a forward pass. Dropout layers are skipped, so output is
// deterministic for fixed weights.
func (n *Network) Predict(x *tensor.Dense) (*tensor.Dense, error) {
	if n.params == nil {
		return nil, fmt.Errorf("network is not compiled")
	}
	batch := x.Shape()[0]
	prog, err := n.program(batch, modePredict)
	if err != nil {
		return nil, err
	}
	if err := gorgonia.Let(prog.x, x); err != nil {
		return nil, fmt.Errorf("bind inputs: %w", err)
	}
	if err := prog.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("forward pass: %w", err)
	}
	out := prog.out.Value().(*tensor.Dense).Clone().(*tensor.Dense)
	prog.vm.Reset()
	return out, nil
}

// Evaluate computes mean squared error and mean absolute error over the
// given rows, without dropout.
func (n *Network) Evaluate(x, y *tensor.Dense) (mse, mae float64, err error) {
	if n.params == nil {
		return 0, 0, fmt.Errorf("network is not compiled")
	}
	batch := x.Shape()[0]
	prog, err := n.program(batch, modeEval)
	if err != nil {
		return 0, 0, err
	}
	if err := gorgonia.Let(prog.x, x); err != nil {
		return 0, 0, fmt.Errorf("bind inputs: %w", err)
	}
	if err := gorgonia.Let(prog.y, y); err != nil {
		return 0, 0, fmt.Errorf("bind targets: %w", err)
	}
	if err := prog.vm.RunAll(); err != nil {
		return 0, 0, fmt.Errorf("evaluation: %w", err)
	}
	mse = scalarOf(prog.loss)
	mae = scalarOf(prog.mae)
	prog.vm.Reset()
	return mse, mae, nil
}

func scalarOf(node *gorgonia.Node) float64 {
	return node.Value().Data().(float64)
}

func sliceRows(t *tensor.Dense, start, end int) (*tensor.Dense, error) {
	v, err := t.Slice(tensor.S(start, end))
	if err != nil {
		return nil, fmt.Errorf("slice rows [%d:%d]: %w", start, end, err)
	}
	return v.Materialize().(*tensor.Dense), nil
}

type netState struct {
	Input  []int
	Layers []Layer
	LR     float64
	Params map[string]*tensor.Dense
}

// Save serializes the network definition and weights.
func (n *Network) Save(w io.Writer) error {
	if n.params == nil {
		return fmt.Errorf("network is not compiled")
	}
	state := netState{
		Input:  n.input,
		Layers: n.layers,
		LR:     n.lr,
		Params: n.params,
	}
	if err := gob.NewEncoder(w).Encode(state); err != nil {
		return fmt.Errorf("encode network: %w", err)
	}
	return nil
}

// Load deserializes a network saved with Save. The result is ready for
// Predict, Evaluate and further Fit calls.
func Load(r io.Reader) (*Network, error) {
	var state netState
	if err := gob.NewDecoder(r).Decode(&state); err != nil {
		return nil, fmt.Errorf("decode network: %w", err)
	}

	n := NewNetwork(state.Input, state.Layers...)
	if err := n.Compile(state.LR); err != nil {
		return nil, err
	}
	for name := range n.params {
		saved, ok := state.Params[name]
		if !ok {
			return nil, fmt.Errorf("saved network is missing parameter %s", name)
		}
		n.params[name] = saved
	}
	return n, nil
}
