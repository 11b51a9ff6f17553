package nn

import (
	"fmt"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

type mode int

const (
	modeTrain mode = iota
	modeEval
	modePredict
)

type progKey struct {
	batch int
	m     mode
}

// program is a compiled execution graph for one batch size and mode.
// Weight nodes are bound to the network's shared tensors, so the Adam
// solver's in-place updates are visible to every cached program.
type program struct {
	g      *gorgonia.ExprGraph
	x      *gorgonia.Node
	y      *gorgonia.Node
	out    *gorgonia.Node
	loss   *gorgonia.Node
	mae    *gorgonia.Node
	vm     gorgonia.VM
	params gorgonia.Nodes
}

func (n *Network) program(batch int, m mode) (*program, error) {
	key := progKey{batch: batch, m: m}
	if p, ok := n.progs[key]; ok {
		return p, nil
	}
	p, err := n.build(batch, m)
	if err != nil {
		return nil, err
	}
	n.progs[key] = p
	return p, nil
}

func (n *Network) build(batch int, m mode) (*program, error) {
	g := gorgonia.NewGraph()
	p := &program{g: g}

	inDims := append([]int{batch}, n.input...)
	p.x = gorgonia.NewTensor(g, tensor.Float64, len(inDims),
		gorgonia.WithShape(inDims...), gorgonia.WithName("x"))

	paramNodes := make(map[string]*gorgonia.Node, len(n.paramOrder))
	for _, name := range n.paramOrder {
		paramNodes[name] = gorgonia.NodeFromAny(g, n.params[name], gorgonia.WithName(name))
	}

	cur := p.x
	shape := append([]int(nil), n.input...)
	for i, l := range n.layers {
		var err error
		cur, shape, err = n.forwardLayer(g, paramNodes, batch, i, l, cur, shape, m)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	p.out = cur

	if m == modePredict {
		p.vm = gorgonia.NewTapeMachine(g)
		return p, nil
	}

	p.y = gorgonia.NewMatrix(g, tensor.Float64,
		gorgonia.WithShape(batch, 1), gorgonia.WithName("y"))

	diff, err := gorgonia.Sub(p.out, p.y)
	if err != nil {
		return nil, fmt.Errorf("residual: %w", err)
	}
	sq, err := gorgonia.Square(diff)
	if err != nil {
		return nil, fmt.Errorf("squared residual: %w", err)
	}
	if p.loss, err = gorgonia.Mean(sq); err != nil {
		return nil, fmt.Errorf("mse: %w", err)
	}
	abs, err := gorgonia.Abs(diff)
	if err != nil {
		return nil, fmt.Errorf("absolute residual: %w", err)
	}
	if p.mae, err = gorgonia.Mean(abs); err != nil {
		return nil, fmt.Errorf("mae: %w", err)
	}

	if m == modeEval {
		p.vm = gorgonia.NewTapeMachine(g)
		return p, nil
	}

	for _, name := range n.paramOrder {
		p.params = append(p.params, paramNodes[name])
	}
	if _, err := gorgonia.Grad(p.loss, p.params...); err != nil {
		return nil, fmt.Errorf("gradients: %w", err)
	}
	p.vm = gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(p.params...))
	return p, nil
}

func (n *Network) forwardLayer(
	g *gorgonia.ExprGraph,
	params map[string]*gorgonia.Node,
	batch, i int,
	l Layer,
	cur *gorgonia.Node,
	shape []int,
	m mode,
) (*gorgonia.Node, []int, error) {
	switch l.Kind {
	case KindDense:
		w := params[fmt.Sprintf("l%d_w", i)]
		b := params[fmt.Sprintf("l%d_b", i)]
		wx, err := gorgonia.Mul(cur, w)
		if err != nil {
			return nil, nil, fmt.Errorf("dense matmul: %w", err)
		}
		pre, err := gorgonia.BroadcastAdd(wx, b, nil, []byte{0})
		if err != nil {
			return nil, nil, fmt.Errorf("dense bias: %w", err)
		}
		out, err := applyActivation(pre, l.Activation)
		if err != nil {
			return nil, nil, err
		}
		return out, []int{l.Units}, nil

	case KindLSTM:
		out, err := n.forwardLSTM(g, params, batch, i, l, cur, shape)
		if err != nil {
			return nil, nil, err
		}
		if l.ReturnSeq {
			return out, []int{shape[0], l.Units}, nil
		}
		return out, []int{l.Units}, nil

	case KindGRU:
		out, err := n.forwardGRU(g, params, batch, i, l, cur, shape)
		if err != nil {
			return nil, nil, err
		}
		if l.ReturnSeq {
			return out, []int{shape[0], l.Units}, nil
		}
		return out, []int{l.Units}, nil

	case KindConv1D:
		out, err := forwardConv1D(params, batch, i, l, cur, shape)
		if err != nil {
			return nil, nil, err
		}
		return out, []int{shape[0], l.Filters}, nil

	case KindMaxPool1D:
		out, err := forwardMaxPool1D(batch, l, cur, shape)
		if err != nil {
			return nil, nil, err
		}
		return out, []int{shape[0] / l.Pool, shape[1]}, nil

	case KindDropout:
		if m != modeTrain || l.Rate == 0 {
			return cur, shape, nil
		}
		out, err := gorgonia.Dropout(cur, l.Rate)
		if err != nil {
			return nil, nil, fmt.Errorf("dropout: %w", err)
		}
		return out, shape, nil
	}
	return nil, nil, fmt.Errorf("unknown layer kind %d", l.Kind)
}

// affine computes xt*wx + h*wh + b for a recurrent gate.
func affine(xt, h, wx, wh, b *gorgonia.Node) (*gorgonia.Node, error) {
	xw, err := gorgonia.Mul(xt, wx)
	if err != nil {
		return nil, err
	}
	hw, err := gorgonia.Mul(h, wh)
	if err != nil {
		return nil, err
	}
	sum, err := gorgonia.Add(xw, hw)
	if err != nil {
		return nil, err
	}
	return gorgonia.BroadcastAdd(sum, b, nil, []byte{0})
}

func (n *Network) forwardLSTM(
	g *gorgonia.ExprGraph,
	params map[string]*gorgonia.Node,
	batch, i int,
	l Layer,
	cur *gorgonia.Node,
	shape []int,
) (*gorgonia.Node, error) {
	steps, units := shape[0], l.Units
	gate := func(name string) (*gorgonia.Node, *gorgonia.Node, *gorgonia.Node) {
		return params[fmt.Sprintf("l%d_wx_%s", i, name)],
			params[fmt.Sprintf("l%d_wh_%s", i, name)],
			params[fmt.Sprintf("l%d_b_%s", i, name)]
	}
	wxi, whi, bi := gate("i")
	wxf, whf, bf := gate("f")
	wxg, whg, bg := gate("g")
	wxo, who, bo := gate("o")

	h := gorgonia.NewMatrix(g, tensor.Float64,
		gorgonia.WithShape(batch, units),
		gorgonia.WithName(fmt.Sprintf("l%d_h0", i)),
		gorgonia.WithInit(gorgonia.Zeroes()))
	c := gorgonia.NewMatrix(g, tensor.Float64,
		gorgonia.WithShape(batch, units),
		gorgonia.WithName(fmt.Sprintf("l%d_c0", i)),
		gorgonia.WithInit(gorgonia.Zeroes()))

	// Time-major view so each step slices the leading axis.
	xT, err := gorgonia.Transpose(cur, 1, 0, 2)
	if err != nil {
		return nil, fmt.Errorf("time-major transpose: %w", err)
	}

	var seq []*gorgonia.Node
	for t := 0; t < steps; t++ {
		xt, err := gorgonia.Slice(xT, gorgonia.S(t))
		if err != nil {
			return nil, fmt.Errorf("timestep %d: %w", t, err)
		}

		ig, err := gateOut(xt, h, wxi, whi, bi, gorgonia.Sigmoid)
		if err != nil {
			return nil, fmt.Errorf("input gate: %w", err)
		}
		fg, err := gateOut(xt, h, wxf, whf, bf, gorgonia.Sigmoid)
		if err != nil {
			return nil, fmt.Errorf("forget gate: %w", err)
		}
		gg, err := gateOut(xt, h, wxg, whg, bg, gorgonia.Tanh)
		if err != nil {
			return nil, fmt.Errorf("cell gate: %w", err)
		}
		og, err := gateOut(xt, h, wxo, who, bo, gorgonia.Sigmoid)
		if err != nil {
			return nil, fmt.Errorf("output gate: %w", err)
		}

		fc, err := gorgonia.HadamardProd(fg, c)
		if err != nil {
			return nil, err
		}
		ic, err := gorgonia.HadamardProd(ig, gg)
		if err != nil {
			return nil, err
		}
		if c, err = gorgonia.Add(fc, ic); err != nil {
			return nil, err
		}
		ct, err := gorgonia.Tanh(c)
		if err != nil {
			return nil, err
		}
		if h, err = gorgonia.HadamardProd(og, ct); err != nil {
			return nil, err
		}

		if l.ReturnSeq {
			step, err := gorgonia.Reshape(h, tensor.Shape{batch, 1, units})
			if err != nil {
				return nil, err
			}
			seq = append(seq, step)
		}
	}

	if l.ReturnSeq {
		out, err := gorgonia.Concat(1, seq...)
		if err != nil {
			return nil, fmt.Errorf("stack hidden states: %w", err)
		}
		return out, nil
	}
	return h, nil
}

func (n *Network) forwardGRU(
	g *gorgonia.ExprGraph,
	params map[string]*gorgonia.Node,
	batch, i int,
	l Layer,
	cur *gorgonia.Node,
	shape []int,
) (*gorgonia.Node, error) {
	steps, units := shape[0], l.Units
	gate := func(name string) (*gorgonia.Node, *gorgonia.Node, *gorgonia.Node) {
		return params[fmt.Sprintf("l%d_wx_%s", i, name)],
			params[fmt.Sprintf("l%d_wh_%s", i, name)],
			params[fmt.Sprintf("l%d_b_%s", i, name)]
	}
	wxr, whr, br := gate("r")
	wxz, whz, bz := gate("z")
	wxh, whh, bh := gate("h")

	h := gorgonia.NewMatrix(g, tensor.Float64,
		gorgonia.WithShape(batch, units),
		gorgonia.WithName(fmt.Sprintf("l%d_h0", i)),
		gorgonia.WithInit(gorgonia.Zeroes()))

	one := gorgonia.NewConstant(1.0)

	xT, err := gorgonia.Transpose(cur, 1, 0, 2)
	if err != nil {
		return nil, fmt.Errorf("time-major transpose: %w", err)
	}

	var seq []*gorgonia.Node
	for t := 0; t < steps; t++ {
		xt, err := gorgonia.Slice(xT, gorgonia.S(t))
		if err != nil {
			return nil, fmt.Errorf("timestep %d: %w", t, err)
		}

		rg, err := gateOut(xt, h, wxr, whr, br, gorgonia.Sigmoid)
		if err != nil {
			return nil, fmt.Errorf("reset gate: %w", err)
		}
		zg, err := gateOut(xt, h, wxz, whz, bz, gorgonia.Sigmoid)
		if err != nil {
			return nil, fmt.Errorf("update gate: %w", err)
		}

		rh, err := gorgonia.HadamardProd(rg, h)
		if err != nil {
			return nil, err
		}
		cand, err := gateOut(xt, rh, wxh, whh, bh, gorgonia.Tanh)
		if err != nil {
			return nil, fmt.Errorf("candidate state: %w", err)
		}

		zh, err := gorgonia.HadamardProd(zg, h)
		if err != nil {
			return nil, err
		}
		omz, err := gorgonia.Sub(one, zg)
		if err != nil {
			return nil, err
		}
		zc, err := gorgonia.HadamardProd(omz, cand)
		if err != nil {
			return nil, err
		}
		if h, err = gorgonia.Add(zh, zc); err != nil {
			return nil, err
		}

		if l.ReturnSeq {
			step, err := gorgonia.Reshape(h, tensor.Shape{batch, 1, units})
			if err != nil {
				return nil, err
			}
			seq = append(seq, step)
		}
	}

	if l.ReturnSeq {
		out, err := gorgonia.Concat(1, seq...)
		if err != nil {
			return nil, fmt.Errorf("stack hidden states: %w", err)
		}
		return out, nil
	}
	return h, nil
}

func gateOut(xt, h, wx, wh, b *gorgonia.Node, act func(*gorgonia.Node) (*gorgonia.Node, error)) (*gorgonia.Node, error) {
	pre, err := affine(xt, h, wx, wh, b)
	if err != nil {
		return nil, err
	}
	return act(pre)
}

// forwardConv1D runs a same-padded 1-D convolution by lifting the series
// into a height-1 image and applying Conv2d.
func forwardConv1D(
	params map[string]*gorgonia.Node,
	batch, i int,
	l Layer,
	cur *gorgonia.Node,
	shape []int,
) (*gorgonia.Node, error) {
	steps, channels := shape[0], shape[1]
	w := params[fmt.Sprintf("l%d_w", i)]
	b := params[fmt.Sprintf("l%d_b", i)]

	tr, err := gorgonia.Transpose(cur, 0, 2, 1)
	if err != nil {
		return nil, fmt.Errorf("channel-first transpose: %w", err)
	}
	im, err := gorgonia.Reshape(tr, tensor.Shape{batch, channels, 1, steps})
	if err != nil {
		return nil, fmt.Errorf("lift to image: %w", err)
	}
	conv, err := gorgonia.Conv2d(im, w,
		tensor.Shape{1, l.Kernel},
		[]int{0, l.Kernel / 2},
		[]int{1, 1},
		[]int{1, 1})
	if err != nil {
		return nil, fmt.Errorf("conv2d: %w", err)
	}
	biased, err := gorgonia.BroadcastAdd(conv, b, nil, []byte{0, 2, 3})
	if err != nil {
		return nil, fmt.Errorf("conv bias: %w", err)
	}
	act, err := gorgonia.Rectify(biased)
	if err != nil {
		return nil, fmt.Errorf("conv activation: %w", err)
	}
	flat, err := gorgonia.Reshape(act, tensor.Shape{batch, l.Filters, steps})
	if err != nil {
		return nil, fmt.Errorf("drop image height: %w", err)
	}
	out, err := gorgonia.Transpose(flat, 0, 2, 1)
	if err != nil {
		return nil, fmt.Errorf("time-first transpose: %w", err)
	}
	return out, nil
}

func forwardMaxPool1D(batch int, l Layer, cur *gorgonia.Node, shape []int) (*gorgonia.Node, error) {
	steps, channels := shape[0], shape[1]

	tr, err := gorgonia.Transpose(cur, 0, 2, 1)
	if err != nil {
		return nil, fmt.Errorf("channel-first transpose: %w", err)
	}
	im, err := gorgonia.Reshape(tr, tensor.Shape{batch, channels, 1, steps})
	if err != nil {
		return nil, fmt.Errorf("lift to image: %w", err)
	}
	pooled, err := gorgonia.MaxPool2D(im,
		tensor.Shape{1, l.Pool},
		[]int{0, 0},
		[]int{1, l.Pool})
	if err != nil {
		return nil, fmt.Errorf("maxpool2d: %w", err)
	}
	flat, err := gorgonia.Reshape(pooled, tensor.Shape{batch, channels, steps / l.Pool})
	if err != nil {
		return nil, fmt.Errorf("drop image height: %w", err)
	}
	out, err := gorgonia.Transpose(flat, 0, 2, 1)
	if err != nil {
		return nil, fmt.Errorf("time-first transpose: %w", err)
	}
	return out, nil
}

func applyActivation(x *gorgonia.Node, a Activation) (*gorgonia.Node, error) {
	switch a {
	case ActReLU:
		return gorgonia.Rectify(x)
	case ActTanh:
		return gorgonia.Tanh(x)
	case ActSigmoid:
		return gorgonia.Sigmoid(x)
	case ActLinear, "":
		return x, nil
	}
	return nil, fmt.Errorf("unknown activation %q", a)
}
