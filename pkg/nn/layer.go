package nn

// Kind identifies a layer type.
type Kind int

const (
	KindDense Kind = iota
	KindLSTM
	KindGRU
	KindConv1D
	KindMaxPool1D
	KindDropout
)

// Activation names a pointwise non-linearity.
type Activation string

const (
	ActLinear  Activation = "linear"
	ActReLU    Activation = "relu"
	ActTanh    Activation = "tanh"
	ActSigmoid Activation = "sigmoid"
)

// Layer is a declarative layer description. Fields are exported so a network
// definition survives a gob round trip.
type Layer struct {
	Kind       Kind
	Units      int
	Activation Activation
	ReturnSeq  bool
	Filters    int
	Kernel     int
	Pool       int
	Rate       float64
}

// Dense creates a fully connected layer.
func Dense(units int, act Activation) Layer {
	return Layer{Kind: KindDense, Units: units, Activation: act}
}

// LSTM creates a long short-term memory layer. When returnSeq is true the
// layer emits the hidden state at every timestep instead of only the last.
func LSTM(units int, returnSeq bool) Layer {
	return Layer{Kind: KindLSTM, Units: units, ReturnSeq: returnSeq}
}

// GRU creates a gated recurrent unit layer.
func GRU(units int, returnSeq bool) Layer {
	return Layer{Kind: KindGRU, Units: units, ReturnSeq: returnSeq}
}

// Conv1D creates a 1-D convolution over the time axis with same padding
// and a ReLU activation.
func Conv1D(filters, kernel int) Layer {
	return Layer{Kind: KindConv1D, Filters: filters, Kernel: kernel}
}

// MaxPool1D creates a max pooling layer over the time axis.
func MaxPool1D(pool int) Layer {
	return Layer{Kind: KindMaxPool1D, Pool: pool}
}

// Dropout creates a dropout layer. It only takes effect during training;
// inference graphs skip it entirely.
func Dropout(rate float64) Layer {
	return Layer{Kind: KindDropout, Rate: rate}
}
