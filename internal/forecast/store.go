package forecast

import (
	"errors"

	"CoinCast/internal/domain/models"
	"CoinCast/pkg/nn"

	"gorgonia.org/tensor"
)

// ErrArtifactNotFound means no model or scaler exists for the key.
var ErrArtifactNotFound = errors.New("artifact not found")

// Model is the inference surface the predictor and evaluator need.
// *nn.Network satisfies it.
type Model interface {
	Predict(x *tensor.Dense) (*tensor.Dense, error)
}

// ModelKey identifies one trained model artifact.
type ModelKey struct {
	Symbol   string
	Kind     ModelKind
	Interval models.Interval
}

// ScalerKey identifies one fitted scaler artifact. Scalers are shared
// across architectures for the same instrument and interval.
type ScalerKey struct {
	Symbol   string
	Interval models.Interval
}

// ArtifactStore persists trained models and fitted scalers. Writes
// overwrite; the most recent Put wins.
type ArtifactStore interface {
	HasModel(key ModelKey) bool
	PutModel(key ModelKey, net *nn.Network) error
	Model(key ModelKey) (*nn.Network, error)

	HasScaler(key ScalerKey) bool
	PutScaler(key ScalerKey, scaler *MinMaxScaler) error
	Scaler(key ScalerKey) (*MinMaxScaler, error)
}
