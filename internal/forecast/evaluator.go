package forecast

import (
	"fmt"
	"math"

	"CoinCast/internal/domain/models"
)

// Evaluate computes regression errors over supervised pairs. Windows and
// targets are expected to be in the scaled domain, and the returned
// metrics stay there.
func Evaluate(model Model, kind ModelKind, windows [][]float64, targets []float64) (models.EvalMetrics, error) {
	if len(windows) != len(targets) {
		return models.EvalMetrics{}, fmt.Errorf("got %d windows but %d targets", len(windows), len(targets))
	}
	if len(windows) == 0 {
		return models.EvalMetrics{}, fmt.Errorf("nothing to evaluate")
	}

	x, err := InputTensor(kind, windows)
	if err != nil {
		return models.EvalMetrics{}, err
	}
	out, err := model.Predict(x)
	if err != nil {
		return models.EvalMetrics{}, fmt.Errorf("evaluate predict: %w", err)
	}

	preds, ok := out.Data().([]float64)
	if !ok {
		return models.EvalMetrics{}, fmt.Errorf("model returned unexpected output type %T", out.Data())
	}
	if len(preds) != len(targets) {
		return models.EvalMetrics{}, fmt.Errorf("model returned %d predictions for %d targets", len(preds), len(targets))
	}

	var sumSq, sumAbs float64
	for i, p := range preds {
		diff := p - targets[i]
		sumSq += diff * diff
		sumAbs += math.Abs(diff)
	}
	n := float64(len(targets))
	mse := sumSq / n

	return models.EvalMetrics{
		MSE:  mse,
		RMSE: math.Sqrt(mse),
		MAE:  sumAbs / n,
	}, nil
}
