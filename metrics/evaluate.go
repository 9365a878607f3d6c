package metrics

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// EvaluateBatch scores prediction against target. Both are clipped at zero
// first. For every sample and channel it computes the RMSE over regions, the
// RMSE of log(v+1), and the absolute error divided by the target total
// (floored at 1), then sums each figure over the batch.
//
// Non-finite input is not rejected and shows up as NaN or Inf in the result.
func EvaluateBatch(target, prediction *Tensor) (Vector, error) {
	var out Vector
	if !target.SameShape(prediction) {
		return out, errors.Wrapf(ErrShape, "target (%d, %d, 2) vs prediction (%d, %d, 2)",
			target.Batch, target.Regions, prediction.Batch, prediction.Regions)
	}
	if len(target.Data) != len(prediction.Data) || len(target.Data) != target.Batch*target.Regions*numChannels {
		return out, errors.Wrapf(ErrShape, "data lengths %d and %d for (%d, %d, 2)",
			len(target.Data), len(prediction.Data), target.Batch, target.Regions)
	}

	n := target.Regions
	y := make([]float64, n)
	yHat := make([]float64, n)
	diff := make([]float64, n)
	for b := range target.Batch {
		for c := range numChannels {
			for r := range n {
				y[r] = math.Max(target.At(b, r, c), 0)
				yHat[r] = math.Max(prediction.At(b, r, c), 0)
			}
			floats.SubTo(diff, yHat, y)
			out[InRMSE+c] += rms(diff)
			out[InER+c] += floats.Norm(diff, 1) / math.Max(floats.Sum(y), 1)

			for r := range n {
				diff[r] = math.Log(yHat[r]+1) - math.Log(y[r]+1)
			}
			out[InRMLSE+c] += rms(diff)
		}
	}
	return out, nil
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Norm(x, 2) / math.Sqrt(float64(len(x)))
}
