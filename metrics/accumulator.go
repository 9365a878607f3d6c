package metrics

import (
	"fmt"
	"io"
	"math"

	"github.com/Noofbiz/demandgraph/datasets"
)

// Accumulator sums metric vectors over the batches of one split and counts
// the samples that went into the sum.
type Accumulator struct {
	Sum     Vector
	Samples int
	Batches int
}

// Add evaluates one batch and adds it to the running sum.
func (a *Accumulator) Add(target, prediction *Tensor) (Vector, error) {
	v, err := EvaluateBatch(target, prediction)
	if err != nil {
		return v, err
	}
	a.Sum = a.Sum.Add(v)
	a.Samples += target.Batch
	a.Batches++
	return v, nil
}

// Mean returns the per-sample mean, or a zero vector before any sample.
func (a *Accumulator) Mean() Vector {
	if a.Samples == 0 {
		return Vector{}
	}
	return a.Sum.Scale(1 / float64(a.Samples))
}

// Reset clears the accumulator for the next epoch.
func (a *Accumulator) Reset() {
	*a = Accumulator{}
}

// Report writes the per-sample means as
//
//	<label> in/out rmse is 0.000000/0.000000
//	<label> in/out rmlse is 0.000000/0.000000
//	<label> in/out er is 0.000000/0.000000
func (a *Accumulator) Report(w io.Writer, label string) error {
	m := a.Mean()
	_, err := fmt.Fprintf(w, "%s in/out rmse is %.6f/%.6f\n%s in/out rmlse is %.6f/%.6f\n%s in/out er is %.6f/%.6f\n",
		label, m[InRMSE], m[OutRMSE],
		label, m[InRMLSE], m[OutRMLSE],
		label, m[InER], m[OutER])
	return err
}

// Postprocess maps scaled model output back to counts: inverse scaling,
// rounding to whole counts and clipping at zero. t is not modified.
func Postprocess(t *Tensor, scaler *datasets.MinMaxScaler) *Tensor {
	out := &Tensor{Batch: t.Batch, Regions: t.Regions, Data: append([]float64(nil), t.Data...)}
	if scaler != nil {
		scaler.InverseTransform(out.Data)
	}
	for i, v := range out.Data {
		out.Data[i] = math.Max(math.Round(v), 0)
	}
	return out
}
