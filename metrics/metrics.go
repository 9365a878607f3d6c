// Package metrics scores demand forecasts against observed counts.
//
// A forecast batch is a (batch, regions, 2) block of inflow and outflow
// counts. EvaluateBatch reduces a target and a prediction batch to six error
// figures summed over the batch; Accumulator keeps the running sum across
// batches and turns it into the per-sample means reported after an epoch.
package metrics

import (
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// Channels of a Tensor.
const (
	Inflow  = 0
	Outflow = 1

	numChannels = 2
)

// ErrShape reports tensors whose shapes differ or are not (batch, regions, 2).
var ErrShape = errors.New("metrics: shape mismatch")

// Tensor is a dense (batch, regions, 2) block. Data is row-major, so the
// value of sample b, region r, channel c is Data[(b*Regions+r)*2+c].
type Tensor struct {
	Batch   int
	Regions int
	Data    []float64
}

// NewTensor allocates a zero tensor.
func NewTensor(batch, regions int) *Tensor {
	return &Tensor{Batch: batch, Regions: regions, Data: make([]float64, batch*regions*numChannels)}
}

func (t *Tensor) index(b, r, c int) int {
	return (b*t.Regions+r)*numChannels + c
}

// At returns the value of sample b, region r, channel c.
func (t *Tensor) At(b, r, c int) float64 {
	return t.Data[t.index(b, r, c)]
}

// Set stores v at sample b, region r, channel c.
func (t *Tensor) Set(b, r, c int, v float64) {
	t.Data[t.index(b, r, c)] = v
}

// SameShape reports whether t and o have identical dimensions.
func (t *Tensor) SameShape(o *Tensor) bool {
	return t.Batch == o.Batch && t.Regions == o.Regions
}

// Slice returns samples [start, end) as a tensor sharing t's data.
func (t *Tensor) Slice(start, end int) *Tensor {
	stride := t.Regions * numChannels
	return &Tensor{Batch: end - start, Regions: t.Regions, Data: t.Data[start*stride : end*stride]}
}

// TensorFromValues copies a nested [batch][regions][2] slice.
func TensorFromValues(v [][][]float64) (*Tensor, error) {
	if len(v) == 0 {
		return &Tensor{}, nil
	}
	t := NewTensor(len(v), len(v[0]))
	for b, sample := range v {
		if len(sample) != t.Regions {
			return nil, errors.Wrapf(ErrShape, "sample %d has %d regions, want %d", b, len(sample), t.Regions)
		}
		for r, cell := range sample {
			if len(cell) != numChannels {
				return nil, errors.Wrapf(ErrShape, "sample %d region %d has %d channels", b, r, len(cell))
			}
			t.Set(b, r, Inflow, cell[Inflow])
			t.Set(b, r, Outflow, cell[Outflow])
		}
	}
	return t, nil
}

// TensorFromGomlx converts a rank 3 float32 or float64 gomlx tensor whose
// last dimension is 2.
func TensorFromGomlx(gt *tensors.Tensor) (*Tensor, error) {
	switch v := gt.Value().(type) {
	case [][][]float64:
		return TensorFromValues(v)
	case [][][]float32:
		wide := make([][][]float64, len(v))
		for b, sample := range v {
			wide[b] = make([][]float64, len(sample))
			for r, cell := range sample {
				wide[b][r] = make([]float64, len(cell))
				for c, x := range cell {
					wide[b][r][c] = float64(x)
				}
			}
		}
		return TensorFromValues(wide)
	default:
		return nil, errors.Wrapf(ErrShape, "unsupported gomlx value %T", v)
	}
}

// Gomlx returns t as a float64 gomlx tensor of shape [batch, regions, 2].
func (t *Tensor) Gomlx() *tensors.Tensor {
	v := make([][][]float64, t.Batch)
	for b := range v {
		v[b] = make([][]float64, t.Regions)
		for r := range v[b] {
			i := t.index(b, r, 0)
			v[b][r] = []float64{t.Data[i], t.Data[i+1]}
		}
	}
	return tensors.FromAnyValue(v)
}
