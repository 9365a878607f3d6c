package metrics

import (
	"fmt"
	"math"
)

// Positions in a Vector.
const (
	InRMSE = iota
	OutRMSE
	InRMLSE
	OutRMLSE
	InER
	OutER
)

var vectorNames = [6]string{"in_rmse", "out_rmse", "in_rmlse", "out_rmlse", "in_er", "out_er"}

// Vector holds [in_rmse, out_rmse, in_rmlse, out_rmlse, in_er, out_er].
type Vector [6]float64

// Add returns v + o.
func (v Vector) Add(o Vector) Vector {
	for i := range v {
		v[i] += o[i]
	}
	return v
}

// Scale returns v * f.
func (v Vector) Scale(f float64) Vector {
	for i := range v {
		v[i] *= f
	}
	return v
}

// Finite reports whether no entry is NaN or infinite.
func (v Vector) Finite() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Name returns the field name of position i.
func Name(i int) string {
	return vectorNames[i]
}

func (v Vector) String() string {
	return fmt.Sprintf("rmse %.6f/%.6f rmlse %.6f/%.6f er %.6f/%.6f",
		v[InRMSE], v[OutRMSE], v[InRMLSE], v[OutRMLSE], v[InER], v[OutER])
}
