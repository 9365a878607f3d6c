package graph

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RescaledWeights turns DTW distances into a sparse similarity adjacency:
// w = exp(-d/delta), with entries below epsilon and the diagonal set to 0.
func RescaledWeights(t *Table, delta, epsilon float64) *mat.SymDense {
	w := t.Dense()
	n := w.SymmetricDim()
	for i := 0; i < n; i++ {
		w.SetSym(i, i, 0)
		for j := i + 1; j < n; j++ {
			v := math.Exp(-w.At(i, j) / delta)
			if v < epsilon {
				v = 0
			}
			w.SetSym(i, j, v)
		}
	}
	return w
}

// NormalizedLaplacian returns L = I - D^-1/2 A D^-1/2 where D is the degree
// matrix of adj. Regions with zero degree get no off-diagonal terms.
func NormalizedLaplacian(adj mat.Symmetric) *mat.SymDense {
	n := adj.SymmetricDim()
	if n == 0 {
		return &mat.SymDense{}
	}
	invSqrt := make([]float64, n)
	row := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			row[j] = adj.At(i, j)
		}
		if d := floats.Sum(row); d > 0 {
			invSqrt[i] = 1 / math.Sqrt(d)
		}
	}

	l := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := -invSqrt[i] * adj.At(i, j) * invSqrt[j]
			if i == j {
				v++
			}
			l.SetSym(i, j, v)
		}
	}
	return l
}

// ScaledLaplacian returns 2L/lambdaMax - I for the normalized Laplacian L of
// adj, rescaling its spectrum into [-1, 1] for Chebyshev graph convolutions.
// With lambdaMax <= 0 the largest eigenvalue of L is computed.
func ScaledLaplacian(adj mat.Symmetric, lambdaMax float64) (*mat.SymDense, error) {
	l := NormalizedLaplacian(adj)
	n := l.SymmetricDim()
	if n == 0 {
		return l, nil
	}
	if lambdaMax <= 0 {
		var es mat.EigenSym
		if ok := es.Factorize(l, false); !ok {
			return nil, errors.New("graph: eigen decomposition of laplacian failed")
		}
		lambdaMax = floats.Max(es.Values(nil))
		if lambdaMax <= 0 {
			return nil, errors.Errorf("graph: laplacian has non-positive spectrum (max %g)", lambdaMax)
		}
	}
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := 2 * l.At(i, j) / lambdaMax
			if i == j {
				v--
			}
			out.SetSym(i, j, v)
		}
	}
	return out, nil
}
