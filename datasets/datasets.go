package datasets

import (
	"github.com/pkg/errors"
)

// This package turns the raw demand arrays of a city grid into the shapes the
// graph builder and the metric evaluator consume.
//
// Layout and intended usage:
//
// Array
//   - Dense row-major numeric array loaded from a .npy file (LoadNPY)
//   - Split along the time axis into train / validate / test blocks
//   - Channel extracts one scalar channel (inflow or outflow) as a RegionSeries
//
// RegionSeries
//   - One channel observed on a rows x cols grid at regular time steps
//   - Region r is the row-major flattening of (row, col)
//
// Spans provides the windowing used everywhere a time axis or a sample axis
// is cut into fixed-size pieces.

var (
	// ErrShape reports an array whose shape does not match what the caller declared.
	ErrShape = errors.New("datasets: inconsistent shape")
	// ErrFormat reports an unreadable or unsupported file.
	ErrFormat = errors.New("datasets: unsupported format")
)

// RegionSeries is a (time, row, col) block holding one channel of demand
// counts. Data is row-major: the value at step t for grid cell (r, c) lives
// at Data[(t*Rows+r)*Cols+c].
type RegionSeries struct {
	Steps int
	Rows  int
	Cols  int
	Data  []float64
}

// NewRegionSeries validates data against the declared shape.
func NewRegionSeries(steps, rows, cols int, data []float64) (*RegionSeries, error) {
	if steps <= 0 || rows <= 0 || cols <= 0 {
		return nil, errors.Wrapf(ErrShape, "non-positive dimensions (%d, %d, %d)", steps, rows, cols)
	}
	if len(data) != steps*rows*cols {
		return nil, errors.Wrapf(ErrShape, "have %d values, shape (%d, %d, %d) needs %d",
			len(data), steps, rows, cols, steps*rows*cols)
	}
	return &RegionSeries{Steps: steps, Rows: rows, Cols: cols, Data: data}, nil
}

// Regions returns the number of grid cells.
func (s *RegionSeries) Regions() int {
	return s.Rows * s.Cols
}

// At returns the value at time step t for grid cell (row, col).
func (s *RegionSeries) At(t, row, col int) float64 {
	return s.Data[(t*s.Rows+row)*s.Cols+col]
}

// Step returns the flattened regions observed at time step t. The slice
// aliases the series data.
func (s *RegionSeries) Step(t int) []float64 {
	n := s.Regions()
	return s.Data[t*n : (t+1)*n]
}

// Region copies the full signal of flattened region r.
func (s *RegionSeries) Region(r int) []float64 {
	n := s.Regions()
	out := make([]float64, s.Steps)
	for t := range s.Steps {
		out[t] = s.Data[t*n+r]
	}
	return out
}
