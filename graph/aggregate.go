package graph

import (
	"github.com/Noofbiz/demandgraph/datasets"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Aggregate is the period-averaged profile of every region: a
// (period, regions) matrix whose column r is the mean of all full periods
// observed for region r.
type Aggregate struct {
	*mat.Dense
	windows int
}

// Windows returns the number of full periods averaged into the profile.
func (a *Aggregate) Windows() int {
	return a.windows
}

// Period returns the profile length.
func (a *Aggregate) Period() int {
	r, _ := a.Dims()
	return r
}

// Regions returns the number of regions.
func (a *Aggregate) Regions() int {
	_, c := a.Dims()
	return c
}

// Signal copies the profile of region r.
func (a *Aggregate) Signal(r int) []float64 {
	return mat.Col(nil, r, a.Dense)
}

// Signals returns every region profile, indexed by region.
func (a *Aggregate) Signals() [][]float64 {
	out := make([][]float64, a.Regions())
	for r := range out {
		out[r] = a.Signal(r)
	}
	return out
}

// WeeklyAggregate sums the series over consecutive, non-overlapping windows of
// period steps and divides by the number of windows. A trailing partial
// window is dropped.
func WeeklyAggregate(series *datasets.RegionSeries, period int) (*Aggregate, error) {
	if series == nil {
		return nil, errors.Wrap(ErrDataShape, "nil series")
	}
	if period <= 0 {
		return nil, errors.Wrapf(ErrDataShape, "period must be positive, got %d", period)
	}
	if series.Steps < period {
		return nil, errors.Wrapf(ErrDataShape, "%d time steps is shorter than one period of %d", series.Steps, period)
	}

	regions := series.Regions()
	acc := make([]float64, period*regions)
	count := 0
	for start := range datasets.Spans(series.Steps, period, false) {
		for t := range period {
			floats.Add(acc[t*regions:(t+1)*regions], series.Step(start+t))
		}
		count++
	}
	floats.Scale(1/float64(count), acc)

	return &Aggregate{Dense: mat.NewDense(period, regions, acc), windows: count}, nil
}
