package datasets

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// MinMaxScaler maps counts into [-1, 1] using the minimum and maximum seen
// during Fit, and maps model outputs back into counts.
type MinMaxScaler struct {
	Min float64
	Max float64
}

// Fit records the range of values. An empty or constant input is an error
// because the scale would be undefined.
func (s *MinMaxScaler) Fit(values []float64) error {
	if len(values) == 0 {
		return errors.Wrap(ErrShape, "fit on empty data")
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if hi == lo {
		return errors.Wrapf(ErrShape, "fit on constant data (%g)", lo)
	}
	s.Min, s.Max = lo, hi
	return nil
}

func (s *MinMaxScaler) span() float64 {
	return s.Max - s.Min
}

// Transform scales values in place.
func (s *MinMaxScaler) Transform(values []float64) {
	d := s.span()
	for i, v := range values {
		values[i] = 2*(v-s.Min)/d - 1
	}
}

// InverseTransform maps scaled values back to counts in place.
func (s *MinMaxScaler) InverseTransform(values []float64) {
	d := s.span()
	for i, v := range values {
		values[i] = (v+1)/2*d + s.Min
	}
}

// RealLoss converts an RMSE measured on scaled values into count units.
func (s *MinMaxScaler) RealLoss(scaledRMSE float64) float64 {
	return math.Abs(scaledRMSE) * s.span() / 2
}
