package forecast

import "fmt"

// MinMaxScaler maps observed prices into [0, 1]. Fields are exported so a
// fitted scaler survives a gob round trip.
type MinMaxScaler struct {
	Min    float64
	Max    float64
	Fitted bool
}

// Fit learns the range of the given values.
func (s *MinMaxScaler) Fit(values []float64) error {
	if len(values) == 0 {
		return fmt.Errorf("cannot fit scaler on empty input")
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	s.Min = min
	s.Max = max
	s.Fitted = true
	return nil
}

// span returns the fitted range, treating a degenerate constant series as
// span one so transforms stay finite.
func (s *MinMaxScaler) span() float64 {
	if s.Max == s.Min {
		return 1
	}
	return s.Max - s.Min
}

// Transform scales one value into the fitted range.
func (s *MinMaxScaler) Transform(v float64) float64 {
	return (v - s.Min) / s.span()
}

// TransformAll scales a slice of values.
func (s *MinMaxScaler) TransformAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.Transform(v)
	}
	return out
}

// Inverse maps a scaled value back to the price domain.
func (s *MinMaxScaler) Inverse(v float64) float64 {
	return v*s.span() + s.Min
}

// InverseAll maps a slice of scaled values back to the price domain.
func (s *MinMaxScaler) InverseAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.Inverse(v)
	}
	return out
}
