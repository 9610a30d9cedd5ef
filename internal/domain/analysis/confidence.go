package analysis

import "math"

// Scale is the unit a service response reports its scores in.
// It is decided once per response shape, never per value.
type Scale int

const (
	// ScaleFraction scores lie in [0,1].
	ScaleFraction Scale = iota
	// ScalePercent scores lie in [0,100].
	ScalePercent
)

// ToFraction converts a score reported in s to a fraction in [0,1].
// A value outside the scale's range is malformed.
func (s Scale) ToFraction(v float64) (float64, error) {
	limit := 1.0
	if s == ScalePercent {
		limit = 100
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > limit {
		return 0, &MalformedResultError{Field: "confidence"}
	}
	return v / limit, nil
}

func (s Scale) String() string {
	if s == ScalePercent {
		return "percent"
	}
	return "fraction"
}

// Percent renders a fraction for display, e.g. 0.87 -> 87.0.
func Percent(fraction float64) float64 {
	return math.Round(fraction*1000) / 10
}

func inUnitRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
