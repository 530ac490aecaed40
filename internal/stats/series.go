// Package stats accumulates per-trajectory statistics and averages them across trials.
package stats

// Series names one of the statistics recorded at every accepted step.
type Series int

const (
	DistanceFromCenter Series = iota
	// DistanceFromX stores |x|, the distance from the vertical axis.
	DistanceFromX
	// DistanceFromY stores |y|, the distance from the horizontal axis.
	DistanceFromY
	RadiusSteps
	CrossedX
	CrossedY

	seriesCount
)

// AllSeries lists every series in a stable order.
var AllSeries = []Series{DistanceFromCenter, DistanceFromX, DistanceFromY, RadiusSteps, CrossedX, CrossedY}

func (s Series) String() string {
	switch s {
	case DistanceFromCenter:
		return "distance_from_center"
	case DistanceFromX:
		return "distance_from_x"
	case DistanceFromY:
		return "distance_from_y"
	case RadiusSteps:
		return "radius_steps"
	case CrossedX:
		return "times_crossed_x"
	case CrossedY:
		return "times_crossed_y"
	}
	return "unknown"
}

// Valid reports whether s names a recorded series.
func (s Series) Valid() bool { return s >= 0 && s < seriesCount }

// table holds one value slice per series.
type table [seriesCount][]float64

func (t table) clone() table {
	var out table
	for i := range t {
		out[i] = append([]float64(nil), t[i]...)
	}
	return out
}
