package walk

import (
	"fmt"
	"math"

	"github.com/misterem/RandomWalker/internal/geometry"
)

// StepUnit is the base distance of one step.
const StepUnit = 10.0

// Kind is the numeric walker type used by configuration input.
type Kind int

const (
	KindUniform Kind = iota + 1
	KindVariableSpeed
	KindAxisAligned
	KindWeighted
)

func (k Kind) String() string {
	switch k {
	case KindUniform:
		return "uniform"
	case KindVariableSpeed:
		return "variable_speed"
	case KindAxisAligned:
		return "axis_aligned"
	case KindWeighted:
		return "weighted"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Policy picks the bearing (compass degrees) and distance of the next step.
// The set of policies is closed: Uniform, VariableSpeed, AxisAligned and Weighted.
type Policy interface {
	Kind() Kind
	Next(from geometry.Position, rng RandomSource) (bearing, distance float64)
	sealed()
}

// Uniform moves one unit toward a uniformly random whole-degree bearing.
type Uniform struct{}

func (Uniform) Kind() Kind { return KindUniform }
func (Uniform) sealed()    {}

func (Uniform) Next(_ geometry.Position, rng RandomSource) (float64, float64) {
	return float64(rng.IntN(360)), StepUnit
}

// VariableSpeed is Uniform with the distance scaled by a factor in [0.5, 1.5).
type VariableSpeed struct{}

func (VariableSpeed) Kind() Kind { return KindVariableSpeed }
func (VariableSpeed) sealed()    {}

func (VariableSpeed) Next(_ geometry.Position, rng RandomSource) (float64, float64) {
	bearing := float64(rng.IntN(360))
	return bearing, StepUnit * (0.5 + rng.Float64())
}

// AxisAligned moves one unit along one of the four axis directions.
type AxisAligned struct{}

func (AxisAligned) Kind() Kind { return KindAxisAligned }
func (AxisAligned) sealed()    {}

func (AxisAligned) Next(_ geometry.Position, rng RandomSource) (float64, float64) {
	return float64(90 * rng.IntN(4)), StepUnit
}

// Weight indexes the five probabilities of a Weighted walker. Names follow
// screen space, where y grows downward: Up travels along bearing 180.
const (
	WeightUp = iota
	WeightDown
	WeightLeft
	WeightRight
	WeightCenter
	weightCount
)

// weightBearings maps the first four weights to compass bearings; the center
// weight is computed from the current position.
var weightBearings = [weightCount - 1]float64{180, 0, 270, 90}

// Weighted picks among four fixed directions and "toward the origin".
type Weighted struct {
	Weights [weightCount]float64
}

// NewWeighted validates a probability tuple: five finite values in [0, 1] summing to 1.
func NewWeighted(weights []float64) (Weighted, error) {
	if len(weights) != weightCount {
		return Weighted{}, fmt.Errorf("%w: weighted walker needs %d probabilities, got %d",
			ErrInvalidConfiguration, weightCount, len(weights))
	}
	var w Weighted
	var sum float64
	for i, p := range weights {
		if err := validateProb(p); err != nil {
			return Weighted{}, fmt.Errorf("%w: probability %d: %v", ErrInvalidConfiguration, i, err)
		}
		w.Weights[i] = p
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		return Weighted{}, fmt.Errorf("%w: probabilities sum to %g, want 1", ErrInvalidConfiguration, sum)
	}
	return w, nil
}

func (Weighted) Kind() Kind { return KindWeighted }
func (Weighted) sealed()    {}

// Next samples the cumulative weights. The center bucket takes whatever the
// first four thresholds leave over.
func (w Weighted) Next(from geometry.Position, rng RandomSource) (float64, float64) {
	r := rng.Float64()
	var cum float64
	for i, bearing := range weightBearings {
		cum += w.Weights[i]
		if r < cum {
			return bearing, StepUnit
		}
	}
	return geometry.BearingToOrigin(from), StepUnit
}

// PolicyFor builds the policy for a numeric walker type. weights is required
// for KindWeighted and ignored otherwise.
func PolicyFor(kind Kind, weights []float64) (Policy, error) {
	switch kind {
	case KindUniform:
		return Uniform{}, nil
	case KindVariableSpeed:
		return VariableSpeed{}, nil
	case KindAxisAligned:
		return AxisAligned{}, nil
	case KindWeighted:
		w, err := NewWeighted(weights)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
	return nil, fmt.Errorf("%w: walker type must be 1-4, got %d", ErrInvalidConfiguration, int(kind))
}
