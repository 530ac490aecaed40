package stats

import "math"

// Point is an accepted position truncated to integer coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// WalkerStats is the append-only statistics log of one trajectory.
// Every series is seeded with the origin's value, so each has Iterations()+1 entries.
type WalkerStats struct {
	iterations int
	positions  []Point
	series     table
}

// NewWalkerStats returns a log holding only the origin.
func NewWalkerStats() *WalkerStats {
	s := &WalkerStats{}
	s.Reset()
	return s
}

// Reset reinitializes the log to the single-element seed.
func (s *WalkerStats) Reset() {
	s.iterations = 0
	s.positions = []Point{{}}
	for i := range s.series {
		s.series[i] = []float64{0}
	}
}

// Update records one accepted position.
func (s *WalkerStats) Update(p Point) {
	s.iterations++
	s.positions = append(s.positions, p)

	dist := math.Hypot(float64(p.X), float64(p.Y))
	s.series[DistanceFromCenter] = append(s.series[DistanceFromCenter], dist)
	s.series[DistanceFromX] = append(s.series[DistanceFromX], math.Abs(float64(p.X)))
	s.series[DistanceFromY] = append(s.series[DistanceFromY], math.Abs(float64(p.Y)))

	// smallest integer radius the position does not lie beyond
	radius := math.Ceil(dist)
	s.series[RadiusSteps] = append(s.series[RadiusSteps], last(s.series[RadiusSteps])+radius)

	yAt := func(i int) int { return s.positions[i].Y }
	xAt := func(i int) int { return s.positions[i].X }
	s.series[CrossedX] = append(s.series[CrossedX], last(s.series[CrossedX])+b2f(crossed(len(s.positions), yAt)))
	s.series[CrossedY] = append(s.series[CrossedY], last(s.series[CrossedY])+b2f(crossed(len(s.positions), xAt)))
}

// crossed reports whether the newest of size coordinates lies on the other side of
// the axis than the walker was before. When the previous coordinate is zero the
// history is scanned backward for the latest non-zero one.
func crossed(size int, at func(int) int) bool {
	n := size - 1
	v := sign(at(n))
	prod := func(i int) int { return sign(at(i)) * v }

	switch p := prod(n - 1); {
	case p < 0:
		return true
	case p > 0:
		return false
	}
	i := 1
	for prod(n-i) == 0 && i < size-1 {
		i++
	}
	return prod(n-i) < 0
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func last(xs []float64) float64 { return xs[len(xs)-1] }

// Iterations is the number of accepted steps.
func (s *WalkerStats) Iterations() int { return s.iterations }

// Len is the length shared by every series.
func (s *WalkerStats) Len() int { return len(s.positions) }

// Positions returns a copy of the recorded trajectory, origin first.
func (s *WalkerStats) Positions() []Point {
	return append([]Point(nil), s.positions...)
}

// Series returns a copy of one series. Unknown series yield nil.
func (s *WalkerStats) Series(k Series) []float64 {
	if !k.Valid() {
		return nil
	}
	return append([]float64(nil), s.series[k]...)
}

// At returns the value of series k after step i.
func (s *WalkerStats) At(k Series, i int) (float64, bool) {
	if !k.Valid() || i < 0 || i >= len(s.series[k]) {
		return 0, false
	}
	return s.series[k][i], true
}

// Final returns the newest value of series k.
func (s *WalkerStats) Final(k Series) float64 {
	if !k.Valid() {
		return 0
	}
	return last(s.series[k])
}
