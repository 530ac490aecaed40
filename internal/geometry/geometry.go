package geometry

import (
	"errors"
	"math"
)

var ErrNonFinite = errors.New("coordinate must be finite")

// Position is a point on the plane.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Origin is the walkers' starting point and the reference for every statistic.
var Origin = Position{}

// Finite reports whether both coordinates are finite numbers.
func (p Position) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Distance returns the Euclidean distance between p and q.
func (p Position) Distance(q Position) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Segment is a line segment between two positions.
type Segment struct {
	From Position `json:"from" yaml:"from"`
	To   Position `json:"to" yaml:"to"`
}

// Validate rejects segments with non-finite endpoints.
func (s Segment) Validate() error {
	if !s.From.Finite() || !s.To.Finite() {
		return ErrNonFinite
	}
	return nil
}

// Length of the segment.
func (s Segment) Length() float64 {
	return s.From.Distance(s.To)
}

// orientation of the ordered triple (p, q, r):
// 0 collinear, 1 clockwise, 2 counterclockwise
func orientation(p, q, r Position) int {
	val := (q.Y-p.Y)*(r.X-q.X) - (q.X-p.X)*(r.Y-q.Y)
	switch {
	case val > 0:
		return 1
	case val < 0:
		return 2
	default:
		return 0
	}
}

// onSegment reports whether q lies inside the bounding box of p and r.
// Only meaningful when p, q, r are collinear.
func onSegment(p, q, r Position) bool {
	return q.X <= math.Max(p.X, r.X) && q.X >= math.Min(p.X, r.X) &&
		q.Y <= math.Max(p.Y, r.Y) && q.Y >= math.Min(p.Y, r.Y)
}

// Intersects reports whether a and b share at least one point.
// Comparisons are exact: no tolerance is applied in the collinear branch.
func Intersects(a, b Segment) bool {
	p1, q1 := a.From, a.To
	p2, q2 := b.From, b.To

	o1 := orientation(p1, q1, p2)
	o2 := orientation(p1, q1, q2)
	o3 := orientation(p2, q2, p1)
	o4 := orientation(p2, q2, q1)

	// general case
	if o1 != o2 && o3 != o4 {
		return true
	}

	// collinear special cases
	if o1 == 0 && onSegment(p1, p2, q1) {
		return true
	}
	if o2 == 0 && onSegment(p1, q2, q1) {
		return true
	}
	if o3 == 0 && onSegment(p2, p1, q2) {
		return true
	}
	if o4 == 0 && onSegment(p2, q1, q2) {
		return true
	}
	return false
}

// EndPoint moves distance units from start along a compass bearing in degrees.
// 0 points to +y, 90 to +x, 180 to -y and 270 to -x.
func EndPoint(start Position, bearing, distance float64) Position {
	rad := bearing * math.Pi / 180
	return Position{
		X: start.X + distance*math.Sin(rad),
		Y: start.Y + distance*math.Cos(rad),
	}
}

// BearingToOrigin returns the compass bearing from (x, y) toward the origin, in [0, 360].
func BearingToOrigin(p Position) float64 {
	return math.Atan2(p.X, p.Y)*180/math.Pi + 180
}

// Step builds the segment travelled by moving distance along bearing from start.
func Step(start Position, bearing, distance float64) Segment {
	return Segment{From: start, To: EndPoint(start, bearing, distance)}
}
