// Package render receives the segments walkers traverse, for display.
package render

import "github.com/misterem/RandomWalker/internal/geometry"

// Sink is told about every segment a walker actually travelled. Drawing is
// best effort: sinks swallow their own failures.
type Sink interface {
	DrawSegment(s geometry.Segment, color string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) DrawSegment(geometry.Segment, string) {}

// Func adapts a function to Sink.
type Func func(s geometry.Segment, color string)

func (f Func) DrawSegment(s geometry.Segment, color string) { f(s, color) }

// Multi fans segments out to several sinks in order.
type Multi []Sink

func (m Multi) DrawSegment(s geometry.Segment, color string) {
	for _, sink := range m {
		if sink != nil {
			sink.DrawSegment(s, color)
		}
	}
}

// Recorder keeps every segment it is given, mostly for tests and replays.
type Recorder struct {
	Segments []Drawn
}

// Drawn is one recorded segment.
type Drawn struct {
	Segment geometry.Segment `json:"segment"`
	Color   string           `json:"color"`
}

func (r *Recorder) DrawSegment(s geometry.Segment, color string) {
	r.Segments = append(r.Segments, Drawn{Segment: s, Color: color})
}
