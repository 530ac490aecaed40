package walk

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/misterem/RandomWalker/internal/geometry"
	"github.com/misterem/RandomWalker/internal/logging"
	"github.com/misterem/RandomWalker/internal/obstacle"
	"github.com/misterem/RandomWalker/internal/render"
	"github.com/misterem/RandomWalker/internal/stats"
)

const (
	// DefaultMaxAttempts bounds the wall-retry loop of a single step.
	DefaultMaxAttempts = 10000
	// shortenDecrement is how far a portal-crossing step is cut back per iteration.
	shortenDecrement = 0.01
)

// Config describes a walker.
type Config struct {
	Name   string
	Color  string // opaque display token handed to the render sink
	Policy Policy
}

// Env is what a walker borrows from its host. The walker never owns the field.
type Env struct {
	Field       *obstacle.Field
	Sink        render.Sink  // nil => nothing is drawn
	RNG         RandomSource // nil => DefaultRNG()
	Logger      *slog.Logger // nil => discard
	MaxAttempts int          // <= 0 => DefaultMaxAttempts
}

func (e Env) normalize() Env {
	if e.Sink == nil {
		e.Sink = render.Nop{}
	}
	if e.RNG == nil {
		e.RNG = DefaultRNG()
	}
	if e.Logger == nil {
		e.Logger = slog.New(slog.DiscardHandler)
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = DefaultMaxAttempts
	}
	return e
}

// Walker is one simulated agent. A primary walker also owns the averaged
// statistics of its trial copies ("subwalkers").
type Walker struct {
	cfg Config
	env Env

	pos   geometry.Position
	stats *stats.WalkerStats

	primary    bool
	averages   *stats.AverageStats
	copies     int
	copiedAt   int // primary iteration count the subwalkers were simulated for
	subwalkers []*Walker
}

// NewWalker validates cfg and returns a primary walker at the origin.
func NewWalker(cfg Config, env Env) (*Walker, error) {
	if cfg.Name == "" {
		return nil, ErrEmptyName
	}
	if cfg.Policy == nil {
		return nil, fmt.Errorf("%w: walker %q has no movement policy", ErrInvalidConfiguration, cfg.Name)
	}
	if w, ok := cfg.Policy.(Weighted); ok {
		if _, err := NewWeighted(w.Weights[:]); err != nil {
			return nil, fmt.Errorf("walker %q: %w", cfg.Name, err)
		}
	}
	w := newWalker(cfg, env.normalize())
	w.primary = true
	w.averages = stats.NewAverageStats(w.stats)
	w.copies = 1
	return w, nil
}

func newWalker(cfg Config, env Env) *Walker {
	return &Walker{cfg: cfg, env: env, stats: stats.NewWalkerStats()}
}

// Name of the walker, unique within a simulation.
func (w *Walker) Name() string { return w.cfg.Name }

// Color is the display token passed to the render sink.
func (w *Walker) Color() string { return w.cfg.Color }

// Policy returns the movement policy.
func (w *Walker) Policy() Policy { return w.cfg.Policy }

// Position is the exact (untruncated) current position.
func (w *Walker) Position() geometry.Position { return w.pos }

// Iterations is the number of accepted steps.
func (w *Walker) Iterations() int { return w.stats.Iterations() }

// Stats exposes the walker's own statistics log. Callers must not mutate it.
func (w *Walker) Stats() *stats.WalkerStats { return w.stats }

// Averages exposes the cross-trial averages; nil for subwalkers.
func (w *Walker) Averages() *stats.AverageStats { return w.averages }

// Copies is the number of trials folded into the averages, the walker itself included.
func (w *Walker) Copies() int { return w.copies }

// Subwalkers returns the trial copies simulated so far.
func (w *Walker) Subwalkers() []*Walker { return append([]*Walker(nil), w.subwalkers...) }

// IsPrimary reports whether w is a primary walker rather than a trial copy.
func (w *Walker) IsPrimary() bool { return w.primary }

// Step performs one accepted step: draw a candidate, redraw on wall hits,
// teleport through the first portal crossed, then record the endpoint.
// On error nothing is recorded and the walker does not move.
func (w *Walker) Step() error {
	for attempt := 1; attempt <= w.env.MaxAttempts; attempt++ {
		bearing, distance := w.cfg.Policy.Next(w.pos, w.env.RNG)
		line := geometry.Step(w.pos, bearing, distance)

		if id, hit := w.env.Field.FirstWall(line); hit {
			w.env.Logger.Debug("step hit wall", "walker", w.cfg.Name, "wall", int(id), "attempt", attempt)
			continue
		}

		id, hit := w.env.Field.FirstPortal(line)
		if !hit {
			w.commit(line.To, line)
			return nil
		}
		portal, _ := w.env.Field.Portal(id)
		approach, remaining, err := shorten(w.pos, bearing, distance, portal.Entry)
		if err != nil {
			return fmt.Errorf("walker %q portal %d: %w", w.cfg.Name, int(id), err)
		}
		jump := geometry.Step(portal.Exit, bearing, remaining)
		w.env.Logger.Debug("step through portal", "walker", w.cfg.Name, "portal", int(id),
			"exit_x", portal.Exit.X, "exit_y", portal.Exit.Y, "distance", remaining)
		w.commit(jump.To, approach, jump)
		return nil
	}
	return fmt.Errorf("walker %q after %d attempts: %w", w.cfg.Name, w.env.MaxAttempts, ErrUnresolvedCollision)
}

// shorten cuts a step back until it stops touching entry, returning the
// shortened segment and its length.
func shorten(start geometry.Position, bearing, distance float64, entry geometry.Segment) (geometry.Segment, float64, error) {
	line := geometry.Step(start, bearing, distance)
	intersects := true
	for intersects && distance > 0 {
		distance -= shortenDecrement
		line = geometry.Step(start, bearing, distance)
		intersects = geometry.Intersects(entry, line)
	}
	if intersects || distance <= 0 {
		return geometry.Segment{}, 0, ErrDegenerateShortening
	}
	return line, distance, nil
}

func (w *Walker) commit(end geometry.Position, traversed ...geometry.Segment) {
	w.pos = end
	w.stats.Update(stats.Point{X: int(end.X), Y: int(end.Y)})
	w.env.Logger.Log(context.Background(), logging.LevelTrace, "step accepted",
		"walker", w.cfg.Name, "step", w.stats.Iterations(), "x", end.X, "y", end.Y)
	for _, s := range traversed {
		w.env.Sink.DrawSegment(s, w.cfg.Color)
	}
}

// StepN performs up to n steps, stopping at the first error.
// It returns how many steps were accepted.
func (w *Walker) StepN(n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: step count must be >= 0, got %d", ErrInvalidConfiguration, n)
	}
	for i := 0; i < n; i++ {
		if err := w.Step(); err != nil {
			return i, err
		}
	}
	return n, nil
}

// Copy makes sure copies trials (the walker itself included) are folded into
// the averages. Each missing trial is an independent replay of the walker's
// current number of steps. If the walker moved on since the last Copy the old
// trials are discarded first.
func (w *Walker) Copy(copies int) error {
	if !w.primary {
		return ErrNotPrimary
	}
	if w.copies > 1 && w.copiedAt != w.stats.Iterations() {
		w.ResetCopies()
	}
	steps := w.stats.Iterations()
	for w.copies < copies {
		sub := newWalker(w.cfg, Env{
			Field:       w.env.Field,
			Sink:        render.Nop{},
			RNG:         w.env.RNG,
			Logger:      w.env.Logger,
			MaxAttempts: w.env.MaxAttempts,
		})
		if _, err := sub.StepN(steps); err != nil {
			return fmt.Errorf("trial %d of %q: %w", w.copies+1, w.cfg.Name, err)
		}
		if err := w.averages.Update(sub.stats, w.copies); err != nil {
			return fmt.Errorf("trial %d of %q: %w", w.copies+1, w.cfg.Name, err)
		}
		w.subwalkers = append(w.subwalkers, sub)
		w.copies++
		w.copiedAt = steps
	}
	return nil
}

// ResetCopies drops every trial copy and averaged snapshot.
func (w *Walker) ResetCopies() {
	if !w.primary {
		return
	}
	w.subwalkers = nil
	w.averages.Clear()
	w.copies = 1
	w.copiedAt = 0
}

// FinalDistanceSummary summarizes the last distance from the origin over the
// walker and all of its trial copies.
func (w *Walker) FinalDistanceSummary() stats.Summary {
	xs := []float64{w.stats.Final(stats.DistanceFromCenter)}
	for _, sub := range w.subwalkers {
		xs = append(xs, sub.stats.Final(stats.DistanceFromCenter))
	}
	return stats.Summarize(xs)
}
