package scene

import (
	"fmt"
	"log/slog"

	"github.com/misterem/RandomWalker/internal/obstacle"
	"github.com/misterem/RandomWalker/internal/render"
	"github.com/misterem/RandomWalker/internal/walk"
)

// Host is what the embedding program lends to the simulation.
type Host struct {
	Sink   render.Sink
	Logger *slog.Logger
}

// Build validates cfg and turns it into a ready simulation.
func Build(cfg RawScene, host Host) (*walk.Simulation, error) {
	if err := ValidateRaw(cfg); err != nil {
		return nil, err
	}

	field := obstacle.NewField()
	for i, w := range cfg.Walls {
		if _, err := field.AddWall(w); err != nil {
			return nil, fmt.Errorf("walls[%d]: %w", i, err)
		}
	}
	for i, p := range cfg.Portals {
		if _, err := field.AddPortal(p); err != nil {
			return nil, fmt.Errorf("portals[%d]: %w", i, err)
		}
	}

	opts := walk.Options{Seed: cfg.Seed, Sink: host.Sink, Logger: host.Logger}
	if cfg.MaxAttempts != nil {
		opts.MaxAttempts = *cfg.MaxAttempts
	}
	sim := walk.NewSimulation(field, opts)
	for _, w := range cfg.Walkers {
		if _, err := AddWalker(sim, w); err != nil {
			return nil, err
		}
	}
	return sim, nil
}

// AddWalker creates a walker from configuration input.
func AddWalker(sim *walk.Simulation, w WalkerCfg) (*walk.Walker, error) {
	policy, err := walk.PolicyFor(walk.Kind(w.Type), w.Weights)
	if err != nil {
		return nil, fmt.Errorf("walker %q: %w", w.Name, err)
	}
	return sim.AddWalker(walk.Config{Name: w.Name, Color: w.Color, Policy: policy})
}
