package walk

import (
	"fmt"
	"log/slog"

	"github.com/misterem/RandomWalker/internal/obstacle"
	"github.com/misterem/RandomWalker/internal/render"
)

// Options configures a Simulation. Zero values pick defaults.
type Options struct {
	Seed        *uint64 // nil => cryptographic, unreplayable randomness
	Sink        render.Sink
	Logger      *slog.Logger
	MaxAttempts int
}

// Simulation is the set of walkers sharing one obstacle field and one random
// stream. It is not safe for concurrent use; hosts serialize access.
type Simulation struct {
	field  *obstacle.Field
	rng    *sharedSource
	seed   *uint64
	sink   render.Sink
	log    *slog.Logger
	max    int
	order  []*Walker
	byName map[string]*Walker
}

// NewSimulation creates an empty simulation over field.
func NewSimulation(field *obstacle.Field, opts Options) *Simulation {
	if field == nil {
		field = obstacle.NewField()
	}
	s := &Simulation{
		field:  field,
		rng:    &sharedSource{src: DefaultRNG()},
		sink:   opts.Sink,
		log:    opts.Logger,
		max:    opts.MaxAttempts,
		byName: make(map[string]*Walker),
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	if opts.Seed != nil {
		s.Reseed(*opts.Seed)
	}
	return s
}

// Field returns the shared obstacle field.
func (s *Simulation) Field() *obstacle.Field { return s.field }

// Seed reports the seed of the random stream, if one was set.
func (s *Simulation) Seed() (uint64, bool) {
	if s.seed == nil {
		return 0, false
	}
	return *s.seed, true
}

// Reseed restarts the shared random stream from seed.
func (s *Simulation) Reseed(seed uint64) {
	s.seed = &seed
	s.rng.set(NewSeededRNG(seed))
	s.log.Info("random stream seeded", "seed", seed)
}

// AddWalker creates a primary walker. Names must be non-empty and unique.
func (s *Simulation) AddWalker(cfg Config) (*Walker, error) {
	if cfg.Name == "" {
		return nil, ErrEmptyName
	}
	if _, ok := s.byName[cfg.Name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, cfg.Name)
	}
	w, err := NewWalker(cfg, Env{
		Field:       s.field,
		Sink:        s.sink,
		RNG:         s.rng,
		Logger:      s.log,
		MaxAttempts: s.max,
	})
	if err != nil {
		return nil, err
	}
	s.order = append(s.order, w)
	s.byName[cfg.Name] = w
	s.log.Debug("walker created", "walker", cfg.Name, "kind", cfg.Policy.Kind().String())
	return w, nil
}

// Walker looks up a walker by name.
func (s *Simulation) Walker(name string) (*Walker, error) {
	w, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWalker, name)
	}
	return w, nil
}

// Walkers returns every walker in creation order.
func (s *Simulation) Walkers() []*Walker {
	return append([]*Walker(nil), s.order...)
}

// StepAll steps every walker once, in creation order, stopping at the first failure.
func (s *Simulation) StepAll() error {
	for _, w := range s.order {
		if err := w.Step(); err != nil {
			return err
		}
	}
	return nil
}
