// types.go
package scene

import (
	"github.com/misterem/RandomWalker/internal/geometry"
	"github.com/misterem/RandomWalker/internal/obstacle"
)

// Raw scene loaded from YAML.
type RawScene struct {
	Version     string             `yaml:"version"`
	Seed        *uint64            `yaml:"seed,omitempty"`
	MaxAttempts *int               `yaml:"max_attempts,omitempty"`
	LogLevel    string             `yaml:"log_level,omitempty"`
	Walls       []geometry.Segment `yaml:"walls,omitempty"`
	Portals     []obstacle.Portal  `yaml:"portals,omitempty"`
	Walkers     []WalkerCfg        `yaml:"walkers,omitempty"`
	Notes       string             `yaml:"notes,omitempty"`
}

// WalkerCfg is the configuration input for one walker.
type WalkerCfg struct {
	Name    string    `yaml:"name"`
	Type    int       `yaml:"type"`              // 1..4
	Color   string    `yaml:"color"`             // opaque display token
	Weights []float64 `yaml:"weights,omitempty"` // type 4 only: up, down, left, right, center
}

// Overrides carries values that beat every file, e.g. CLI flags or env vars.
type Overrides struct {
	Seed        *uint64
	MaxAttempts *int
	LogLevel    *string
}
