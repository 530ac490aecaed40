package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultScene is the name of the scene every other scene is layered on.
const DefaultScene = "default"

// Paths helper for default/scene files.
type Paths struct {
	BaseDir string // base directory, e.g., ./config
}

func (p Paths) DefaultPath() string {
	return p.ScenePath(DefaultScene)
}
func (p Paths) ScenePath(name string) string {
	return filepath.Join(p.BaseDir, "scenes", name+".yaml")
}

// Loader reads YAML scenes and merges default → scene.
type Loader struct {
	paths Paths

	mu    sync.RWMutex
	cache map[string]RawScene // key: scene name
}

// NewLoader creates a scene loader with the given base directory.
func NewLoader(baseDir string) *Loader {
	return &Loader{
		paths: Paths{BaseDir: baseDir},
		cache: make(map[string]RawScene),
	}
}

// Paths returns the files a scene is built from, default first.
func (l *Loader) Paths(name string) []string {
	if name == "" || name == DefaultScene {
		return []string{l.paths.DefaultPath()}
	}
	return []string{l.paths.DefaultPath(), l.paths.ScenePath(name)}
}

// LoadMerged loads and merges default → scene (scene optional).
// The result is not validated.
func (l *Loader) LoadMerged(name string) (RawScene, error) {
	if name == "" {
		name = DefaultScene
	}
	l.mu.RLock()
	if cfg, ok := l.cache[name]; ok {
		l.mu.RUnlock()
		return cfg, nil
	}
	l.mu.RUnlock()

	defCfg, err := ReadFile(l.paths.DefaultPath())
	if err != nil {
		return RawScene{}, fmt.Errorf("read default: %w", err)
	}
	merged := defCfg
	if name != DefaultScene {
		sceneCfg, err := ReadFile(l.paths.ScenePath(name))
		if err != nil {
			return RawScene{}, fmt.Errorf("read scene %s: %w", name, err)
		}
		merged = Merge(defCfg, sceneCfg)
	}

	l.mu.Lock()
	l.cache[name] = merged
	l.mu.Unlock()
	return merged, nil
}

// Invalidate clears loader's cache. Call after the watcher detects changes.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]RawScene)
}

// ReadFile loads a YAML file into RawScene. Missing files return zero cfg, no error.
func ReadFile(path string) (RawScene, error) {
	var cfg RawScene
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RawScene{}, nil
		}
		return RawScene{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RawScene{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Merge layers b over a: b's scalars win when set, obstacles accumulate
// (a's first), and b's walkers replace a's walkers of the same name.
func Merge(a, b RawScene) RawScene {
	out := a
	if b.Version != "" {
		out.Version = b.Version
	}
	if b.Notes != "" {
		out.Notes = b.Notes
	}
	if b.LogLevel != "" {
		out.LogLevel = b.LogLevel
	}
	if b.Seed != nil {
		v := *b.Seed
		out.Seed = &v
	}
	if b.MaxAttempts != nil {
		v := *b.MaxAttempts
		out.MaxAttempts = &v
	}

	out.Walls = append(append(a.Walls[:0:0], a.Walls...), b.Walls...)
	out.Portals = append(append(a.Portals[:0:0], a.Portals...), b.Portals...)

	out.Walkers = append(a.Walkers[:0:0], a.Walkers...)
	for _, w := range b.Walkers {
		replaced := false
		for i := range out.Walkers {
			if out.Walkers[i].Name == w.Name {
				out.Walkers[i] = w
				replaced = true
				break
			}
		}
		if !replaced {
			out.Walkers = append(out.Walkers, w)
		}
	}
	return out
}

// Apply layers o over cfg.
func Apply(cfg RawScene, o Overrides) RawScene {
	if o.Seed != nil {
		v := *o.Seed
		cfg.Seed = &v
	}
	if o.MaxAttempts != nil {
		v := *o.MaxAttempts
		cfg.MaxAttempts = &v
	}
	if o.LogLevel != nil {
		cfg.LogLevel = *o.LogLevel
	}
	return cfg
}
