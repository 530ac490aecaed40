package scene

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/misterem/RandomWalker/internal/walk"
)

const defaultYAML = `
version: "1"
seed: 7
walls:
  - from: {x: -50, y: 50}
    to: {x: 50, y: 50}
walkers:
  - name: Example Walker
    type: 1
    color: blue
`

const mazeYAML = `
max_attempts: 200
walls:
  - from: {x: -50, y: -50}
    to: {x: 50, y: -50}
portals:
  - entry: {from: {x: 20, y: -5}, to: {x: 20, y: 5}}
    exit: {x: 100, y: 100}
walkers:
  - name: Example Walker
    type: 3
    color: red
  - name: homebody
    type: 4
    color: green
    weights: [0.1, 0.1, 0.1, 0.1, 0.6]
`

func writeScene(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := Paths{BaseDir: dir}.ScenePath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMergedLayersSceneOverDefault(t *testing.T) {
	dir := t.TempDir()
	writeScene(t, dir, DefaultScene, defaultYAML)
	writeScene(t, dir, "maze", mazeYAML)

	cfg, err := NewLoader(dir).LoadMerged("maze")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Seed == nil || *cfg.Seed != 7 {
		t.Fatalf("seed not inherited: %v", cfg.Seed)
	}
	if cfg.MaxAttempts == nil || *cfg.MaxAttempts != 200 {
		t.Fatalf("max_attempts = %v", cfg.MaxAttempts)
	}
	if len(cfg.Walls) != 2 || cfg.Walls[0].From.Y != 50 {
		t.Fatalf("walls = %+v", cfg.Walls)
	}
	if len(cfg.Portals) != 1 || cfg.Portals[0].Exit.X != 100 {
		t.Fatalf("portals = %+v", cfg.Portals)
	}
	if len(cfg.Walkers) != 2 || cfg.Walkers[0].Type != 3 || cfg.Walkers[0].Color != "red" {
		t.Fatalf("walkers = %+v", cfg.Walkers)
	}
}

func TestLoaderCachesUntilInvalidated(t *testing.T) {
	dir := t.TempDir()
	writeScene(t, dir, DefaultScene, defaultYAML)
	l := NewLoader(dir)
	if _, err := l.LoadMerged(""); err != nil {
		t.Fatal(err)
	}
	writeScene(t, dir, DefaultScene, "seed: 99\n")

	cfg, _ := l.LoadMerged(DefaultScene)
	if *cfg.Seed != 7 {
		t.Fatalf("cache bypassed: seed %d", *cfg.Seed)
	}
	l.Invalidate()
	cfg, _ = l.LoadMerged(DefaultScene)
	if *cfg.Seed != 99 {
		t.Fatalf("stale after invalidate: seed %d", *cfg.Seed)
	}
}

func TestReadFileMissingAndBroken(t *testing.T) {
	dir := t.TempDir()
	cfg, err := ReadFile(filepath.Join(dir, "nope.yaml"))
	if err != nil || len(cfg.Walkers) != 0 {
		t.Fatalf("missing file: %+v, %v", cfg, err)
	}
	path := filepath.Join(dir, "bad.yaml")
	os.WriteFile(path, []byte("walls: [oops"), 0o644)
	if _, err := ReadFile(path); err == nil {
		t.Fatal("broken yaml accepted")
	}
}

func TestValidateRaw(t *testing.T) {
	neg := -1
	cfg := RawScene{
		MaxAttempts: &neg,
		Walkers: []WalkerCfg{
			{Name: "", Type: 1},
			{Name: "a", Type: 9},
			{Name: "b", Type: 4, Weights: []float64{0.5, 0.5, 0.5, 0, 0}},
			{Name: "b", Type: 2, Weights: []float64{1}},
			{Name: "c", Type: 4, Weights: []float64{1}},
		},
	}
	err := ValidateRaw(cfg)
	if err == nil {
		t.Fatal("invalid scene accepted")
	}
	for _, want := range []string{
		"max_attempts",
		"walkers[0].name is required",
		"walkers[1].type must be 1-4",
		"walkers[2].weights must sum to 1",
		`walkers[3].name "b" is already used`,
		"walkers[3].weights is only used by type 4",
		"walkers[4].weights needs 5 values",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %v", want, err)
		}
	}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	writeScene(t, dir, DefaultScene, defaultYAML)
	writeScene(t, dir, "maze", mazeYAML)
	cfg, err := NewLoader(dir).LoadMerged("maze")
	if err != nil {
		t.Fatal(err)
	}

	sim, err := Build(cfg, Host{})
	if err != nil {
		t.Fatal(err)
	}
	if seed, ok := sim.Seed(); !ok || seed != 7 {
		t.Fatalf("seed = %v,%v", seed, ok)
	}
	if len(sim.Field().Walls()) != 2 || len(sim.Field().Portals()) != 1 {
		t.Fatalf("field not populated")
	}
	w, err := sim.Walker("homebody")
	if err != nil {
		t.Fatal(err)
	}
	if w.Policy().Kind() != walk.KindWeighted {
		t.Fatalf("kind = %v", w.Policy().Kind())
	}
	if err := sim.StepAll(); err != nil {
		t.Fatal(err)
	}
}

func TestAddWalkerDuplicate(t *testing.T) {
	sim, err := Build(RawScene{Walkers: []WalkerCfg{{Name: "a", Type: 1}}}, Host{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := AddWalker(sim, WalkerCfg{Name: "a", Type: 2}); !errors.Is(err, walk.ErrDuplicateName) {
		t.Fatalf("err = %v", err)
	}
	if _, err := AddWalker(sim, WalkerCfg{Name: "z", Type: 4}); !errors.Is(err, walk.ErrInvalidConfiguration) {
		t.Fatalf("err = %v", err)
	}
}

func TestOverrides(t *testing.T) {
	t.Setenv(EnvSeed, "123")
	t.Setenv(EnvLogLevel, "debug")
	o, err := EnvOverrides()
	if err != nil {
		t.Fatal(err)
	}
	cfg := Apply(RawScene{}, o)
	if cfg.Seed == nil || *cfg.Seed != 123 || cfg.LogLevel != "debug" {
		t.Fatalf("applied %+v", cfg)
	}

	t.Setenv(EnvSeed, "minus one")
	if _, err := EnvOverrides(); err == nil {
		t.Fatal("bad seed accepted")
	}
}

func TestFileWatcherScan(t *testing.T) {
	dir := t.TempDir()
	path := writeScene(t, dir, DefaultScene, defaultYAML)

	var changed []string
	w := NewFileWatcher([]string{path}, time.Millisecond, func(p string) { changed = append(changed, p) })
	w.Scan(true)
	w.Scan(false)
	if len(changed) != 0 {
		t.Fatalf("unchanged file reported: %v", changed)
	}
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	w.Scan(false)
	if len(changed) != 1 || changed[0] != path {
		t.Fatalf("changed = %v", changed)
	}
}
