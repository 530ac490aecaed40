package scene

import (
	"fmt"
	"math"
	"strings"
)

// ValidateRaw checks semantic constraints of a RawScene.
func ValidateRaw(cfg RawScene) error {
	var errs []string

	if cfg.MaxAttempts != nil && *cfg.MaxAttempts < 0 {
		errs = append(errs, "max_attempts must be >= 0 (0 means default)")
	}

	for i, w := range cfg.Walls {
		if w.Validate() != nil {
			errs = append(errs, fmt.Sprintf("walls[%d] must have finite endpoints", i))
		}
	}
	for i, p := range cfg.Portals {
		if p.Entry.Validate() != nil {
			errs = append(errs, fmt.Sprintf("portals[%d].entry must have finite endpoints", i))
		}
		if !p.Exit.Finite() {
			errs = append(errs, fmt.Sprintf("portals[%d].exit must be finite", i))
		}
	}

	seen := make(map[string]bool)
	for i, w := range cfg.Walkers {
		switch {
		case w.Name == "":
			errs = append(errs, fmt.Sprintf("walkers[%d].name is required", i))
		case seen[w.Name]:
			errs = append(errs, fmt.Sprintf("walkers[%d].name %q is already used", i, w.Name))
		}
		seen[w.Name] = true

		if w.Type < 1 || w.Type > 4 {
			errs = append(errs, fmt.Sprintf("walkers[%d].type must be 1-4", i))
			continue
		}
		if w.Type != 4 {
			if len(w.Weights) > 0 {
				errs = append(errs, fmt.Sprintf("walkers[%d].weights is only used by type 4", i))
			}
			continue
		}
		if len(w.Weights) != 5 {
			errs = append(errs, fmt.Sprintf("walkers[%d].weights needs 5 values (up, down, left, right, center)", i))
			continue
		}
		var sum float64
		for j, p := range w.Weights {
			if math.IsNaN(p) || p < 0 || p > 1 {
				errs = append(errs, fmt.Sprintf("walkers[%d].weights[%d] must be in [0,1]", i, j))
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-9 {
			errs = append(errs, fmt.Sprintf("walkers[%d].weights must sum to 1, got %g", i, sum))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("scene validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
