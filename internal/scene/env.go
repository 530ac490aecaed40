package scene

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables read by EnvOverrides.
const (
	EnvSeed        = "WALKER_SEED"
	EnvMaxAttempts = "WALKER_MAX_ATTEMPTS"
	EnvLogLevel    = "WALKER_LOG_LEVEL"
)

// EnvOverrides reads overrides from the environment. Unset variables are skipped.
func EnvOverrides() (Overrides, error) {
	var o Overrides
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Overrides{}, fmt.Errorf("%s: %w", EnvSeed, err)
		}
		o.Seed = &seed
	}
	if v := os.Getenv(EnvMaxAttempts); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Overrides{}, fmt.Errorf("%s: %w", EnvMaxAttempts, err)
		}
		o.MaxAttempts = &n
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		o.LogLevel = &v
	}
	return o, nil
}
