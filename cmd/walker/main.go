package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/misterem/RandomWalker/internal/logging"
	"github.com/misterem/RandomWalker/internal/scene"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

// defaultWalker is created when a scene defines no walkers.
var defaultWalker = scene.WalkerCfg{Name: "Example Walker", Type: 1, Color: "blue"}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "walker",
		Short: "Random walkers on a plane with walls and portals",
		Long: `walker simulates random walkers that step across a plane, bounce off
walls and teleport through portals, and reports per-step statistics averaged
over repeated trials.

Scenes are read from <dir>/scenes/default.yaml layered with <dir>/scenes/<name>.yaml.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("dir", ".", "Scene directory")
	rootCmd.PersistentFlags().String("scene", scene.DefaultScene, "Scene name")
	rootCmd.PersistentFlags().Uint64("seed", 0, "Seed for the random stream (overrides scene and env)")
	rootCmd.PersistentFlags().Int("max-attempts", 0, "Wall retries before a step fails (0 = scene/default)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: error, warn, info, debug, trace")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newServeCmd(),
		newViewCmd(),
	)
	return rootCmd
}

func newLoader(cmd *cobra.Command) (*scene.Loader, string) {
	dir, _ := cmd.Flags().GetString("dir")
	name, _ := cmd.Flags().GetString("scene")
	return scene.NewLoader(dir), name
}

// loadScene merges the scene files, then the environment, then explicit flags.
func loadScene(cmd *cobra.Command, loader *scene.Loader, name string) (scene.RawScene, error) {
	cfg, err := loader.LoadMerged(name)
	if err != nil {
		return scene.RawScene{}, err
	}
	env, err := scene.EnvOverrides()
	if err != nil {
		return scene.RawScene{}, err
	}
	cfg = scene.Apply(cfg, env)

	var o scene.Overrides
	flags := cmd.Flags()
	if flags.Changed("seed") {
		v, _ := flags.GetUint64("seed")
		o.Seed = &v
	}
	if flags.Changed("max-attempts") {
		v, _ := flags.GetInt("max-attempts")
		o.MaxAttempts = &v
	}
	if flags.Changed("log-level") {
		v, _ := flags.GetString("log-level")
		o.LogLevel = &v
	}
	cfg = scene.Apply(cfg, o)

	if len(cfg.Walkers) == 0 {
		cfg.Walkers = []scene.WalkerCfg{defaultWalker}
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg scene.RawScene) *slog.Logger {
	return logging.NewLogger(cfg.LogLevel, cmd.ErrOrStderr())
}
