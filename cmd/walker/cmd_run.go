package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/misterem/RandomWalker/internal/export"
	"github.com/misterem/RandomWalker/internal/scene"
	"github.com/misterem/RandomWalker/internal/stats"
	"github.com/misterem/RandomWalker/internal/walk"
)

type runResult struct {
	Walker     string        `json:"walker"`
	Kind       string        `json:"kind"`
	Steps      int           `json:"steps"`
	Copies     int           `json:"copies"`
	Final      stats.Summary `json:"final_distance"`
	ReportPath string        `json:"report_path,omitempty"`
	RunID      string        `json:"run_id,omitempty"`
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Step every walker headlessly and report averaged statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			copies, _ := cmd.Flags().GetInt("copies")
			exportDir, _ := cmd.Flags().GetString("export-dir")
			dbPath, _ := cmd.Flags().GetString("db")
			jsonOut, _ := cmd.Flags().GetBool("json")
			if steps < 0 {
				return fmt.Errorf("--steps must be >= 0")
			}
			if copies < 1 {
				return fmt.Errorf("--copies must be >= 1")
			}

			loader, name := newLoader(cmd)
			cfg, err := loadScene(cmd, loader, name)
			if err != nil {
				return err
			}
			log := newLogger(cmd, cfg)
			sim, err := scene.Build(cfg, scene.Host{Logger: log})
			if err != nil {
				return err
			}

			var store *export.Store
			if dbPath != "" {
				store, err = export.OpenStore(dbPath)
				if err != nil {
					return err
				}
				defer store.Close()
			}
			var seed *uint64
			if v, ok := sim.Seed(); ok {
				seed = &v
			}

			var results []runResult
			for _, w := range sim.Walkers() {
				res, err := runWalker(w, steps, copies)
				if err != nil {
					return err
				}
				if exportDir != "" || store != nil {
					snap, err := w.Averages().ForCopies(copies)
					if err != nil {
						return err
					}
					if exportDir != "" {
						if res.ReportPath, err = export.WriteTextFile(exportDir, w.Name(), snap); err != nil {
							return err
						}
					}
					if store != nil {
						run, err := export.RunFor(w, copies, seed)
						if err != nil {
							return err
						}
						if res.RunID, err = store.Save(cmd.Context(), run); err != nil {
							return err
						}
					}
				}
				results = append(results, res)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(results)
			}
			for _, r := range results {
				fmt.Fprintf(out, "%s (%s): %d steps, %d trials, final distance mean %.2f sd %.2f p90 %.2f\n",
					r.Walker, r.Kind, r.Steps, r.Copies, r.Final.Mean, r.Final.StdDev, r.Final.P90)
				if r.ReportPath != "" {
					fmt.Fprintf(out, "  report: %s\n", r.ReportPath)
				}
				if r.RunID != "" {
					fmt.Fprintf(out, "  run id: %s\n", r.RunID)
				}
			}
			return nil
		},
	}
	cmd.Flags().Int("steps", 100, "Steps per walker")
	cmd.Flags().Int("copies", 1, "Trials to average, including the walker itself")
	cmd.Flags().String("export-dir", "", "Write a text report per walker into this directory")
	cmd.Flags().String("db", "", "Store averaged series in this SQLite database")
	return cmd
}

func runWalker(w *walk.Walker, steps, copies int) (runResult, error) {
	if _, err := w.StepN(steps); err != nil {
		return runResult{}, fmt.Errorf("walker %q: %w", w.Name(), err)
	}
	if err := w.Copy(copies); err != nil {
		return runResult{}, err
	}
	return runResult{
		Walker: w.Name(),
		Kind:   w.Policy().Kind().String(),
		Steps:  w.Iterations(),
		Copies: copies,
		Final:  w.FinalDistanceSummary(),
	}, nil
}
