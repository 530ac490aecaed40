package main

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/misterem/RandomWalker/internal/geometry"
	"github.com/misterem/RandomWalker/internal/logging"
	"github.com/misterem/RandomWalker/internal/render"
	"github.com/misterem/RandomWalker/internal/scene"
)

// newScreen is swapped in tests.
var newScreen = tcell.NewScreen

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Animate the walkers in the terminal (q or Esc quits)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, _ := cmd.Flags().GetDuration("interval")
			steps, _ := cmd.Flags().GetInt("steps")
			cell, _ := cmd.Flags().GetFloat64("cell")
			hold, _ := cmd.Flags().GetBool("hold")
			if interval <= 0 {
				return fmt.Errorf("--interval must be > 0")
			}
			if steps < 0 {
				return fmt.Errorf("--steps must be >= 0")
			}

			loader, name := newLoader(cmd)
			cfg, err := loadScene(cmd, loader, name)
			if err != nil {
				return err
			}

			screen, err := newScreen()
			if err != nil {
				return err
			}
			if err := screen.Init(); err != nil {
				return err
			}
			defer screen.Fini()

			term := render.NewTerminal(screen, cell)
			// the screen owns the terminal, so logs go nowhere
			sim, err := scene.Build(cfg, scene.Host{Sink: term, Logger: logging.Discard()})
			if err != nil {
				return err
			}
			var entries []geometry.Segment
			for _, p := range sim.Field().Portals() {
				entries = append(entries, p.Entry)
			}
			term.DrawObstacles(sim.Field().Walls(), entries)

			done := make(chan struct{})
			defer close(done)
			events := make(chan tcell.Event, 16)
			go func() {
				for {
					ev := screen.PollEvent()
					if ev == nil {
						return
					}
					select {
					case events <- ev:
					case <-done:
						return
					}
				}
			}()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			taken := 0
			for {
				select {
				case ev := <-events:
					switch ev := ev.(type) {
					case *tcell.EventKey:
						if quitKey(ev) {
							return nil
						}
					case *tcell.EventResize:
						screen.Sync()
					}
				case <-ticker.C:
					if steps > 0 && taken >= steps {
						if !hold {
							return nil
						}
						continue
					}
					if err := sim.StepAll(); err != nil {
						return err
					}
					taken++
				case <-cmd.Context().Done():
					return nil
				}
			}
		},
	}
	cmd.Flags().Duration("interval", 100*time.Millisecond, "Delay between steps")
	cmd.Flags().Int("steps", 0, "Stop stepping after this many steps (0 = never)")
	cmd.Flags().Float64("cell", render.DefaultCellSize, "World units per terminal cell")
	cmd.Flags().Bool("hold", true, "Keep the view open after --steps until a key quits")
	return cmd
}

func quitKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q'
	}
	return false
}
