package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/misterem/RandomWalker/internal/export"
	"github.com/misterem/RandomWalker/internal/render"
	"github.com/misterem/RandomWalker/internal/rpc"
	"github.com/misterem/RandomWalker/internal/scene"
	"github.com/misterem/RandomWalker/internal/server"
	"github.com/misterem/RandomWalker/internal/walk"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulation over HTTP, websocket and optionally gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			grpcAddr, _ := cmd.Flags().GetString("grpc-addr")
			dbPath, _ := cmd.Flags().GetString("db")
			watch, _ := cmd.Flags().GetBool("watch")

			loader, name := newLoader(cmd)
			cfg, err := loadScene(cmd, loader, name)
			if err != nil {
				return err
			}
			log := newLogger(cmd, cfg)
			hub := render.NewHub(log)
			host := scene.Host{Sink: hub, Logger: log}
			sim, err := scene.Build(cfg, host)
			if err != nil {
				return err
			}

			var store *export.Store
			if dbPath != "" {
				if store, err = export.OpenStore(dbPath); err != nil {
					return err
				}
				defer store.Close()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// both hosts drive the same simulation, so they share one lock
			var mu sync.Mutex
			h := server.New(sim, server.Options{Hub: hub, Store: store, Logger: log, Lock: &mu})
			svc := rpc.NewService(sim, rpc.Options{Logger: log, Lock: &mu})

			if grpcAddr != "" {
				lis, err := net.Listen("tcp", grpcAddr)
				if err != nil {
					return fmt.Errorf("grpc listen %s: %w", grpcAddr, err)
				}
				gs := grpc.NewServer()
				rpc.Register(gs, svc)
				go func() {
					if err := gs.Serve(lis); err != nil {
						log.Error("grpc server stopped", "error", err)
					}
				}()
				defer gs.GracefulStop()
				log.Info("grpc listening", "addr", grpcAddr)
			}

			if watch {
				fw := scene.NewFileWatcher(loader.Paths(name), time.Second, func(path string) {
					loader.Invalidate()
					var next *walk.Simulation
					cfg, err := loadScene(cmd, loader, name)
					if err == nil {
						next, err = scene.Build(cfg, host)
					}
					if err != nil {
						log.Warn("scene reload failed, keeping previous", "path", path, "error", err)
						return
					}
					h.Swap(next)
					svc.Swap(next)
					log.Info("scene reloaded", "path", path)
				})
				go fw.Run(ctx)
			}

			srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			log.Info("listening", "addr", addr, "scene", name)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("addr", ":8080", "HTTP listen address")
	cmd.Flags().String("grpc-addr", "", "gRPC listen address (empty disables gRPC)")
	cmd.Flags().String("db", "", "SQLite database for /export")
	cmd.Flags().Bool("watch", false, "Rebuild the simulation when scene files change")
	return cmd
}
