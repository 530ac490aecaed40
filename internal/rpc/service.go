// Package rpc serves a simulation over gRPC. Messages are google.protobuf.Struct
// values, so no generated code is needed on either side.
package rpc

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/misterem/RandomWalker/internal/scene"
	"github.com/misterem/RandomWalker/internal/stats"
	"github.com/misterem/RandomWalker/internal/walk"
)

const serviceName = "randomwalker.v1.WalkerService"

const (
	// MaxStepsPerCall bounds n on Step.
	MaxStepsPerCall = 100000
	// MaxCopiesPerCall bounds copies on Stats.
	MaxCopiesPerCall = 1000
)

type walkerServer interface {
	CreateWalker(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Step(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StepAll(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reset(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type call func(walkerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, fn call) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(walkerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return fn(srv.(walkerServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*walkerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateWalker", walkerServer.CreateWalker),
		unary("Step", walkerServer.Step),
		unary("StepAll", walkerServer.StepAll),
		unary("Stats", walkerServer.Stats),
		unary("Reset", walkerServer.Reset),
	},
	Metadata: "randomwalker/v1/walker.proto",
}

// Options configures a Service. Lock must be shared with every other host
// driving the same simulation; nil gives the service a lock of its own.
type Options struct {
	Logger *slog.Logger
	Lock   sync.Locker
}

// Service implements the walker service over one simulation.
type Service struct {
	mu  sync.Locker
	sim *walk.Simulation
	log *slog.Logger
}

// NewService wraps sim. A nil logger discards.
func NewService(sim *walk.Simulation, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	mu := opts.Lock
	if mu == nil {
		mu = new(sync.Mutex)
	}
	return &Service{mu: mu, sim: sim, log: log}
}

// Swap replaces the simulation served.
func (s *Service) Swap(sim *walk.Simulation) {
	s.mu.Lock()
	s.sim = sim
	s.mu.Unlock()
}

// Register attaches svc to a gRPC server.
func Register(s grpc.ServiceRegistrar, svc *Service) {
	s.RegisterService(&serviceDesc, svc)
}

func toStatus(err error) error {
	var c codes.Code
	switch {
	case errors.Is(err, walk.ErrUnknownWalker):
		c = codes.NotFound
	case errors.Is(err, walk.ErrDuplicateName):
		c = codes.AlreadyExists
	case errors.Is(err, walk.ErrEmptyName), errors.Is(err, walk.ErrInvalidConfiguration),
		errors.Is(err, stats.ErrNoSnapshot):
		c = codes.InvalidArgument
	case errors.Is(err, walk.ErrUnresolvedCollision), errors.Is(err, walk.ErrDegenerateShortening):
		c = codes.FailedPrecondition
	default:
		c = codes.Internal
	}
	return status.Error(c, err.Error())
}

func str(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

// num returns the numeric field key, or def when it is absent.
func num(in *structpb.Struct, key string, def int) int {
	v, ok := in.GetFields()[key]
	if !ok {
		return def
	}
	return int(v.GetNumberValue())
}

func floats(in *structpb.Struct, key string) []float64 {
	vals := in.GetFields()[key].GetListValue().GetValues()
	if len(vals) == 0 {
		return nil
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = v.GetNumberValue()
	}
	return out
}

func anyList(xs []float64) []any {
	out := make([]any, len(xs))
	for i, v := range xs {
		out[i] = v
	}
	return out
}

func describe(w *walk.Walker) map[string]any {
	p := w.Position()
	return map[string]any{
		"name":       w.Name(),
		"kind":       w.Policy().Kind().String(),
		"color":      w.Color(),
		"x":          p.X,
		"y":          p.Y,
		"iterations": w.Iterations(),
		"copies":     w.Copies(),
	}
}

func (s *Service) CreateWalker(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := scene.AddWalker(s.sim, scene.WalkerCfg{
		Name:    str(in, "name"),
		Type:    num(in, "type", 0),
		Color:   str(in, "color"),
		Weights: floats(in, "weights"),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	s.log.Info("walker created", "walker", w.Name(), "via", "grpc")
	return structpb.NewStruct(describe(w))
}

func (s *Service) Step(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	n := num(in, "n", 1)
	if n < 1 || n > MaxStepsPerCall {
		return nil, status.Errorf(codes.InvalidArgument, "n must be 1-%d", MaxStepsPerCall)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.sim.Walker(str(in, "name"))
	if err != nil {
		return nil, toStatus(err)
	}
	if _, err := w.StepN(n); err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(describe(w))
}

func (s *Service) StepAll(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sim.StepAll(); err != nil {
		return nil, toStatus(err)
	}
	walkers := []any{}
	for _, w := range s.sim.Walkers() {
		walkers = append(walkers, describe(w))
	}
	return structpb.NewStruct(map[string]any{"walkers": walkers})
}

func (s *Service) Stats(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	copies := num(in, "copies", 1)
	if copies < 1 || copies > MaxCopiesPerCall {
		return nil, status.Errorf(codes.InvalidArgument, "copies must be 1-%d", MaxCopiesPerCall)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.sim.Walker(str(in, "name"))
	if err != nil {
		return nil, toStatus(err)
	}
	if err := w.Copy(copies); err != nil {
		return nil, toStatus(err)
	}
	snap, err := w.Averages().ForCopies(copies)
	if err != nil {
		return nil, toStatus(err)
	}
	series := map[string]any{}
	for _, k := range stats.AllSeries {
		series[k.String()] = anyList(snap.Series(k))
	}
	return structpb.NewStruct(map[string]any{
		"name":   w.Name(),
		"copies": copies,
		"series": series,
	})
}

func (s *Service) Reset(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.sim.Walker(str(in, "name"))
	if err != nil {
		return nil, toStatus(err)
	}
	w.ResetCopies()
	return structpb.NewStruct(describe(w))
}
