// Package server exposes a simulation over HTTP with JSON responses.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/misterem/RandomWalker/internal/export"
	"github.com/misterem/RandomWalker/internal/geometry"
	"github.com/misterem/RandomWalker/internal/render"
	"github.com/misterem/RandomWalker/internal/scene"
	"github.com/misterem/RandomWalker/internal/stats"
	"github.com/misterem/RandomWalker/internal/walk"
)

const (
	// MaxStepsPerRequest bounds n on /step.
	MaxStepsPerRequest = 100000
	// MaxCopiesPerRequest bounds copies on /stats and /export. Each missing
	// copy replays every step of the walker.
	MaxCopiesPerRequest = 1000
)

type walkerResp struct {
	Name       string            `json:"name"`
	Kind       string            `json:"kind"`
	Color      string            `json:"color"`
	Position   geometry.Position `json:"position"`
	Iterations int               `json:"iterations"`
	Copies     int               `json:"copies"`
}

type stepResp struct {
	Walker walkerResp `json:"walker"`
	Steps  int        `json:"steps"`
	Err    string     `json:"err,omitempty"`
}

type statsResp struct {
	Name   string               `json:"name"`
	Copies int                  `json:"copies"`
	Series map[string][]float64 `json:"series"`
	Final  stats.Summary        `json:"final"`
}

type exportResp struct {
	RunID string `json:"run_id"`
}

type errResp struct {
	Err string `json:"err"`
}

// Options configures optional collaborators. Hub and Store may be nil.
// Lock must be shared with every other host driving the same simulation;
// nil gives the server a lock of its own.
type Options struct {
	Hub    *render.Hub
	Store  *export.Store
	Logger *slog.Logger
	Lock   sync.Locker
}

// Server serializes every request against one simulation.
type Server struct {
	mu    sync.Locker
	sim   *walk.Simulation
	hub   *render.Hub
	store *export.Store
	log   *slog.Logger
	mux   *http.ServeMux
}

// New builds the handler tree for sim.
func New(sim *walk.Simulation, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	mu := opts.Lock
	if mu == nil {
		mu = new(sync.Mutex)
	}
	s := &Server{mu: mu, sim: sim, hub: opts.Hub, store: opts.Store, log: log, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /walkers", s.handleList)
	s.mux.HandleFunc("POST /walkers", s.handleCreate)
	s.mux.HandleFunc("POST /step", s.handleStep)
	s.mux.HandleFunc("POST /step_all", s.handleStepAll)
	s.mux.HandleFunc("POST /stats", s.handleStats)
	s.mux.HandleFunc("POST /reset", s.handleReset)
	s.mux.HandleFunc("POST /export", s.handleExport)
	if s.hub != nil {
		s.mux.Handle("GET /ws", s.hub)
	}
	return s
}

// Swap replaces the simulation, e.g. after the scene file changed.
func (s *Server) Swap(sim *walk.Simulation) {
	s.mu.Lock()
	s.sim = sim
	s.mu.Unlock()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.log.Debug("request", "method", r.Method, "path", r.URL.Path)
	s.mux.ServeHTTP(w, r)
}

func parseInt(r *http.Request, key string) (int, bool, string) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return 0, false, ""
	}
	v, err := strconv.Atoi(str)
	if err != nil {
		return 0, false, "invalid " + key
	}
	return v, true, ""
}

// parseWeights reads a comma-separated list such as "0.2,0.2,0.2,0.2,0.2".
func parseWeights(r *http.Request) ([]float64, string) {
	str := r.URL.Query().Get("weights")
	if str == "" {
		return nil, ""
	}
	parts := strings.Split(str, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, "invalid weights"
		}
		out[i] = v
	}
	return out, ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, walk.ErrUnknownWalker), errors.Is(err, export.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, walk.ErrEmptyName), errors.Is(err, walk.ErrDuplicateName),
		errors.Is(err, walk.ErrInvalidConfiguration), errors.Is(err, stats.ErrNoSnapshot):
		return http.StatusBadRequest
	case errors.Is(err, walk.ErrUnresolvedCollision), errors.Is(err, walk.ErrDegenerateShortening):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func describe(wk *walk.Walker) walkerResp {
	return walkerResp{
		Name:       wk.Name(),
		Kind:       wk.Policy().Kind().String(),
		Color:      wk.Color(),
		Position:   wk.Position(),
		Iterations: wk.Iterations(),
		Copies:     wk.Copies(),
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []walkerResp{}
	for _, wk := range s.sim.Walkers() {
		out = append(out, describe(wk))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCreate adds a walker: ?name=&type=1..4&color=&weights=a,b,c,d,e
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	typ, ok, msg := parseInt(r, "type")
	if !ok {
		if msg == "" {
			msg = "missing param type"
		}
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	weights, msg := parseWeights(r)
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	cfg := scene.WalkerCfg{
		Name:    r.URL.Query().Get("name"),
		Type:    typ,
		Color:   r.URL.Query().Get("color"),
		Weights: weights,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	wk, err := scene.AddWalker(s.sim, cfg)
	if err != nil {
		writeJSON(w, statusFor(err), errResp{Err: err.Error()})
		return
	}
	s.log.Info("walker created", "walker", wk.Name())
	writeJSON(w, http.StatusCreated, describe(wk))
}

// handleStep steps one walker: ?name=&n=1
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	n, ok, msg := parseInt(r, "n")
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	if !ok {
		n = 1
	}
	if n < 1 || n > MaxStepsPerRequest {
		http.Error(w, "n out of range", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	wk, err := s.sim.Walker(r.URL.Query().Get("name"))
	if err != nil {
		writeJSON(w, statusFor(err), errResp{Err: err.Error()})
		return
	}
	done, err := wk.StepN(n)
	resp := stepResp{Walker: describe(wk), Steps: done}
	status := http.StatusOK
	if err != nil {
		resp.Err = err.Error()
		status = statusFor(err)
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleStepAll(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := http.StatusOK
	var errMsg string
	if err := s.sim.StepAll(); err != nil {
		status = statusFor(err)
		errMsg = err.Error()
	}
	out := struct {
		Walkers []walkerResp `json:"walkers"`
		Err     string       `json:"err,omitempty"`
	}{Walkers: []walkerResp{}, Err: errMsg}
	for _, wk := range s.sim.Walkers() {
		out.Walkers = append(out.Walkers, describe(wk))
	}
	writeJSON(w, status, out)
}

// snapshot runs copies trials if needed and returns the averaged snapshot.
func (s *Server) snapshot(r *http.Request) (*walk.Walker, stats.Snapshot, int, error) {
	wk, err := s.sim.Walker(r.URL.Query().Get("name"))
	if err != nil {
		return nil, stats.Snapshot{}, 0, err
	}
	copies, ok, msg := parseInt(r, "copies")
	if msg != "" {
		return nil, stats.Snapshot{}, 0, fmt.Errorf("%w: %s", walk.ErrInvalidConfiguration, msg)
	}
	if !ok {
		copies = 1
	}
	if copies < 1 || copies > MaxCopiesPerRequest {
		return nil, stats.Snapshot{}, 0, fmt.Errorf("%w: copies must be 1-%d", walk.ErrInvalidConfiguration, MaxCopiesPerRequest)
	}
	if err := wk.Copy(copies); err != nil {
		return nil, stats.Snapshot{}, 0, err
	}
	snap, err := wk.Averages().ForCopies(copies)
	return wk, snap, copies, err
}

// handleStats runs any missing trials and returns the averaged series: ?name=&copies=1
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wk, snap, copies, err := s.snapshot(r)
	if err != nil {
		writeJSON(w, statusFor(err), errResp{Err: err.Error()})
		return
	}
	resp := statsResp{Name: wk.Name(), Copies: copies, Series: map[string][]float64{}, Final: wk.FinalDistanceSummary()}
	for _, k := range stats.AllSeries {
		resp.Series[k.String()] = snap.Series(k)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleReset drops the trial copies of a walker: ?name=
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wk, err := s.sim.Walker(r.URL.Query().Get("name"))
	if err != nil {
		writeJSON(w, statusFor(err), errResp{Err: err.Error()})
		return
	}
	wk.ResetCopies()
	writeJSON(w, http.StatusOK, describe(wk))
}

// handleExport stores the averaged series in the run store: ?name=&copies=1
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "no run store configured", http.StatusNotImplemented)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	wk, _, copies, err := s.snapshot(r)
	if err != nil {
		writeJSON(w, statusFor(err), errResp{Err: err.Error()})
		return
	}
	var seed *uint64
	if v, ok := s.sim.Seed(); ok {
		seed = &v
	}
	run, err := export.RunFor(wk, copies, seed)
	if err != nil {
		writeJSON(w, statusFor(err), errResp{Err: err.Error()})
		return
	}
	id, err := s.store.Save(r.Context(), run)
	if err != nil {
		s.log.Error("export failed", "walker", wk.Name(), "error", err)
		writeJSON(w, http.StatusInternalServerError, errResp{Err: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, exportResp{RunID: id})
}
