package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/misterem/RandomWalker/internal/export"
	"github.com/misterem/RandomWalker/internal/geometry"
	"github.com/misterem/RandomWalker/internal/obstacle"
	"github.com/misterem/RandomWalker/internal/render"
	"github.com/misterem/RandomWalker/internal/rpc"
	"github.com/misterem/RandomWalker/internal/walk"
)

func newTestServer(t *testing.T, field *obstacle.Field, store *export.Store) (*httptest.Server, *walk.Simulation) {
	t.Helper()
	if field == nil {
		field = obstacle.NewField()
	}
	seed := uint64(42)
	hub := render.NewHub(nil)
	sim := walk.NewSimulation(field, walk.Options{Seed: &seed, Sink: hub})
	srv := httptest.NewServer(New(sim, Options{Hub: hub, Store: store}))
	t.Cleanup(srv.Close)
	return srv, sim
}

func do(t *testing.T, method, url string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, url, err)
		}
	}
	return res.StatusCode
}

func TestCreateAndList(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	var created walkerResp
	if code := do(t, http.MethodPost, srv.URL+"/walkers?name=Bob&type=2&color=red", &created); code != http.StatusCreated {
		t.Fatalf("create status %d", code)
	}
	if created.Name != "Bob" || created.Kind != walk.KindVariableSpeed.String() || created.Copies != 1 {
		t.Fatalf("created %+v", created)
	}
	do(t, http.MethodPost, srv.URL+"/walkers?name=Eve&type=4&weights=0.2,0.2,0.2,0.2,0.2", nil)

	var list []walkerResp
	if code := do(t, http.MethodGet, srv.URL+"/walkers", &list); code != http.StatusOK {
		t.Fatalf("list status %d", code)
	}
	if len(list) != 2 || list[0].Name != "Bob" || list[1].Name != "Eve" {
		t.Fatalf("list %+v", list)
	}
}

func TestCreateRejects(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)
	do(t, http.MethodPost, srv.URL+"/walkers?name=Bob&type=1", nil)

	tests := []struct {
		name, query string
		want        int
	}{
		{"missing type", "name=x", http.StatusBadRequest},
		{"bad type", "name=x&type=7", http.StatusBadRequest},
		{"empty name", "type=1", http.StatusBadRequest},
		{"duplicate", "name=Bob&type=1", http.StatusBadRequest},
		{"short weights", "name=x&type=4&weights=1", http.StatusBadRequest},
		{"garbled weights", "name=x&type=4&weights=a,b", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := do(t, http.MethodPost, srv.URL+"/walkers?"+tt.query, nil); code != tt.want {
				t.Fatalf("status %d, want %d", code, tt.want)
			}
		})
	}
}

func TestStepAndStats(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)
	do(t, http.MethodPost, srv.URL+"/walkers?name=Bob&type=3", nil)

	var step stepResp
	if code := do(t, http.MethodPost, srv.URL+"/step?name=Bob&n=4", &step); code != http.StatusOK {
		t.Fatalf("step status %d", code)
	}
	if step.Steps != 4 || step.Walker.Iterations != 4 {
		t.Fatalf("step %+v", step)
	}

	var st statsResp
	if code := do(t, http.MethodPost, srv.URL+"/stats?name=Bob&copies=3", &st); code != http.StatusOK {
		t.Fatalf("stats status %d", code)
	}
	if st.Copies != 3 || len(st.Series["distance_from_center"]) != 5 {
		t.Fatalf("stats %+v", st)
	}
	if st.Final.N != 3 {
		t.Fatalf("final summary over %d trials", st.Final.N)
	}

	var reset walkerResp
	do(t, http.MethodPost, srv.URL+"/reset?name=Bob", &reset)
	if reset.Copies != 1 {
		t.Fatalf("copies after reset = %d", reset.Copies)
	}

	if code := do(t, http.MethodPost, srv.URL+"/step?name=Nobody", nil); code != http.StatusNotFound {
		t.Fatalf("unknown walker status %d", code)
	}
	if code := do(t, http.MethodPost, srv.URL+"/step?name=Bob&n=0", nil); code != http.StatusBadRequest {
		t.Fatalf("n=0 status %d", code)
	}
	if code := do(t, http.MethodPost, srv.URL+"/stats?name=Bob&copies=0", nil); code != http.StatusBadRequest {
		t.Fatalf("copies=0 status %d", code)
	}
}

func TestStepAllReportsCollision(t *testing.T) {
	field := obstacle.NewField()
	box := []geometry.Segment{
		{From: geometry.Position{X: -1, Y: -1}, To: geometry.Position{X: 1, Y: -1}},
		{From: geometry.Position{X: 1, Y: -1}, To: geometry.Position{X: 1, Y: 1}},
		{From: geometry.Position{X: 1, Y: 1}, To: geometry.Position{X: -1, Y: 1}},
		{From: geometry.Position{X: -1, Y: 1}, To: geometry.Position{X: -1, Y: -1}},
	}
	for _, w := range box {
		if _, err := field.AddWall(w); err != nil {
			t.Fatal(err)
		}
	}
	seed := uint64(1)
	sim := walk.NewSimulation(field, walk.Options{Seed: &seed, MaxAttempts: 5})
	srv := httptest.NewServer(New(sim, Options{}))
	defer srv.Close()
	do(t, http.MethodPost, srv.URL+"/walkers?name=Bob&type=1", nil)

	var out struct {
		Walkers []walkerResp `json:"walkers"`
		Err     string       `json:"err"`
	}
	if code := do(t, http.MethodPost, srv.URL+"/step_all", &out); code != http.StatusConflict {
		t.Fatalf("status %d", code)
	}
	if out.Err == "" || out.Walkers[0].Iterations != 0 {
		t.Fatalf("out %+v", out)
	}
}

func TestExport(t *testing.T) {
	store, err := export.OpenStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	srv, _ := newTestServer(t, nil, store)
	do(t, http.MethodPost, srv.URL+"/walkers?name=Bob&type=1", nil)
	do(t, http.MethodPost, srv.URL+"/step?name=Bob&n=3", nil)

	var res exportResp
	if code := do(t, http.MethodPost, srv.URL+"/export?name=Bob&copies=2", &res); code != http.StatusCreated {
		t.Fatalf("export status %d", code)
	}
	info, err := store.Run(t.Context(), res.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if info.Copies != 2 || info.Steps != 3 || info.Seed == nil || *info.Seed != 42 {
		t.Fatalf("stored %+v", info)
	}
}

func TestExportWithoutStore(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)
	if code := do(t, http.MethodPost, srv.URL+"/export?name=Bob", nil); code != http.StatusNotImplemented {
		t.Fatalf("status %d", code)
	}
}

func TestSwap(t *testing.T) {
	sim := walk.NewSimulation(obstacle.NewField(), walk.Options{})
	h := New(sim, Options{})
	srv := httptest.NewServer(h)
	defer srv.Close()
	do(t, http.MethodPost, srv.URL+"/walkers?name=Bob&type=1", nil)

	h.Swap(walk.NewSimulation(obstacle.NewField(), walk.Options{}))
	var list []walkerResp
	do(t, http.MethodGet, srv.URL+"/walkers", &list)
	if len(list) != 0 {
		t.Fatalf("old walkers survived swap: %+v", list)
	}
}

func TestRequestLimits(t *testing.T) {
	srv, sim := newTestServer(t, nil, nil)
	do(t, http.MethodPost, srv.URL+"/walkers?name=Bob&type=1", nil)
	do(t, http.MethodPost, srv.URL+"/step?name=Bob&n=2", nil)

	tests := []struct {
		name, path string
		want       int
	}{
		{"steps above cap", fmt.Sprintf("/step?name=Bob&n=%d", MaxStepsPerRequest+1), http.StatusBadRequest},
		{"copies above cap", fmt.Sprintf("/stats?name=Bob&copies=%d", MaxCopiesPerRequest+1), http.StatusBadRequest},
		{"copies at cap", fmt.Sprintf("/stats?name=Bob&copies=%d", MaxCopiesPerRequest), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := do(t, http.MethodPost, srv.URL+tt.path, nil); code != tt.want {
				t.Fatalf("status %d, want %d", code, tt.want)
			}
		})
	}
	w, _ := sim.Walker("Bob")
	if w.Copies() != MaxCopiesPerRequest {
		t.Fatalf("copies = %d", w.Copies())
	}
}

func TestStatsIsNotAGet(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)
	do(t, http.MethodPost, srv.URL+"/walkers?name=Bob&type=1", nil)
	if code := do(t, http.MethodGet, srv.URL+"/stats?name=Bob&copies=2", nil); code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /stats status %d", code)
	}
}

func TestSharedLockAcrossHosts(t *testing.T) {
	seed := uint64(8)
	sim := walk.NewSimulation(obstacle.NewField(), walk.Options{Seed: &seed})
	var mu sync.Mutex
	h := New(sim, Options{Lock: &mu})
	svc := rpc.NewService(sim, rpc.Options{Lock: &mu})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/walkers?name=a&type=2", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d", rec.Code)
	}
	req, err := structpb.NewStruct(map[string]any{"name": "a", "n": 1})
	if err != nil {
		t.Fatal(err)
	}

	const rounds = 200
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/step?name=a", nil))
			if rec.Code != http.StatusOK {
				t.Errorf("http step status %d", rec.Code)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if _, err := svc.Step(context.Background(), req); err != nil {
				t.Errorf("grpc step: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	w, _ := sim.Walker("a")
	if w.Iterations() != 2*rounds || w.Stats().Len() != 2*rounds+1 {
		t.Fatalf("iterations %d, log entries %d", w.Iterations(), w.Stats().Len())
	}
}
