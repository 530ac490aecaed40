package stats

import (
	"errors"
	"math"
	"testing"
)

func feed(s *WalkerStats, pts ...Point) {
	for _, p := range pts {
		s.Update(p)
	}
}

func equal(t *testing.T, name string, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: len %d, want %d (%v)", name, len(got), len(want), got)
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("%s[%d] = %v, want %v (all %v)", name, i, got[i], want[i], got)
		}
	}
}

func TestWalkerStatsUpdate(t *testing.T) {
	s := NewWalkerStats()
	feed(s, Point{3, 4}, Point{3, -4}, Point{0, -2}, Point{-1, -2})

	if s.Iterations() != 4 {
		t.Fatalf("iterations = %d", s.Iterations())
	}
	equal(t, "center", s.Series(DistanceFromCenter), []float64{0, 5, 5, 2, math.Sqrt(5)})
	equal(t, "from_x", s.Series(DistanceFromX), []float64{0, 3, 3, 0, 1})
	equal(t, "from_y", s.Series(DistanceFromY), []float64{0, 4, 4, 2, 2})
	equal(t, "radius", s.Series(RadiusSteps), []float64{0, 5, 10, 12, 15})
	equal(t, "crossed_x", s.Series(CrossedX), []float64{0, 0, 1, 1, 1})
	equal(t, "crossed_y", s.Series(CrossedY), []float64{0, 0, 0, 0, 1})
}

func TestWalkerStatsSeriesLengths(t *testing.T) {
	s := NewWalkerStats()
	for i := 0; i < 25; i++ {
		feed(s, Point{i - 12, 12 - 2*i})
		for _, k := range AllSeries {
			if got := len(s.Series(k)); got != s.Iterations()+1 {
				t.Fatalf("%v has %d entries after %d steps", k, got, s.Iterations())
			}
		}
		if len(s.Positions()) != s.Iterations()+1 {
			t.Fatalf("positions out of step")
		}
	}
}

func TestRadiusOnIntegerDistance(t *testing.T) {
	s := NewWalkerStats()
	feed(s, Point{6, 8})
	if got := s.Final(RadiusSteps); got != 10 {
		t.Fatalf("radius = %v, want 10", got)
	}
}

func TestCrossingLookback(t *testing.T) {
	tests := []struct {
		name string
		pts  []Point
		want float64
	}{
		// only the origin precedes the zero run, so there is nothing to compare against
		{"zeros back to origin", []Point{{0, 5}, {0, 6}, {2, 6}}, 0},
		{"zeros then sign change", []Point{{4, 0}, {0, 1}, {0, 2}, {-3, 2}}, 1},
		{"zeros then same sign", []Point{{4, 0}, {0, 1}, {5, 2}}, 0},
		{"landing on axis", []Point{{4, 0}, {0, 1}}, 0},
		{"direct flip", []Point{{4, 0}, {-4, 0}, {4, 0}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewWalkerStats()
			feed(s, tt.pts...)
			if got := s.Final(CrossedY); got != tt.want {
				t.Fatalf("times crossed y = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWalkerStatsReset(t *testing.T) {
	s := NewWalkerStats()
	feed(s, Point{1, 1}, Point{2, 2})
	s.Reset()
	if s.Iterations() != 0 || s.Len() != 1 {
		t.Fatalf("reset left %d iterations, len %d", s.Iterations(), s.Len())
	}
}

func TestAverageOfTwo(t *testing.T) {
	primary := NewWalkerStats()
	feed(primary, Point{3, 4}, Point{3, -4}, Point{-2, -4})
	trial := NewWalkerStats()
	feed(trial, Point{1, 1}, Point{-1, 2}, Point{0, 7})

	avg := NewAverageStats(primary)
	if err := avg.Update(trial, 1); err != nil {
		t.Fatal(err)
	}
	if avg.Len() != 2 {
		t.Fatalf("snapshots = %d, want 2", avg.Len())
	}
	snap, err := avg.ForCopies(2)
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range AllSeries {
		a, b := primary.Series(k), trial.Series(k)
		want := make([]float64, len(a))
		for i := range a {
			want[i] = math.Round((a[i]+b[i])/2*1e4) / 1e4
		}
		equal(t, k.String(), snap.Series(k), want)
	}
}

func TestAverageIncrementalMean(t *testing.T) {
	primary := NewWalkerStats()
	feed(primary, Point{10, 0})
	avg := NewAverageStats(primary)
	for i, x := range []int{20, 30, 40} {
		trial := NewWalkerStats()
		feed(trial, Point{x, 0})
		if err := avg.Update(trial, i+1); err != nil {
			t.Fatal(err)
		}
	}
	got := avg.Latest().Series(DistanceFromX)
	equal(t, "mean |x|", got, []float64{0, 25})
	if avg.Latest().Copies != 4 {
		t.Fatalf("latest covers %d copies", avg.Latest().Copies)
	}
}

func TestAverageClear(t *testing.T) {
	primary := NewWalkerStats()
	feed(primary, Point{1, 2})
	avg := NewAverageStats(primary)
	trial := NewWalkerStats()
	feed(trial, Point{5, 5})
	if err := avg.Update(trial, 1); err != nil {
		t.Fatal(err)
	}
	avg.Clear()
	if avg.Len() != 1 {
		t.Fatalf("after clear %d snapshots", avg.Len())
	}
	// snapshot 0 follows the primary's live log
	feed(primary, Point{2, 2})
	snap, err := avg.Snapshot(0)
	if err != nil {
		t.Fatal(err)
	}
	equal(t, "snapshot 0", snap.Series(DistanceFromX), primary.Series(DistanceFromX))
	if _, err := avg.Snapshot(1); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("snapshot 1 after clear: %v", err)
	}
}

func TestAverageLengthMismatch(t *testing.T) {
	primary := NewWalkerStats()
	feed(primary, Point{1, 2}, Point{2, 2})
	trial := NewWalkerStats()
	feed(trial, Point{5, 5})
	avg := NewAverageStats(primary)
	if err := avg.Update(trial, 1); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("err = %v, want ErrLengthMismatch", err)
	}
	if avg.Len() != 1 {
		t.Fatalf("failed update left a snapshot")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{4, 1, 3, 2})
	if s.N != 4 || s.Mean != 2.5 || s.Var != 1.25 {
		t.Fatalf("summary = %+v", s)
	}
	if math.Abs(s.P50-2.5) > 1e-9 || math.Abs(s.P90-3.7) > 1e-9 {
		t.Fatalf("percentiles = %v %v", s.P50, s.P90)
	}
	if (Summarize(nil) != Summary{}) {
		t.Fatalf("empty summary not zero")
	}
}
