package stats

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNoSnapshot     = errors.New("no such snapshot")
	ErrLengthMismatch = errors.New("trial length differs from the running average")
)

// Snapshot is one averaged statistics table, covering Copies trials.
type Snapshot struct {
	Copies int
	values table
}

// Series returns a copy of one averaged series.
func (s Snapshot) Series(k Series) []float64 {
	if !k.Valid() {
		return nil
	}
	return append([]float64(nil), s.values[k]...)
}

// Len is the number of steps (plus the origin) each series covers.
func (s Snapshot) Len() int { return len(s.values[DistanceFromCenter]) }

// AverageStats keeps the running mean of a primary walker's statistics across trial copies.
// Snapshot 0 always reflects the primary's own, live series; snapshot k is the mean
// over k+1 trials. Updates must be applied in order: each depends on the previous mean.
type AverageStats struct {
	primary  *WalkerStats
	averaged []table // averaged[k-1] is snapshot k
}

// NewAverageStats starts an average anchored on the primary walker's log.
func NewAverageStats(primary *WalkerStats) *AverageStats {
	return &AverageStats{primary: primary}
}

// Update folds one more trial into the mean. copies is how many trials the
// latest snapshot already covers.
func (a *AverageStats) Update(trial *WalkerStats, copies int) error {
	if copies < 1 {
		return fmt.Errorf("fold trial: copies must be >= 1, got %d", copies)
	}
	prev := a.latest()
	if trial.Len() != len(prev[DistanceFromCenter]) {
		return fmt.Errorf("fold trial of %d entries into %d: %w",
			trial.Len(), len(prev[DistanceFromCenter]), ErrLengthMismatch)
	}

	var next table
	n := float64(copies)
	for k := range next {
		out := make([]float64, trial.Len())
		for i, v := range trial.series[k] {
			out[i] = round4((v + prev[k][i]*n) / (n + 1))
		}
		next[k] = out
	}
	a.averaged = append(a.averaged, next)
	return nil
}

func (a *AverageStats) latest() table {
	if len(a.averaged) == 0 {
		return a.primary.series
	}
	return a.averaged[len(a.averaged)-1]
}

// Clear drops every averaged snapshot, leaving only the primary's own series.
func (a *AverageStats) Clear() {
	a.averaged = nil
}

// Len is the number of snapshots, including snapshot 0.
func (a *AverageStats) Len() int { return len(a.averaged) + 1 }

// Snapshot returns snapshot k (0 = primary only).
func (a *AverageStats) Snapshot(k int) (Snapshot, error) {
	switch {
	case k == 0:
		return Snapshot{Copies: 1, values: a.primary.series.clone()}, nil
	case k > 0 && k <= len(a.averaged):
		return Snapshot{Copies: k + 1, values: a.averaged[k-1].clone()}, nil
	}
	return Snapshot{}, fmt.Errorf("snapshot %d of %d: %w", k, a.Len(), ErrNoSnapshot)
}

// ForCopies returns the mean over the given number of trials.
func (a *AverageStats) ForCopies(copies int) (Snapshot, error) {
	return a.Snapshot(copies - 1)
}

// Latest returns the snapshot covering the most trials.
func (a *AverageStats) Latest() Snapshot {
	s, _ := a.Snapshot(len(a.averaged))
	return s
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
