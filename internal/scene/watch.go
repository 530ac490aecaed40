package scene

import (
	"context"
	"os"
	"time"
)

// FileWatcher polls file modification times and triggers a callback on change.
type FileWatcher struct {
	Paths     []string
	Interval  time.Duration
	onChange  func(string) // called with path that changed
	lastMTime map[string]time.Time
}

// NewFileWatcher creates a watcher for given paths and interval.
func NewFileWatcher(paths []string, interval time.Duration, onChange func(string)) *FileWatcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &FileWatcher{
		Paths:     paths,
		Interval:  interval,
		onChange:  onChange,
		lastMTime: make(map[string]time.Time),
	}
}

// Run polls until ctx is done. The first scan only records modification times.
func (w *FileWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	w.Scan(true)
	for {
		select {
		case <-ticker.C:
			w.Scan(false)
		case <-ctx.Done():
			return
		}
	}
}

// Scan checks mtimes and invokes onChange for files that changed since last scan.
// A file that appears after priming counts as changed.
func (w *FileWatcher) Scan(prime bool) {
	for _, p := range w.Paths {
		fi, err := os.Stat(p)
		if err != nil {
			// missing files are skipped until they show up
			continue
		}
		mt := fi.ModTime()
		last, ok := w.lastMTime[p]
		w.lastMTime[p] = mt
		if prime || w.onChange == nil {
			continue
		}
		if !ok || mt.After(last) {
			w.onChange(p)
		}
	}
}
