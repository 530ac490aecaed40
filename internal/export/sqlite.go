package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/misterem/RandomWalker/internal/stats"
	"github.com/misterem/RandomWalker/internal/walk"
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	walker      TEXT NOT NULL,
	kind        TEXT NOT NULL,
	color       TEXT NOT NULL,
	copies      INTEGER NOT NULL,
	steps       INTEGER NOT NULL,
	seed        TEXT,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS series_values (
	run_id  TEXT NOT NULL,
	series  TEXT NOT NULL,
	step    INTEGER NOT NULL,
	value   REAL NOT NULL,
	PRIMARY KEY (run_id, series, step),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_walker ON runs(walker);
`

// Run is one averaged snapshot of one walker, ready to be stored.
type Run struct {
	Walker   string
	Kind     string
	Color    string
	Seed     *uint64
	Snapshot stats.Snapshot
}

// RunInfo describes a stored run.
type RunInfo struct {
	ID        string    `json:"id"`
	Walker    string    `json:"walker"`
	Kind      string    `json:"kind"`
	Color     string    `json:"color"`
	Copies    int       `json:"copies"`
	Steps     int       `json:"steps"`
	Seed      *uint64   `json:"seed,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RunFor captures the snapshot of w averaged over copies trials.
func RunFor(w *walk.Walker, copies int, seed *uint64) (Run, error) {
	snap, err := w.Averages().ForCopies(copies)
	if err != nil {
		return Run{}, fmt.Errorf("walker %q: %w", w.Name(), err)
	}
	return Run{
		Walker:   w.Name(),
		Kind:     w.Policy().Kind().String(),
		Color:    w.Color(),
		Seed:     seed,
		Snapshot: snap,
	}, nil
}

// Store persists runs in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStore opens the database at path (":memory:" works) and applies the schema.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes the run and every series value in one transaction and returns the new run id.
func (s *Store) Save(ctx context.Context, r Run) (string, error) {
	id := uuid.New().String()
	var seed sql.NullString
	if r.Seed != nil {
		seed = sql.NullString{String: strconv.FormatUint(*r.Seed, 10), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, walker, kind, color, copies, steps, seed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.Walker, r.Kind, r.Color, r.Snapshot.Copies, r.Snapshot.Len()-1, seed,
		s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO series_values (run_id, series, step, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare values: %w", err)
	}
	defer stmt.Close()
	for _, k := range stats.AllSeries {
		for i, v := range r.Snapshot.Series(k) {
			if _, err := stmt.ExecContext(ctx, id, k.String(), i, v); err != nil {
				return "", fmt.Errorf("insert %s[%d]: %w", k, i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// Series loads one stored series in step order.
func (s *Store) Series(ctx context.Context, runID string, k stats.Series) ([]float64, error) {
	if _, err := s.Run(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT value FROM series_values WHERE run_id = ? AND series = ? ORDER BY step`,
		runID, k.String())
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Run loads the metadata of one run.
func (s *Store) Run(ctx context.Context, runID string) (RunInfo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, walker, kind, color, copies, steps, seed, created_at FROM runs WHERE run_id = ?`, runID)
	info, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return info, err
}

// Runs lists runs for a walker, newest first. An empty walker lists every run.
func (s *Store) Runs(ctx context.Context, walker string) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, walker, kind, color, copies, steps, seed, created_at FROM runs
		 WHERE ? = '' OR walker = ? ORDER BY created_at DESC, run_id`, walker, walker)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		info, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (RunInfo, error) {
	var (
		info    RunInfo
		seed    sql.NullString
		created string
	)
	if err := sc.Scan(&info.ID, &info.Walker, &info.Kind, &info.Color,
		&info.Copies, &info.Steps, &seed, &created); err != nil {
		return RunInfo{}, err
	}
	if seed.Valid {
		v, err := strconv.ParseUint(seed.String, 10, 64)
		if err != nil {
			return RunInfo{}, fmt.Errorf("parse seed: %w", err)
		}
		info.Seed = &v
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return RunInfo{}, fmt.Errorf("parse created_at: %w", err)
	}
	info.CreatedAt = t
	return info, nil
}
