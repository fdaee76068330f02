package store

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diariomunicipal/gazette-pipeline/internal/queue"
)

// RunStore implements dispatch.RunRecorder (and the equivalent bracket for
// validate.Harness) over a runs table, the same INSERT-then-UPDATE bracket
// the teacher uses around ingest_runs in IngestSource/IngestAll.
type RunStore struct {
	pool *pgxpool.Pool
}

// New constructs a RunStore over pool.
func New(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// BeginRun inserts a running run record and returns its id.
func (s *RunStore) BeginRun(ctx context.Context, kind string) (string, error) {
	runID := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (run_id, kind, status) VALUES ($1, $2, 'running')`,
		runID, kind)
	if err != nil {
		return "", fmt.Errorf("store.BeginRun: %w", err)
	}
	return runID, nil
}

// EndRun closes out a run record with its final counts and status.
func (s *RunStore) EndRun(ctx context.Context, runID string, enqueued, failed int, status queue.Status) {
	_, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, enqueued = $2, failed = $3, completed_at = NOW() WHERE run_id = $4`,
		string(status), enqueued, failed, runID)
	if err != nil {
		// Run bookkeeping is ambient; a write failure here must never
		// surface as a dispatch failure.
		log.Printf("[store] failed to close run %s: %v", runID, err)
	}
}

// RunSummary is one row of ListRecentRuns.
type RunSummary struct {
	RunID    string
	Kind     string
	Status   string
	Enqueued int
	Failed   int
}

// ListRecentRuns returns the most recent n runs, newest first, for the
// §6 stats/health surface.
func (s *RunStore) ListRecentRuns(ctx context.Context, n int) ([]RunSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, kind, status, enqueued, failed FROM runs ORDER BY started_at DESC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("store.ListRecentRuns: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Kind, &r.Status, &r.Enqueued, &r.Failed); err != nil {
			return nil, fmt.Errorf("store.ListRecentRuns: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
