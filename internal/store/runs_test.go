package store

import (
	"context"
	"os"
	"testing"

	"github.com/diariomunicipal/gazette-pipeline/internal/queue"
)

// TestRunLifecycle exercises BeginRun/EndRun/ListRecentRuns against a real
// database, mirroring the teacher's integration_test.go skip-if-unavailable
// shape: these assertions only run when DATABASE_URL points at a reachable
// Postgres instance.
func TestRunLifecycle(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping store integration test")
	}

	ctx := context.Background()
	pool, err := Connect(ctx)
	if err != nil {
		t.Skipf("database not reachable, skipping: %v", err)
	}
	defer pool.Close()

	if err := ApplyMigrations(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	s := New(pool)
	runID, err := s.BeginRun(ctx, "crawl")
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}
	if runID == "" {
		t.Fatalf("expected a non-empty run id")
	}

	s.EndRun(ctx, runID, 10, 2, queue.StatusPartial)

	runs, err := s.ListRecentRuns(ctx, 5)
	if err != nil {
		t.Fatalf("list recent runs: %v", err)
	}
	found := false
	for _, r := range runs {
		if r.RunID == runID {
			found = true
			if r.Status != string(queue.StatusPartial) || r.Enqueued != 10 || r.Failed != 2 {
				t.Errorf("run %s recorded unexpectedly: %+v", runID, r)
			}
		}
	}
	if !found {
		t.Errorf("expected run %s to appear in ListRecentRuns", runID)
	}
}
