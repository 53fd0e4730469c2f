package jobstore

import (
	"context"
	"fmt"
	"time"
)

var terminalStages = []Stage{StageCompleted, StageFailed, StageAbandoned}

// ListActive returns every job not yet in a terminal stage, in creation
// order, so schedulers can rebuild their dispatch queue after a restart
// (spec.md §8 "Resume after crash").
func (s *Store) ListActive(ctx context.Context) ([]*JobState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM job_index WHERE stage NOT IN (?, ?, ?) ORDER BY created_at`,
		string(StageCompleted), string(StageFailed), string(StageAbandoned),
	)
	if err != nil {
		return nil, fmt.Errorf("query active jobs: %w", err)
	}
	return s.loadAll(ctx, rows)
}

// ListTerminal returns jobs in a terminal stage whose last update is older
// than cutoff, the candidate set for internal/cleanup's periodic sweep.
func (s *Store) ListTerminal(ctx context.Context, cutoff time.Time) ([]*JobState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM job_index WHERE stage IN (?, ?, ?) AND updated_at < ? ORDER BY updated_at`,
		string(StageCompleted), string(StageFailed), string(StageAbandoned),
		cutoff.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("query terminal jobs: %w", err)
	}
	return s.loadAll(ctx, rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func (s *Store) loadAll(ctx context.Context, rows rowScanner) ([]*JobState, error) {
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan job id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	jobs := make([]*JobState, 0, len(ids))
	for _, id := range ids {
		job, _, err := s.Load(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load job %s: %w", id, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
