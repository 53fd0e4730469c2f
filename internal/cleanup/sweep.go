package cleanup

import (
	"context"
	"time"

	"subtitlegen/internal/jobstore"
	"subtitlegen/internal/logging"
)

// Sweep scans the store for terminal jobs older than retention whose
// cleanup never completed and reaps each one, saving the updated record
// afterward. It is the safety net for a reap that was interrupted by a
// crash between the terminal transition and ReapJob's completion.
func (r *Reaper) Sweep(ctx context.Context, store *jobstore.Store, retention time.Duration) (reaped int, err error) {
	cutoff := time.Now().Add(-retention)
	jobs, err := store.ListTerminal(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	for _, job := range jobs {
		if !job.CleanupPending {
			continue
		}
		if reapErr := r.ReapJob(ctx, job); reapErr != nil {
			r.logger.Warn("sweep could not reap job",
				logging.String(logging.FieldJobID, job.ID), logging.Error(reapErr))
			continue
		}
		job.Touch(time.Now())
		if saveErr := store.Save(ctx, job); saveErr != nil {
			r.logger.Warn("sweep could not save reaped job",
				logging.String(logging.FieldJobID, job.ID), logging.Error(saveErr))
			continue
		}
		reaped++
	}
	return reaped, nil
}

// RunPeriodic runs Sweep on interval until ctx is cancelled, the
// background half of the reaper the daemon command starts alongside the
// scheduler's dispatch loop.
func (r *Reaper) RunPeriodic(ctx context.Context, store *jobstore.Store, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx, store, retention); err != nil {
				r.logger.Warn("periodic cleanup sweep failed", logging.Error(err))
			}
		}
	}
}
