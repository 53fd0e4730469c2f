package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"subtitlegen/internal/blobstore"
	"subtitlegen/internal/config"
	"subtitlegen/internal/jobstore"
	"subtitlegen/internal/logging"
)

// Reaper removes the durable side effects of a job once it no longer
// needs them: the blobs uploaded under its reserved namespace, and the
// scratch directory holding its extracted segments and per-chunk cue
// JSON.
type Reaper struct {
	cfg    *config.Config
	blobs  *blobstore.Store
	logger *slog.Logger
}

// New constructs a Reaper.
func New(cfg *config.Config, blobs *blobstore.Store, logger *slog.Logger) *Reaper {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reaper{cfg: cfg, blobs: blobs, logger: logger}
}

// ReapJob deletes job's blob namespace and scratch directory. It is
// best-effort across the two: a failure in one does not stop the other
// from being attempted, and both errors are joined in the result. On
// success it clears job.CleanupPending so the periodic sweep skips it.
func (r *Reaper) ReapJob(ctx context.Context, job *jobstore.JobState) error {
	var errs []error

	if job.ReservedBlobNamespace != "" {
		if err := r.blobs.DeletePrefix(ctx, job.ReservedBlobNamespace); err != nil {
			errs = append(errs, fmt.Errorf("delete blob namespace %s: %w", job.ReservedBlobNamespace, err))
		}
	}

	if !r.cfg.Cleanup.KeepTemp {
		scratch := filepath.Join(r.cfg.Paths.TempDir, job.ID)
		if err := os.RemoveAll(scratch); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove scratch dir %s: %w", scratch, err))
		}
	}

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		r.logger.Warn("job cleanup incomplete",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(joined),
			logging.String(logging.FieldEventType, "cleanup_failed"),
			logging.String(logging.FieldErrorHint, "check blob store and temp_dir permissions"),
		)
		return joined
	}

	job.CleanupPending = false
	r.logger.Info("reaped terminal job",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldStage, string(job.Stage)),
		logging.String(logging.FieldEventType, "cleanup"),
	)
	return nil
}
