package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"subtitlegen/internal/backoff"
	"subtitlegen/internal/blobstore"
	"subtitlegen/internal/clockid"
	"subtitlegen/internal/config"
	"subtitlegen/internal/faults"
	"subtitlegen/internal/jobstore"
	"subtitlegen/internal/logging"
	"subtitlegen/internal/modeladapter"
	"subtitlegen/internal/notify"
	"subtitlegen/internal/qualitygate"
)

// outerMaxStageRetries bounds how many times a whole-stage call may be
// retried after a transient fault before the job is promoted to Failed.
// It guards against the TransientIO policy's "retry, no attempt
// consumed" reading turning into an unbounded spin at stage granularity;
// the per-unit attempt budgets (spec.md §4.9) are a separate, already
// bounded, concern handled inside runGenerate.
const outerMaxStageRetries = 8

// JobRunner drives exactly one job through the stage machine until it
// reaches a terminal stage or its context is cancelled.
type JobRunner struct {
	jobID    string
	cfg      *config.Config
	store    *jobstore.Store
	logger   *slog.Logger
	clock    clockid.Clock
	blobs    *blobstore.Store
	registry *modeladapter.Registry
	scorer   qualitygate.TranslationScorer
	notifier notify.Service
	reaper   Reaper

	uploadSem     *semaphore
	genSem        *semaphore
	backoffPolicy backoff.Policy

	modelOnce   sync.Once
	modelClient *modeladapter.Client

	stageRetries map[jobstore.Stage]int
}

// Run loops: load, step, persist, repeat, until the job reaches a
// terminal stage or ctx is cancelled.
func (r *JobRunner) Run(ctx context.Context) error {
	if r.stageRetries == nil {
		r.stageRetries = map[jobstore.Stage]int{}
	}

	for {
		select {
		case <-ctx.Done():
			return r.abandon(context.Background(), ctx.Err())
		default:
		}

		job, _, err := r.store.Load(ctx, r.jobID)
		if err != nil {
			return fmt.Errorf("load job %s: %w", r.jobID, err)
		}
		if job.Stage.Terminal() {
			return nil
		}

		stage := job.Stage
		stepErr := r.step(ctx, job)
		job.Touch(r.clock.Now())

		if stepErr != nil {
			r.applyFault(job, stage, stepErr)
		} else {
			delete(r.stageRetries, stage)
		}

		if saveErr := r.store.Save(ctx, job); saveErr != nil {
			return fmt.Errorf("save job %s: %w", r.jobID, saveErr)
		}

		if job.Stage.Terminal() {
			r.onTerminal(ctx, job)
			if stepErr != nil && !errors.Is(stepErr, context.Canceled) {
				return stepErr
			}
			return nil
		}

		if stepErr != nil {
			if errors.Is(stepErr, context.Canceled) {
				return stepErr
			}
			policy := faults.Decide(stepErr)
			if policy.Disposition == faults.DispositionPause || policy.Disposition == faults.DispositionRetry {
				select {
				case <-ctx.Done():
					continue
				case <-time.After(r.cooldownFor(stepErr, policy)):
				}
			}
		}
	}
}

// step dispatches one unit of stage work. Each handler mutates job in
// place, advancing job.Stage on success; it never persists.
func (r *JobRunner) step(ctx context.Context, job *jobstore.JobState) error {
	switch job.Stage {
	case jobstore.StageNew:
		return r.runValidate(ctx, job)
	case jobstore.StageValidated:
		return r.runSegment(ctx, job)
	case jobstore.StageSegmented:
		return r.runUpload(ctx, job)
	case jobstore.StageUploaded:
		return r.runGenerate(ctx, job)
	case jobstore.StageGenerated:
		return r.runMerge(ctx, job)
	case jobstore.StageMerged:
		return r.runGate(ctx, job)
	case jobstore.StageQualityChecked:
		return r.runEmit(ctx, job)
	case jobstore.StageEmitted:
		return r.runComplete(ctx, job)
	default:
		return fmt.Errorf("job %s: no handler for stage %s", job.ID, job.Stage)
	}
}

// applyFault decides, from the fixed fault policy table, whether a
// stage's error should fail the job, abandon it, or leave it in place
// for a bounded number of retries at the next Run iteration.
func (r *JobRunner) applyFault(job *jobstore.JobState, stage jobstore.Stage, err error) {
	record := faults.ToRecord(string(stage), r.clock.Now(), err)
	job.LastError = &record

	if errors.Is(err, context.Canceled) {
		job.Stage = jobstore.StageAbandoned
		job.CleanupPending = true
		return
	}

	policy := faults.Decide(err)
	switch policy.Disposition {
	case faults.DispositionFail:
		job.Stage = jobstore.StageFailed
		job.CleanupPending = true
	case faults.DispositionAbandon:
		job.Stage = jobstore.StageAbandoned
		job.CleanupPending = true
	case faults.DispositionPause, faults.DispositionRetry:
		r.stageRetries[stage]++
		if r.stageRetries[stage] > outerMaxStageRetries {
			job.Stage = jobstore.StageFailed
			job.CleanupPending = true
		}
	}

	if job.Stage.Terminal() {
		r.logger.Warn("job moved to terminal stage on fault",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldStage, string(stage)),
			logging.Error(err))
	}
}

func (r *JobRunner) cooldownFor(err error, policy faults.Policy) time.Duration {
	if faults.KindOf(err) == faults.QuotaExceeded && r.cfg.Generation.QuotaCooldownS > 0 {
		return time.Duration(r.cfg.Generation.QuotaCooldownS) * time.Second
	}
	if policy.Backoff > 0 {
		return policy.Backoff
	}
	return r.backoffPolicy.Delay(1)
}

// abandon marks the job Abandoned in response to context cancellation
// (operator-requested or scheduler shutdown) and returns the triggering
// error so callers can distinguish it from a clean stop.
func (r *JobRunner) abandon(ctx context.Context, cause error) error {
	job, _, err := r.store.Load(ctx, r.jobID)
	if err != nil {
		return cause
	}
	if job.Stage.Terminal() {
		return cause
	}
	record := faults.ToRecord("scheduler", r.clock.Now(), faults.New(faults.Cancelled, "job cancelled"))
	job.LastError = &record
	job.Stage = jobstore.StageAbandoned
	job.CleanupPending = true
	job.Touch(r.clock.Now())
	if err := r.store.Save(ctx, job); err != nil {
		return fmt.Errorf("save abandoned job %s: %w", r.jobID, err)
	}
	r.onTerminal(ctx, job)
	return cause
}

func (r *JobRunner) onTerminal(ctx context.Context, job *jobstore.JobState) {
	kind := "job_completed"
	urgent := false
	switch job.Stage {
	case jobstore.StageFailed:
		kind, urgent = "job_failed", true
	case jobstore.StageAbandoned:
		kind = "job_abandoned"
	}
	message := fmt.Sprintf("job %s for %s reached %s", job.ID, job.SourcePath, job.Stage)
	if job.LastError != nil {
		message += ": " + job.LastError.Message
	}
	if err := r.notifier.Notify(ctx, notify.Event{Kind: kind, JobID: job.ID, Message: message, Urgent: urgent}); err != nil {
		r.logger.Warn("notification failed", logging.String(logging.FieldJobID, job.ID), logging.Error(err))
	}

	if r.reaper == nil {
		return
	}
	if err := r.reaper.ReapJob(ctx, job); err != nil {
		r.logger.Error("cleanup failed for terminal job",
			logging.String(logging.FieldJobID, job.ID), logging.Error(err))
		return
	}
	if err := r.store.Save(ctx, job); err != nil {
		r.logger.Error("failed to persist cleanup result",
			logging.String(logging.FieldJobID, job.ID), logging.Error(err))
	}
}

func (r *JobRunner) modelAdapterClient() *modeladapter.Client {
	r.modelOnce.Do(func() {
		r.modelClient = modeladapter.New(
			r.cfg.Generation.Endpoint,
			r.cfg.Generation.ModelIdentifier,
			time.Duration(r.cfg.Generation.TimeoutS)*time.Second,
			r.backoffPolicy,
			r.cfg.Generation.MaxModelRetries,
			r.registry,
		)
	})
	return r.modelClient
}
