package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"subtitlegen/internal/backoff"
	"subtitlegen/internal/blobstore"
	"subtitlegen/internal/clockid"
	"subtitlegen/internal/config"
	"subtitlegen/internal/diskguard"
	"subtitlegen/internal/jobstore"
	"subtitlegen/internal/langtag"
	"subtitlegen/internal/logging"
	"subtitlegen/internal/modeladapter"
	"subtitlegen/internal/notify"
	"subtitlegen/internal/qualitygate"
)

// Scheduler is the single-host, cooperatively concurrent orchestrator
// (C10) that drives every active JobState through the stage machine. It
// is the sole writer of JobState; every other component it calls returns
// pure results.
type Scheduler struct {
	cfg    *config.Config
	store  *jobstore.Store
	logger *slog.Logger
	clock  clockid.Clock
	idgen  clockid.Generator

	blobs    *blobstore.Store
	registry *modeladapter.Registry
	scorer   qualitygate.TranslationScorer
	notifier notify.Service
	reaper   Reaper

	jobSem    *semaphore
	uploadSem *semaphore
	genSem    *semaphore
	cancels   *cancelRegistry

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Reaper is the subset of internal/cleanup's Reaper the scheduler drives
// on terminal transitions (spec.md §4.9). Declared here, not imported
// directly from internal/cleanup, so internal/cleanup can depend on
// jobstore/blobstore without importing the scheduler.
type Reaper interface {
	ReapJob(ctx context.Context, job *jobstore.JobState) error
}

// Options bundles the collaborators a Scheduler needs beyond cfg/store.
type Options struct {
	Clock    clockid.Clock
	IDGen    clockid.Generator
	Blobs    *blobstore.Store
	Registry *modeladapter.Registry
	Scorer   qualitygate.TranslationScorer
	Notifier notify.Service
	Reaper   Reaper
	Logger   *slog.Logger
}

// New constructs a Scheduler wired against cfg's concurrency bounds.
func New(cfg *config.Config, store *jobstore.Store, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = clockid.SystemClock{}
	}
	if opts.Scorer == nil {
		opts.Scorer = qualitygate.NopScorer{}
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.New(cfg)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Scheduler{
		cfg:       cfg,
		store:     store,
		logger:    opts.Logger,
		clock:     opts.Clock,
		idgen:     opts.IDGen,
		blobs:     opts.Blobs,
		registry:  opts.Registry,
		scorer:    opts.Scorer,
		notifier:  opts.Notifier,
		reaper:    opts.Reaper,
		jobSem:    newSemaphore(cfg.Scheduling.MaxConcurrentJobs),
		uploadSem: newSemaphore(cfg.Upload.MaxConcurrentUploads),
		genSem:    newSemaphore(cfg.Generation.MaxConcurrentGenerations),
		cancels:   newCancelRegistry(),
	}
}

// Submit creates a new job record in the New stage and returns it. The
// running dispatch loop picks it up on its next poll; Submit does not
// block on any stage work.
func (s *Scheduler) Submit(ctx context.Context, sourcePath string, targets []langtag.Target, sourceLanguage string) (*jobstore.JobState, error) {
	normalized, err := langtag.NormalizeTargets(targets)
	if err != nil {
		return nil, err
	}
	job := jobstore.NewJobState(s.idgen.NewJobID(), sourcePath, normalized, sourceLanguage, s.clock.Now())
	if err := s.store.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Abandon cancels a running job's task set and marks it Abandoned. It
// reports false if the job is not currently running under this
// scheduler (it may already be terminal, or not yet picked up).
func (s *Scheduler) Abandon(jobID string) bool {
	return s.cancels.Cancel(jobID)
}

// Start begins the dispatch loop: on each poll interval it loads active
// jobs from the store and launches a JobRunner for any not already
// running, bounded by MAX_CONCURRENT_JOBS.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.dispatchLoop(runCtx)
	return nil
}

// Stop cancels every running job's context and waits for the dispatch
// loop and all in-flight JobRunners to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

func (s *Scheduler) pollInterval() time.Duration {
	return time.Duration(s.cfg.Scheduling.PollIntervalS) * time.Second
}

func (s *Scheduler) dispatchLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		jobs, err := s.store.ListActive(ctx)
		if err != nil {
			s.logger.Error("failed to list active jobs",
				logging.Error(err), logging.String(logging.FieldEventType, "dispatch_list_failed"))
		} else {
			// Round-robin across jobs: dispatch every active job not
			// already running, in store order (creation order), bounded
			// by the job semaphore.
			for _, job := range jobs {
				if s.cancels.running(job.ID) {
					continue
				}
				if job.Stage == jobstore.StageNew && !s.admitDiskPressureOK() {
					s.logger.Warn("deferring new job admission due to disk pressure",
						logging.String(logging.FieldJobID, job.ID))
					continue
				}
				s.launch(ctx, job)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.pollInterval()):
		}
	}
}

// admitDiskPressureOK reports whether the configured temp directory has
// enough free space to admit a new job (spec.md §5 "no new jobs are
// admitted while the condition holds"). A zero DiskReserveBytes means no
// floor has been configured, so admission always proceeds.
func (s *Scheduler) admitDiskPressureOK() bool {
	if s.cfg.Scheduling.DiskReserveBytes <= 0 {
		return true
	}
	result, err := diskguard.Check(s.cfg.Paths.TempDir, uint64(s.cfg.Scheduling.DiskReserveBytes))
	if err != nil {
		// Fail open: an unreadable filesystem stat shouldn't itself
		// block the pipeline from making progress.
		return true
	}
	return result.OK
}

func (s *Scheduler) launch(ctx context.Context, job *jobstore.JobState) {
	jobCtx, jobCancel := context.WithCancel(ctx)
	s.cancels.register(job.ID, jobCancel)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.cancels.unregister(job.ID)
		defer jobCancel()

		if err := s.jobSem.Acquire(jobCtx); err != nil {
			return
		}
		defer s.jobSem.Release()

		runner := s.newJobRunner(job.ID)
		if err := runner.Run(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("job runner exited with error",
				logging.String(logging.FieldJobID, job.ID), logging.Error(err))
		}
	}()
}

func (s *Scheduler) newJobRunner(jobID string) *JobRunner {
	return &JobRunner{
		jobID:         jobID,
		cfg:           s.cfg,
		store:         s.store,
		logger:        s.logger,
		clock:         s.clock,
		blobs:         s.blobs,
		registry:      s.registry,
		scorer:        s.scorer,
		notifier:      s.notifier,
		reaper:        s.reaper,
		uploadSem:     s.uploadSem,
		genSem:        s.genSem,
		backoffPolicy: backoff.Default(),
	}
}
