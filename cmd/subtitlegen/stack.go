package main

import (
	"log/slog"
	"time"

	"subtitlegen/internal/backoff"
	"subtitlegen/internal/blobstore"
	"subtitlegen/internal/cleanup"
	"subtitlegen/internal/clockid"
	"subtitlegen/internal/config"
	"subtitlegen/internal/jobstore"
	"subtitlegen/internal/logging"
	"subtitlegen/internal/modeladapter"
	"subtitlegen/internal/notify"
	"subtitlegen/internal/qualitygate"
	"subtitlegen/internal/scheduler"
)

// stack bundles every collaborator the scheduler needs, built once from
// config by the daemon command, for both its run and --healthcheck paths.
type stack struct {
	cfg    *config.Config
	store  *jobstore.Store
	logger *slog.Logger
	sched  *scheduler.Scheduler
	reaper *cleanup.Reaper
}

func buildStack(cfg *config.Config, store *jobstore.Store) (*stack, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	uploadPolicy := backoff.Default()
	blobs := blobstore.New(cfg.Upload.Endpoint, time.Duration(cfg.Upload.TimeoutS)*time.Second, uploadPolicy, cfg.Upload.MaxRetries)

	registry, err := modeladapter.LoadRegistry(cfg.Paths.PromptTemplateRegistry)
	if err != nil {
		return nil, err
	}

	reaper := cleanup.New(cfg, blobs, logger)

	sched := scheduler.New(cfg, store, scheduler.Options{
		Clock:    clockid.SystemClock{},
		IDGen:    clockid.NewGenerator(),
		Blobs:    blobs,
		Registry: registry,
		Scorer:   qualitygate.NopScorer{},
		Notifier: notify.New(cfg),
		Reaper:   reaper,
		Logger:   logger,
	})

	return &stack{cfg: cfg, store: store, logger: logger, sched: sched, reaper: reaper}, nil
}
