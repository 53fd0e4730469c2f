package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"subtitlegen/internal/diskguard"
)

// Health summarizes the readiness of one scheduler dependency (spec.md
// §6, SPEC_FULL.md §4 "Health/readiness reporting").
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

func healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

func unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// HealthCheck reports readiness for every dependency the scheduler drives
// jobs through: the job store, the scratch directory, disk headroom, and
// the object store. It never mutates scheduler or job state.
func (s *Scheduler) HealthCheck(ctx context.Context) map[string]Health {
	health := make(map[string]Health, 4)
	health["job_store"] = s.checkJobStore(ctx)
	health["scratch_dir"] = s.checkScratchDir()
	health["disk_headroom"] = s.checkDiskHeadroom()
	health["object_store"] = s.checkObjectStore(ctx)
	return health
}

func (s *Scheduler) checkJobStore(ctx context.Context) Health {
	const name = "job_store"
	if _, err := s.store.ListActive(ctx); err != nil {
		return unhealthy(name, err.Error())
	}
	return healthy(name)
}

func (s *Scheduler) checkScratchDir() Health {
	const name = "scratch_dir"
	dir := s.cfg.Paths.TempDir
	probe := filepath.Join(dir, ".health-probe")
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return unhealthy(name, fmt.Sprintf("scratch dir %s is not writable: %v", dir, err))
	}
	_ = f.Close()
	_ = os.Remove(probe)
	return healthy(name)
}

func (s *Scheduler) checkDiskHeadroom() Health {
	const name = "disk_headroom"
	result, err := diskguard.Check(s.cfg.Paths.TempDir, uint64(s.cfg.Scheduling.DiskReserveBytes))
	if err != nil {
		return unhealthy(name, err.Error())
	}
	if !result.OK {
		return unhealthy(name, result.Detail)
	}
	return Health{Name: name, Ready: true, Detail: fmt.Sprintf("%d bytes free", result.FreeBytes)}
}

func (s *Scheduler) checkObjectStore(ctx context.Context) Health {
	const name = "object_store"
	if s.blobs == nil {
		return unhealthy(name, "no blob store configured")
	}
	if err := s.blobs.Ping(ctx); err != nil {
		return unhealthy(name, err.Error())
	}
	return healthy(name)
}
