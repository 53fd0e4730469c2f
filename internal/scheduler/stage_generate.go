package scheduler

import (
	"context"
	"sync"
	"time"

	"subtitlegen/internal/clockid"
	"subtitlegen/internal/cueio"
	"subtitlegen/internal/faults"
	"subtitlegen/internal/jobstore"
	"subtitlegen/internal/langtag"
	"subtitlegen/internal/modeladapter"
)

type generateTask struct {
	segmentIndex int
	target       langtag.Target
	key          jobstore.UnitKey
}

// runGenerate is the Uploaded -> Generated transition: dispatch one
// model call per (segment, target) unit not already present in
// per_chunk_results, bounded by the process-wide generation semaphore
// (spec.md §4.5, §5). A quota fault pauses and retries that single unit
// without consuming an attempt; a model-output fault consumes an
// attempt and retries up to quality.max_attempts.
func (r *JobRunner) runGenerate(ctx context.Context, job *jobstore.JobState) error {
	client := r.modelAdapterClient()

	var tasks []generateTask
	for _, seg := range job.Segments {
		for _, target := range job.Targets {
			key := jobstore.MakeUnitKey(seg.Index, target.Language, target.Mode)
			if _, done := job.PerChunkResults[key]; done {
				continue
			}
			tasks = append(tasks, generateTask{segmentIndex: seg.Index, target: target, key: key})
		}
	}
	if len(tasks) == 0 {
		job.Stage = jobstore.StageGenerated
		return nil
	}

	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	results := make(map[jobstore.UnitKey]jobstore.CueSetRef, len(tasks))
	attemptCounts := make(map[jobstore.UnitKey]int, len(tasks))

	for _, task := range tasks {
		task := task
		wg.Add(1)
		go func() {
			defer wg.Done()
			ref, attempts, err := r.generateUnit(genCtx, job, client, task)

			mu.Lock()
			defer mu.Unlock()
			attemptCounts[task.key] = attempts
			if err != nil {
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				return
			}
			results[task.key] = ref
		}()
	}
	wg.Wait()

	for key, attempts := range attemptCounts {
		if attempts > 0 {
			job.AttemptCounts[key] = attempts
		}
	}
	for key, ref := range results {
		job.PerChunkResults[key] = ref
	}

	if firstErr != nil {
		return firstErr
	}

	job.Stage = jobstore.StageGenerated
	return nil
}

// generateUnit drives one (segment, target) unit to completion,
// retrying in place on QuotaExceeded (no attempt consumed) and on
// ModelOutputInvalid (attempt consumed, bounded by quality.max_attempts).
func (r *JobRunner) generateUnit(ctx context.Context, job *jobstore.JobState, client *modeladapter.Client, task generateTask) (jobstore.CueSetRef, int, error) {
	var segment *jobstore.Segment
	for i := range job.Segments {
		if job.Segments[i].Index == task.segmentIndex {
			segment = &job.Segments[i]
			break
		}
	}
	if segment == nil {
		return jobstore.CueSetRef{}, 0, faults.New(faults.StructuralInvariant, "generation task refers to a segment that no longer exists")
	}

	attempts := job.Attempts(task.key)
	for {
		templateVersion, ok := client.TemplateVersion(task.target.Language, task.target.Mode)
		if !ok {
			return jobstore.CueSetRef{}, attempts, faults.New(faults.InvalidInput,
				"no prompt template registered for "+task.target.Language+"/"+string(task.target.Mode))
		}
		fingerprint := clockid.Fingerprint(segment.Checksum, task.target.Language, string(task.target.Mode), templateVersion, r.cfg.Generation.ModelIdentifier)

		cueText, err := r.callGenerate(ctx, client, segment.BlobKey, task.target, fingerprint)
		if err == nil {
			cues, parseErr := cueio.Parse(cueText)
			if parseErr != nil {
				err = faults.Wrap(faults.ModelOutputInvalid, "model cue text failed to parse", parseErr)
			} else {
				path := chunkCuePath(r.cfg, job.ID, task.key)
				if saveErr := cueio.SaveJSON(path, cues); saveErr != nil {
					return jobstore.CueSetRef{}, attempts, saveErr
				}
				return jobstore.CueSetRef{Path: path, CueCount: len(cues), Fingerprint: fingerprint}, attempts, nil
			}
		}

		switch faults.KindOf(err) {
		case faults.QuotaExceeded:
			select {
			case <-ctx.Done():
				return jobstore.CueSetRef{}, attempts, ctx.Err()
			case <-time.After(r.quotaCooldown()):
			}
			continue
		case faults.ModelOutputInvalid:
			attempts++
			if attempts >= r.cfg.Quality.MaxAttempts {
				return jobstore.CueSetRef{}, attempts, err
			}
			continue
		default:
			return jobstore.CueSetRef{}, attempts, err
		}
	}
}

func (r *JobRunner) callGenerate(ctx context.Context, client *modeladapter.Client, segmentRef string, target langtag.Target, fingerprint string) (string, error) {
	if err := r.genSem.Acquire(ctx); err != nil {
		return "", err
	}
	defer r.genSem.Release()
	return client.Generate(ctx, segmentRef, target.Language, target.Mode, fingerprint)
}

func (r *JobRunner) quotaCooldown() time.Duration {
	if r.cfg.Generation.QuotaCooldownS > 0 {
		return time.Duration(r.cfg.Generation.QuotaCooldownS) * time.Second
	}
	return 60 * time.Second
}
