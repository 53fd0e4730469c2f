package scheduler

import (
	"context"
	"fmt"
	"sync"

	"subtitlegen/internal/jobstore"
)

// runUpload is the Segmented -> Uploaded transition: push every
// not-yet-uploaded segment to the blob store, bounded by the
// process-wide upload semaphore (spec.md §4.4, §5). Segments already
// marked Uploaded from a prior attempt are skipped.
func (r *JobRunner) runUpload(ctx context.Context, job *jobstore.JobState) error {
	pending := make([]int, 0, len(job.Segments))
	for i, seg := range job.Segments {
		if !seg.Uploaded {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		job.Stage = jobstore.StageUploaded
		return nil
	}

	uploadCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, idx := range pending {
		idx := idx
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.uploadSem.Acquire(uploadCtx); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			defer r.uploadSem.Release()

			seg := job.Segments[idx]
			key := fmt.Sprintf("seg-%05d", seg.Index)
			ref, err := r.blobs.Put(uploadCtx, job.ReservedBlobNamespace, key, seg.LocalPath)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				return
			}
			job.Segments[idx].BlobKey = ref
			job.Segments[idx].Uploaded = true
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	job.Stage = jobstore.StageUploaded
	return nil
}
