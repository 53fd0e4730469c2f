package scheduler

import (
	"context"

	"subtitlegen/internal/jobstore"
	"subtitlegen/internal/segmenter"
)

// runSegment is the Validated -> Segmented transition: plan fixed
// intervals over the media's duration and extract each one, resuming
// from whatever the scratch dir already holds from a prior, possibly
// crashed, attempt (spec.md §4.3).
func (r *JobRunner) runSegment(ctx context.Context, job *jobstore.JobState) error {
	opts := segmenter.Options{
		Binary:             r.cfg.Segmentation.SegmenterBinary,
		ChunkDurationS:     r.cfg.Segmentation.ChunkDurationS,
		MaxSegmentBytes:    r.cfg.Segmentation.MaxSegmentBytes,
		ScratchBudgetBytes: r.cfg.Segmentation.ScratchBudgetBytes,
	}
	planned := segmenter.Plan(job.Media.DurationS, opts.ChunkDurationS)
	prior := segmenter.PriorByStart(job.Segments)

	segments, err := segmenter.Run(ctx, opts, job.SourcePath, scratchDir(r.cfg, job.ID), planned, prior)
	if err != nil {
		return err
	}
	job.Segments = segments
	job.Stage = jobstore.StageSegmented
	return nil
}
