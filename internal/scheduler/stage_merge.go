package scheduler

import (
	"context"
	"fmt"
	"time"

	"subtitlegen/internal/cueio"
	"subtitlegen/internal/jobstore"
	"subtitlegen/internal/merge"
)

// runMerge is the Generated -> Merged transition: for every target not
// yet accepted by the quality gate, load each segment's persisted cue
// set, shift it onto the job's global timeline, and merge into one
// sequence (spec.md §4.7). runGenerate never advances past Generated
// until every (segment, target) unit has a result, so every target's
// segment coverage is already complete here.
func (r *JobRunner) runMerge(ctx context.Context, job *jobstore.JobState) error {
	maxCueDuration := time.Duration(r.cfg.Quality.MaxCueDurationS * float64(time.Second))

	for _, target := range job.Targets {
		key := target.Key()
		if job.AcceptedTargets[key] {
			continue
		}

		segCues := make([]merge.SegmentCues, 0, len(job.Segments))
		for _, seg := range job.Segments {
			unitKey := jobstore.MakeUnitKey(seg.Index, target.Language, target.Mode)
			ref, ok := job.PerChunkResults[unitKey]
			if !ok {
				return fmt.Errorf("merge target %s: segment %d has no generated result", key, seg.Index)
			}
			cues, err := cueio.LoadJSON(ref.Path)
			if err != nil {
				return err
			}
			segCues = append(segCues, merge.SegmentCues{Segment: seg, Cues: cues})
		}

		result := merge.Merge(segCues, maxCueDuration)
		path := mergedCuePath(r.cfg, job.ID, key)
		if err := cueio.SaveJSON(path, result.Cues); err != nil {
			return err
		}
		job.MergedResults[key] = jobstore.CueSetRef{Path: path, CueCount: len(result.Cues)}
	}

	job.Stage = jobstore.StageMerged
	return nil
}
