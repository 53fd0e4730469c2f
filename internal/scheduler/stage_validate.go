package scheduler

import (
	"context"

	"subtitlegen/internal/jobstore"
	"subtitlegen/internal/mediaprobe"
)

// runValidate is the New -> Validated transition: probe the source file
// and reject it outright on any admission failure (spec.md §4.2).
func (r *JobRunner) runValidate(ctx context.Context, job *jobstore.JobState) error {
	media, err := mediaprobe.Probe(ctx, mediaprobe.Options{
		MaxVideoSizeBytes: r.cfg.Admission.MaxVideoSizeBytes,
		MaxDurationS:      r.cfg.Admission.MaxDurationS,
		AdmittedCodecs:    r.cfg.Admission.AdmittedCodecs,
	}, job.SourcePath)
	if err != nil {
		return err
	}
	job.Media = media
	job.Stage = jobstore.StageValidated
	return nil
}
