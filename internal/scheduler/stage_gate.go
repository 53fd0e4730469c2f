package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"subtitlegen/internal/cueio"
	"subtitlegen/internal/faults"
	"subtitlegen/internal/jobstore"
	"subtitlegen/internal/langtag"
	"subtitlegen/internal/qualitygate"
)

// gateAttemptKey is the synthetic per-target attempt counter the quality
// gate consults, distinct from the per-(segment, target) counters
// runGenerate bumps: segment index -1 never occurs in job.Segments.
func gateAttemptKey(target langtag.Target) jobstore.UnitKey {
	return jobstore.MakeUnitKey(-1, target.Language, target.Mode)
}

// runGate is the Merged -> QualityChecked (or back to Uploaded)
// transition: evaluate every not-yet-accepted target's merged cues
// against the structural and linguistic thresholds (spec.md §4.8). A
// structural fault or an exhausted retry budget fails the job outright;
// a quality-only fault rewinds the job to Uploaded so runGenerate
// regenerates just the affected target's units.
func (r *JobRunner) runGate(ctx context.Context, job *jobstore.JobState) error {
	thresholds := r.thresholds()
	mediaDuration := time.Duration(job.Media.DurationS * float64(time.Second))
	needsRewind := false
	if job.GateVerdicts == nil {
		job.GateVerdicts = map[string]jobstore.GateSummary{}
	}

	for _, target := range job.Targets {
		key := target.Key()
		if job.AcceptedTargets[key] {
			continue
		}

		ref, ok := job.MergedResults[key]
		if !ok {
			return faults.New(faults.StructuralInvariant, "target "+key+" reached the quality gate with no merged result")
		}
		cues, err := cueio.LoadJSON(ref.Path)
		if err != nil {
			return err
		}

		var linguistic *qualitygate.LinguisticScores
		if job.SourceLanguage != "" && !langtag.SameLanguage(job.SourceLanguage, target.Language) {
			scores, err := r.scorer.Score(ctx, job.SourceLanguage, target.Language, cues)
			if err != nil {
				return err
			}
			linguistic = &scores
		}

		verdict := qualitygate.Evaluate(cues, mediaDuration, linguistic, thresholds, job.Attempts(gateAttemptKey(target)))
		summary := jobstore.GateSummary{
			Disposition:      string(verdict.Disposition),
			CoverageFraction: verdict.Metrics.CoverageFraction,
			MeanDensityCPS:   verdict.Metrics.MeanDensityCPS,
		}
		if linguistic != nil {
			summary.TranslationScore = linguistic.TranslationScore
			summary.CulturalScore = linguistic.CulturalScore
		}
		job.GateVerdicts[key] = summary

		switch verdict.Disposition {
		case qualitygate.Accept:
			job.AcceptedTargets[key] = true
		case qualitygate.Retry:
			job.IncrementAttempts(gateAttemptKey(target))
			r.clearTargetResults(job, target)
			needsRewind = true
		case qualitygate.Fail:
			return faults.New(faults.QualityBelowThreshold,
				fmt.Sprintf("target %s failed the quality gate: %s", key, strings.Join(verdict.Reasons, "; ")))
		}
	}

	if needsRewind {
		job.Stage = jobstore.StageUploaded
		return nil
	}
	job.Stage = jobstore.StageQualityChecked
	return nil
}

// clearTargetResults discards a target's per-segment generation results
// and merged cue set so the next pass through Uploaded regenerates only
// that target's units, leaving every other target's progress intact.
func (r *JobRunner) clearTargetResults(job *jobstore.JobState, target langtag.Target) {
	for _, seg := range job.Segments {
		delete(job.PerChunkResults, jobstore.MakeUnitKey(seg.Index, target.Language, target.Mode))
	}
	delete(job.MergedResults, target.Key())
}

func (r *JobRunner) thresholds() qualitygate.Thresholds {
	q := r.cfg.Quality
	return qualitygate.Thresholds{
		MinCoverage:         q.MinCoverage,
		MaxDensityCPS:       q.MaxDensityCPS,
		MaxCueDuration:      time.Duration(q.MaxCueDurationS * float64(time.Second)),
		MinTranslationScore: q.MinTranslationScore,
		MinCulturalScore:    q.MinCulturalScore,
		MaxAttempts:         q.MaxAttempts,
	}
}
