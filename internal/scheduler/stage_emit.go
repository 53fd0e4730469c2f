package scheduler

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"subtitlegen/internal/cueio"
	"subtitlegen/internal/jobstore"
)

// runEmit is the QualityChecked -> Emitted transition: write the final
// .srt and .vtt files for every target into the output directory, using
// a temp-write-then-rename so a crash mid-write never leaves a partial
// file at the canonical path (spec.md §4.6, §6).
func (r *JobRunner) runEmit(ctx context.Context, job *jobstore.JobState) error {
	outDir := outputDir(r.cfg, job.SourcePath)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("ensure output dir: %w", err)
	}

	for _, target := range job.Targets {
		key := target.Key()
		ref, ok := job.MergedResults[key]
		if !ok {
			return fmt.Errorf("emit target %s: no merged result on an accepted target", key)
		}
		cues, err := cueio.LoadJSON(ref.Path)
		if err != nil {
			return err
		}

		stem := outputStem(job.SourcePath, target)
		srtPath := filepath.Join(outDir, stem+".srt")
		vttPath := filepath.Join(outDir, stem+".vtt")

		if err := writeAtomic(srtPath, func(f *os.File) error { return cueio.WriteSRT(f, cues) }); err != nil {
			return fmt.Errorf("write %s: %w", srtPath, err)
		}
		if err := writeAtomic(vttPath, func(f *os.File) error { return cueio.WriteVTT(f, cues) }); err != nil {
			return fmt.Errorf("write %s: %w", vttPath, err)
		}

		outputs := job.Outputs
		if outputs == nil {
			outputs = map[string]jobstore.OutputPaths{}
			job.Outputs = outputs
		}
		outputs[key] = jobstore.OutputPaths{SRTPath: srtPath, VTTPath: vttPath}
	}

	infoPath := filepath.Join(outDir, jobBasename(job.SourcePath)+"_info.txt")
	if err := writeAtomic(infoPath, func(f *os.File) error { return writeInfoSummary(f, r, job) }); err != nil {
		return fmt.Errorf("write %s: %w", infoPath, err)
	}

	job.Stage = jobstore.StageEmitted
	return nil
}

// writeInfoSummary renders the human-readable per-job summary spec.md §6
// names alongside the .srt/.vtt files: target languages, each target's
// quality-gate verdict and score, segment count, total media duration,
// wall-clock processing time, and the resolved model identifier.
func writeInfoSummary(w io.Writer, r *JobRunner, job *jobstore.JobState) error {
	wallClock := job.UpdatedAt.Sub(job.CreatedAt)

	fmt.Fprintf(w, "job: %s\n", job.ID)
	fmt.Fprintf(w, "source: %s\n", job.SourcePath)
	fmt.Fprintf(w, "model: %s\n", r.cfg.Generation.ModelIdentifier)
	fmt.Fprintf(w, "segments: %d\n", len(job.Segments))
	fmt.Fprintf(w, "media duration: %s\n", formatDuration(job.Media.DurationS))
	fmt.Fprintf(w, "wall clock time: %s\n", wallClock.Round(time.Second))
	fmt.Fprintf(w, "targets:\n")
	for _, target := range job.Targets {
		key := target.Key()
		verdict := job.GateVerdicts[key]
		fmt.Fprintf(w, "  %s: verdict=%s coverage=%.3f density_cps=%.2f",
			key, verdict.Disposition, verdict.CoverageFraction, verdict.MeanDensityCPS)
		if verdict.TranslationScore > 0 || verdict.CulturalScore > 0 {
			fmt.Fprintf(w, " translation_score=%.3f cultural_score=%.3f", verdict.TranslationScore, verdict.CulturalScore)
		}
		fmt.Fprintf(w, "\n")
	}
	return nil
}

func formatDuration(seconds float64) string {
	return time.Duration(seconds * float64(time.Second)).Round(time.Second).String()
}

// runComplete is the Emitted -> Completed transition. Every output file
// was already durably written and renamed into place by runEmit; this
// step exists only so Completed is reached through the same persisted
// step-and-save loop as every other transition, keeping the state
// machine's single-writer discipline uniform.
func (r *JobRunner) runComplete(ctx context.Context, job *jobstore.JobState) error {
	job.CleanupPending = true
	job.Stage = jobstore.StageCompleted
	return nil
}

func writeAtomic(path string, write func(*os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
