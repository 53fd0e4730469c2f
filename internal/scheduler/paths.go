package scheduler

import (
	"path/filepath"
	"strings"

	"subtitlegen/internal/config"
	"subtitlegen/internal/jobstore"
	"subtitlegen/internal/langtag"
)

// scratchDir is the per-job working area under the configured temp root:
// extracted segments, per-chunk cue JSON, and anything else transient
// that internal/cleanup reaps once the job reaches a terminal stage.
func scratchDir(cfg *config.Config, jobID string) string {
	return filepath.Join(cfg.Paths.TempDir, jobID)
}

func cueSetDir(cfg *config.Config, jobID string) string {
	return filepath.Join(scratchDir(cfg, jobID), "cues")
}

func chunkCuePath(cfg *config.Config, jobID string, key jobstore.UnitKey) string {
	return filepath.Join(cueSetDir(cfg, jobID), sanitizeKey(string(key))+".json")
}

func mergedCuePath(cfg *config.Config, jobID string, targetKey string) string {
	return filepath.Join(cueSetDir(cfg, jobID), "merged_"+sanitizeKey(targetKey)+".json")
}

// jobBasename derives the output filename stem from the source path,
// e.g. "/media/in/Some Movie.mkv" -> "Some Movie" (spec.md §6).
func jobBasename(sourcePath string) string {
	base := filepath.Base(sourcePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func outputDir(cfg *config.Config, sourcePath string) string {
	return filepath.Join(cfg.Paths.OutputDir, jobBasename(sourcePath))
}

// outputStem builds "<basename>_<lang>[_<mode>]", the filename stem for
// one target's emitted subtitle files (spec.md §6).
func outputStem(sourcePath string, target langtag.Target) string {
	stem := jobBasename(sourcePath) + "_" + target.Language
	if target.Mode != langtag.ModeStandard {
		stem += "_" + string(target.Mode)
	}
	return stem
}

func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '|', '/', '\\', ' ':
			return '_'
		default:
			return r
		}
	}, key)
}
