package qualitygate

import (
	"fmt"
	"time"

	"subtitlegen/internal/cueio"
)

// Disposition is the gate's verdict.
type Disposition string

const (
	Accept Disposition = "accept"
	Retry  Disposition = "retry"
	Fail   Disposition = "fail"
)

// Thresholds mirrors config.Quality.
type Thresholds struct {
	MinCoverage         float64
	MaxDensityCPS       float64
	MaxCueDuration      time.Duration
	MinTranslationScore float64
	MinCulturalScore    float64
	MaxAttempts         int
}

// LinguisticScores is the external translation-quality scorer's output,
// computed by the caller when source and target languages differ.
type LinguisticScores struct {
	TranslationScore float64
	CulturalScore    float64
}

// Verdict is the gate's decision plus the metrics and reasons behind it.
type Verdict struct {
	Disposition Disposition
	Metrics     Metrics
	Reasons     []string
}

// Evaluate renders a verdict for a merged cue sequence. attemptsSoFar is
// the number of generation attempts already consumed for this unit of
// work; it gates whether a quality failure is still eligible for retry.
//
// Structural faults (an unresolved overlap, or any empty cue) are
// deterministic given the same input and are never retry-eligible —
// retrying would reproduce the same defect. Coverage, density, and
// linguistic-score failures are treated as quality faults, which do
// justify a retry up to MaxAttempts (spec.md §4.8).
func Evaluate(cues []cueio.Cue, mediaDuration time.Duration, linguistic *LinguisticScores, thresholds Thresholds, attemptsSoFar int) Verdict {
	metrics := ComputeMetrics(cues, mediaDuration)

	var structuralReasons, qualityReasons []string

	if metrics.OverlapCount > 0 {
		structuralReasons = append(structuralReasons, fmt.Sprintf("overlap_count=%d, want 0", metrics.OverlapCount))
	}
	if metrics.EmptyCues > 0 {
		structuralReasons = append(structuralReasons, fmt.Sprintf("empty_cues=%d, want 0", metrics.EmptyCues))
	}

	if metrics.CoverageFraction < thresholds.MinCoverage {
		qualityReasons = append(qualityReasons, fmt.Sprintf("coverage=%.3f below min %.3f", metrics.CoverageFraction, thresholds.MinCoverage))
	}
	if thresholds.MaxDensityCPS > 0 && metrics.MeanDensityCPS > thresholds.MaxDensityCPS {
		qualityReasons = append(qualityReasons, fmt.Sprintf("mean_density=%.2f cps above max %.2f", metrics.MeanDensityCPS, thresholds.MaxDensityCPS))
	}
	if linguistic != nil {
		if linguistic.TranslationScore < thresholds.MinTranslationScore {
			qualityReasons = append(qualityReasons, fmt.Sprintf("translation_score=%.3f below min %.3f", linguistic.TranslationScore, thresholds.MinTranslationScore))
		}
		if linguistic.CulturalScore < thresholds.MinCulturalScore {
			qualityReasons = append(qualityReasons, fmt.Sprintf("cultural_score=%.3f below min %.3f", linguistic.CulturalScore, thresholds.MinCulturalScore))
		}
	}

	if len(structuralReasons) == 0 && len(qualityReasons) == 0 {
		return Verdict{Disposition: Accept, Metrics: metrics}
	}

	if len(structuralReasons) > 0 {
		return Verdict{Disposition: Fail, Metrics: metrics, Reasons: structuralReasons}
	}

	if attemptsSoFar < thresholds.MaxAttempts {
		return Verdict{Disposition: Retry, Metrics: metrics, Reasons: qualityReasons}
	}
	return Verdict{Disposition: Fail, Metrics: metrics, Reasons: qualityReasons}
}
