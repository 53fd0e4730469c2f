package qualitygate

import (
	"context"

	"subtitlegen/internal/cueio"
)

// TranslationScorer is the pluggable, out-of-core translation-quality
// scoring library (spec.md §1): given the merged cues for one target and
// the source/target language pair, it returns a numeric quality score and
// a cultural-accuracy score, both in [0, 1]. The scheduler calls it only
// when source and target languages differ (spec.md §4.8) and feeds the
// result into Evaluate as LinguisticScores.
type TranslationScorer interface {
	Score(ctx context.Context, sourceLanguage, targetLanguage string, cues []cueio.Cue) (LinguisticScores, error)
}

// NopScorer always returns a perfect score; it is the default when no
// scoring library is configured, so quality evaluation degrades to
// structural metrics only rather than failing outright.
type NopScorer struct{}

// Score implements TranslationScorer.
func (NopScorer) Score(context.Context, string, string, []cueio.Cue) (LinguisticScores, error) {
	return LinguisticScores{TranslationScore: 1, CulturalScore: 1}, nil
}
