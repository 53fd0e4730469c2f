package qualitygate

import (
	"strings"
	"time"

	"subtitlegen/internal/cueio"
)

// Metrics is the structural measurement of a merged cue sequence
// (spec.md §4.8).
type Metrics struct {
	CueCount         int
	EmptyCues        int
	OverlapCount     int
	MeanDensityCPS   float64
	MeanCueDuration  time.Duration
	MaxCueDuration   time.Duration
	CoverageFraction float64
}

// ComputeMetrics measures a merged cue sequence against the media's total
// duration.
func ComputeMetrics(cues []cueio.Cue, mediaDuration time.Duration) Metrics {
	var m Metrics
	m.CueCount = len(cues)
	if m.CueCount == 0 {
		return m
	}

	var totalDensity float64
	var totalDuration time.Duration
	var covered time.Duration

	for i, cue := range cues {
		if cue.Empty() {
			m.EmptyCues++
		}
		duration := cue.Duration()
		if duration > m.MaxCueDuration {
			m.MaxCueDuration = duration
		}
		totalDuration += duration
		covered += duration

		chars := len(strings.Join(cue.Text, ""))
		if duration > 0 {
			totalDensity += float64(chars) / duration.Seconds()
		}

		if i+1 < len(cues) && cues[i+1].Start < cue.End {
			m.OverlapCount++
		}
	}

	m.MeanDensityCPS = totalDensity / float64(m.CueCount)
	m.MeanCueDuration = totalDuration / time.Duration(m.CueCount)
	if mediaDuration > 0 {
		m.CoverageFraction = covered.Seconds() / mediaDuration.Seconds()
	}
	return m
}
