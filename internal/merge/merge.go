package merge

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"subtitlegen/internal/cueio"
	"subtitlegen/internal/jobstore"
)

// Tolerance is the slack allowed past a segment's nominal duration before
// a cue is clipped rather than kept as-is (spec.md §4.7).
const Tolerance = 50 * time.Millisecond

// OverlapSnapThreshold is the overlap size below which the tie-break
// policy snaps the later cue's start rather than truncating the earlier
// cue's end.
const OverlapSnapThreshold = 200 * time.Millisecond

// minSnapGap is subtracted when truncating the earlier cue so the two
// cues no longer touch at all (spec.md §4.7: "end = cue n+1.start - 1ms").
const minSnapGap = time.Millisecond

// SegmentCues pairs a segment's record with the cue sequence produced
// for it, in the segment's own local time.
type SegmentCues struct {
	Segment jobstore.Segment
	Cues    []cueio.Cue
}

// Result is a merged cue sequence plus any warnings the merge produced
// (e.g. large overlaps that were resolved by truncation).
type Result struct {
	Cues     []cueio.Cue
	Warnings []string
}

// Merge shifts each segment's cues onto the job's global timeline,
// concatenates them in segment order, resolves overlaps, splits
// over-long cues, and reassigns indexes from 1. It is deterministic:
// the same segments and cues always produce the same result.
func Merge(segments []SegmentCues, maxCueDuration time.Duration) Result {
	ordered := make([]SegmentCues, len(segments))
	copy(ordered, segments)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Segment.Index < ordered[j].Segment.Index })

	var shifted []cueio.Cue
	for _, sc := range ordered {
		shifted = append(shifted, shiftSegment(sc.Segment, sc.Cues)...)
	}

	shifted, warnings := resolveOverlaps(shifted)
	shifted = splitLongCues(shifted, maxCueDuration)
	reindex(shifted)

	return Result{Cues: shifted, Warnings: warnings}
}

// shiftSegment moves a segment's locally-timed cues onto the global
// timeline, clipping any cue that runs past the segment's duration plus
// Tolerance and dropping cues that become degenerate after clipping.
func shiftSegment(segment jobstore.Segment, cues []cueio.Cue) []cueio.Cue {
	offset := secondsToDuration(segment.StartS)
	segDuration := secondsToDuration(segment.DurationS)
	ceiling := segDuration + Tolerance

	out := make([]cueio.Cue, 0, len(cues))
	for _, cue := range cues {
		localStart, localEnd := cue.Start, cue.End
		if localStart > ceiling {
			continue
		}
		if localEnd > ceiling {
			localEnd = segDuration
		}
		if localEnd <= localStart {
			continue
		}
		out = append(out, cueio.Cue{
			Start: localStart + offset,
			End:   localEnd + offset,
			Text:  cue.Text,
		})
	}
	return out
}

// resolveOverlaps enforces non-overlap between consecutive cues using
// the spec.md §4.7 tie-break policy: snap the later cue's start for
// overlaps at or below OverlapSnapThreshold, otherwise truncate the
// earlier cue's end and record a warning.
func resolveOverlaps(cues []cueio.Cue) ([]cueio.Cue, []string) {
	var warnings []string
	for i := 0; i+1 < len(cues); i++ {
		overlap := cues[i].End - cues[i+1].Start
		if overlap <= 0 {
			continue
		}
		if overlap <= OverlapSnapThreshold {
			cues[i+1].Start = cues[i].End
			continue
		}
		newEnd := cues[i+1].Start - minSnapGap
		warnings = append(warnings, fmt.Sprintf(
			"truncated cue %d end from %s to %s to resolve a %s overlap with the next cue",
			i+1, cues[i].End, newEnd, overlap))
		cues[i].End = newEnd
	}
	return cues, warnings
}

// splitLongCues splits any cue longer than maxDuration into the minimum
// number of equal-length pieces (duration/pieces each) that respect the
// bound; the last piece ends exactly at the original end. The original
// text is partitioned character-for-character across the pieces (no
// re-flow, no duplication) so the concatenation of piece texts equals
// the original text exactly (spec.md §8).
func splitLongCues(cues []cueio.Cue, maxDuration time.Duration) []cueio.Cue {
	if maxDuration <= 0 {
		return cues
	}
	out := make([]cueio.Cue, 0, len(cues))
	for _, cue := range cues {
		duration := cue.Duration()
		if duration <= maxDuration {
			out = append(out, cue)
			continue
		}
		pieces := int(math.Ceil(float64(duration) / float64(maxDuration)))
		pieceLen := duration / time.Duration(pieces)
		textPieces := splitTextEvenly(strings.Join(cue.Text, "\n"), pieces)
		start := cue.Start
		for p := 0; p < pieces; p++ {
			end := start + pieceLen
			if p == pieces-1 {
				end = cue.End
			}
			out = append(out, cueio.Cue{Start: start, End: end, Text: []string{textPieces[p]}})
			start = end
		}
	}
	return out
}

// splitTextEvenly partitions text into n contiguous, non-overlapping
// runs of runes whose concatenation reproduces text exactly. The first
// text%n runs get one extra rune so no run is shorter than necessary by
// more than a single rune.
func splitTextEvenly(text string, n int) []string {
	runes := []rune(text)
	base := len(runes) / n
	remainder := len(runes) % n
	pieces := make([]string, n)
	pos := 0
	for i := 0; i < n; i++ {
		length := base
		if i < remainder {
			length++
		}
		pieces[i] = string(runes[pos : pos+length])
		pos += length
	}
	return pieces
}

func reindex(cues []cueio.Cue) {
	for i := range cues {
		cues[i].Index = i + 1
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
