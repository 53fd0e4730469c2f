// Package merge is the timestamp offset and merger (C8). It shifts each
// segment's locally-timed cues onto the job's global timeline, clips
// cues against their segment's duration, concatenates in segment order,
// resolves overlaps with a tie-break policy, and splits any cue longer
// than the configured maximum. The result is deterministic given the
// same inputs.
package merge
