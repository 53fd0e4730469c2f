// Package qualitygate is the quality gate (C9). It computes structural
// metrics from a merged cue sequence, optionally scores translation and
// cultural accuracy through an external linguistic scorer when the
// target language differs from the source, and renders an accept/retry/
// fail verdict against configured thresholds.
package qualitygate
