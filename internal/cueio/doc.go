// Package cueio is the cue parser and emitter (C7). It parses a
// line-oriented, SRT-like cue format into a sequence of Cue values and
// renders that sequence back out as .srt (compact) or .vtt (cue-based)
// subtitle files.
package cueio
