package cueio

import (
	"strings"
	"time"
)

// Cue is one subtitle block: an index, a [Start, End) time range, and one
// or more lines of text.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  []string
}

// Duration returns the cue's on-screen duration.
func (c Cue) Duration() time.Duration {
	return c.End - c.Start
}

// Empty reports whether a cue carries no non-blank text, a structural
// fault the quality gate must reject (spec.md §4.8).
func (c Cue) Empty() bool {
	for _, line := range c.Text {
		if strings.TrimSpace(line) != "" {
			return false
		}
	}
	return true
}
