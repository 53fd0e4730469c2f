package cueio

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// srtBOM is the UTF-8 byte-order mark the compact form leads with.
const srtBOM = "\uFEFF"

// WriteSRT renders cues into the compact form: blocks numbered from 1,
// comma-separated millisecond timestamps, UTF-8 with a leading BOM, a
// trailing newline (spec.md §4.6).
func WriteSRT(w io.Writer, cues []Cue) error {
	var b strings.Builder
	b.WriteString(srtBOM)
	for i, cue := range cues {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", formatTimestamp(cue.Start, ','), formatTimestamp(cue.End, ','))
		for _, line := range cue.Text {
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, strings.TrimRight(b.String(), "\n")+"\n")
	return err
}

// WriteVTT renders cues into the cue-based form: a leading WEBVTT line,
// one blank line, then unnumbered blocks with period-separated
// timestamps, ending with a trailing newline.
func WriteVTT(w io.Writer, cues []Cue) error {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, cue := range cues {
		fmt.Fprintf(&b, "%s --> %s\n", formatTimestamp(cue.Start, '.'), formatTimestamp(cue.End, '.'))
		for _, line := range cue.Text {
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, strings.TrimRight(b.String(), "\n")+"\n")
	return err
}

func formatTimestamp(d time.Duration, sep byte) string {
	if d < 0 {
		d = 0
	}
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second
	millis := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, seconds, sep, millis)
}
