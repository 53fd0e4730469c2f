package cueio_test

import (
	"strings"
	"testing"
	"time"

	"subtitlegen/internal/cueio"
)

func TestParseTolerantOfMissingIndexAndMixedSeparators(t *testing.T) {
	input := "00:00:01.000 --> 00:00:02,500\nhello there\n\n2\n00:00:03,000 --> 00:00:04,000\nsecond line\n"
	cues, err := cueio.Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cues))
	}
	if cues[0].Start != time.Second || cues[0].End != 2500*time.Millisecond {
		t.Fatalf("unexpected first cue timing: %+v", cues[0])
	}
	if cues[0].Index != 1 || cues[1].Index != 2 {
		t.Fatalf("expected re-indexed cues, got %d and %d", cues[0].Index, cues[1].Index)
	}
}

func TestParseRejectsEndBeforeStart(t *testing.T) {
	input := "1\n00:00:05,000 --> 00:00:02,000\nbad cue\n"
	if _, err := cueio.Parse(input); err == nil {
		t.Fatal("expected an error for end <= start")
	}
}

func TestParseRejectsMalformedTiming(t *testing.T) {
	input := "1\nnot a timing line\ntext\n"
	if _, err := cueio.Parse(input); err == nil {
		t.Fatal("expected an error for a malformed timing line")
	}
}

func TestParseToleratesTrailingBlankLines(t *testing.T) {
	input := "1\n00:00:00,000 --> 00:00:01,000\nhi\n\n\n\n"
	cues, err := cueio.Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(cues) != 1 {
		t.Fatalf("expected 1 cue, got %d", len(cues))
	}
}

func TestWriteSRTHasBOMAndCommaSeparator(t *testing.T) {
	cues := []cueio.Cue{{Start: time.Second, End: 2 * time.Second, Text: []string{"hi"}}}
	var b strings.Builder
	if err := cueio.WriteSRT(&b, cues); err != nil {
		t.Fatalf("WriteSRT failed: %v", err)
	}
	out := b.String()
	if !strings.HasPrefix(out, "\uFEFF1\n") {
		t.Fatalf("expected a leading BOM and index 1, got %q", out[:min(20, len(out))])
	}
	if !strings.Contains(out, "00:00:01,000 --> 00:00:02,000") {
		t.Fatalf("expected comma-separated timestamps, got %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatal("expected a trailing newline")
	}
}

func TestWriteVTTHasHeaderAndPeriodSeparator(t *testing.T) {
	cues := []cueio.Cue{{Start: time.Second, End: 2 * time.Second, Text: []string{"hi"}}}
	var b strings.Builder
	if err := cueio.WriteVTT(&b, cues); err != nil {
		t.Fatalf("WriteVTT failed: %v", err)
	}
	out := b.String()
	if !strings.HasPrefix(out, "WEBVTT\n\n") {
		t.Fatalf("expected a WEBVTT header, got %q", out[:min(20, len(out))])
	}
	if !strings.Contains(out, "00:00:01.000 --> 00:00:02.000") {
		t.Fatalf("expected period-separated timestamps, got %q", out)
	}
	if strings.Contains(out, "\n1\n") {
		t.Fatal("expected no cue numbering in VTT output")
	}
}

func TestRoundTripSRTThroughParse(t *testing.T) {
	cues := []cueio.Cue{
		{Start: 0, End: time.Second, Text: []string{"one"}},
		{Start: 2 * time.Second, End: 3 * time.Second, Text: []string{"two"}},
	}
	var b strings.Builder
	if err := cueio.WriteSRT(&b, cues); err != nil {
		t.Fatalf("WriteSRT failed: %v", err)
	}
	parsed, err := cueio.Parse(strings.TrimPrefix(b.String(), "\uFEFF"))
	if err != nil {
		t.Fatalf("Parse failed on round trip: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 cues on round trip, got %d", len(parsed))
	}
}
