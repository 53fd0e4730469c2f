package segmenter_test

import (
	"testing"

	"subtitlegen/internal/jobstore"
	"subtitlegen/internal/segmenter"
)

func TestPlanProducesCeilingSegmentCount(t *testing.T) {
	segments := segmenter.Plan(125, 60)
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments for 125s at 60s chunks, got %d", len(segments))
	}
	if segments[0].StartS != 0 || segments[0].DurationS != 60 {
		t.Fatalf("unexpected first segment: %+v", segments[0])
	}
	if segments[2].StartS != 120 || segments[2].DurationS != 5 {
		t.Fatalf("expected final segment truncated to 5s, got %+v", segments[2])
	}
}

func TestPlanExactMultipleHasNoTrailingShortSegment(t *testing.T) {
	segments := segmenter.Plan(120, 60)
	if len(segments) != 2 {
		t.Fatalf("expected exactly 2 segments, got %d", len(segments))
	}
	if segments[1].DurationS != 60 {
		t.Fatalf("expected full final segment, got %+v", segments[1])
	}
}

func TestPlanEmptyWhenInputsInvalid(t *testing.T) {
	if segments := segmenter.Plan(0, 60); segments != nil {
		t.Fatalf("expected nil segments for zero duration, got %+v", segments)
	}
	if segments := segmenter.Plan(60, 0); segments != nil {
		t.Fatalf("expected nil segments for zero chunk duration, got %+v", segments)
	}
}

func TestPriorByStartIndexesByRange(t *testing.T) {
	segments := []jobstore.Segment{
		{StartS: 0, DurationS: 60, Checksum: "abc"},
		{StartS: 60, DurationS: 60, Checksum: "def"},
	}
	index := segmenter.PriorByStart(segments)
	if len(index) != 2 {
		t.Fatalf("expected 2 indexed entries, got %d", len(index))
	}
}
