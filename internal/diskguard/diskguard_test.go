package diskguard_test

import (
	"testing"

	"subtitlegen/internal/diskguard"
)

func TestCheckReportsFreeSpaceAgainstRealFilesystem(t *testing.T) {
	result, err := diskguard.Check("/tmp", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Fatalf("expected /tmp to have at least 1 byte free, got %+v", result)
	}
}

func TestCheckFailsWhenRequirementExceedsFreeSpace(t *testing.T) {
	result, err := diskguard.Check("/tmp", 1<<62)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK {
		t.Fatal("expected an impossibly large requirement to fail")
	}
	if result.Detail == "" {
		t.Fatal("expected a detail message on failure")
	}
}

func TestEstimateSegmentReserveDoublesAverage(t *testing.T) {
	reserve := diskguard.EstimateSegmentReserve(1000, 3)
	if reserve != 6000 {
		t.Fatalf("expected 6000, got %d", reserve)
	}
}

func TestEstimateSegmentReserveZeroWhenNoData(t *testing.T) {
	if diskguard.EstimateSegmentReserve(0, 3) != 0 {
		t.Fatal("expected zero reserve with no prior segment data")
	}
}
