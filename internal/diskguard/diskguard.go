package diskguard

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Result reports the outcome of a free-space check against a path's
// filesystem.
type Result struct {
	Path          string
	FreeBytes     uint64
	RequiredBytes uint64
	OK            bool
	Detail        string
}

// Check reports whether path's filesystem has at least requiredBytes
// free. requiredBytes is the caller's DISK_RESERVE figure — by
// convention twice the estimated remaining segment bytes for a
// segmenter run, or a fixed floor for job admission (spec.md §5).
func Check(path string, requiredBytes uint64) (Result, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{}, fmt.Errorf("statfs %s: %w", path, err)
	}
	free := stat.Bavail * uint64(stat.Bsize)
	result := Result{Path: path, FreeBytes: free, RequiredBytes: requiredBytes, OK: free >= requiredBytes}
	if !result.OK {
		result.Detail = fmt.Sprintf("%s has %d bytes free, need %d", path, free, requiredBytes)
	}
	return result, nil
}

// EstimateSegmentReserve computes the default DISK_RESERVE figure for a
// segmenter run: twice the estimated bytes the remaining segments will
// occupy, assuming uniform size across segments already produced.
func EstimateSegmentReserve(bytesPerSegmentSoFar float64, remainingSegments int) uint64 {
	if bytesPerSegmentSoFar <= 0 || remainingSegments <= 0 {
		return 0
	}
	return uint64(2 * bytesPerSegmentSoFar * float64(remainingSegments))
}
