package segmenter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"

	"subtitlegen/internal/faults"
	"subtitlegen/internal/jobstore"
)

// Options configures the segmenter, mirroring config.Segmentation.
type Options struct {
	Binary             string
	ChunkDurationS     float64
	MaxSegmentBytes    int64
	ScratchBudgetBytes int64
}

// minSplitDurationS is the floor below which the segmenter stops halving
// an oversized range and accepts it as-is; splitting below this point
// would produce sub-clips too short to be useful generation units.
const minSplitDurationS = 1.0

// Plan computes the segment boundaries for a media duration, per
// spec.md §4.3: ceil(duration/chunk_duration) segments, the last one
// truncated to whatever remains.
func Plan(mediaDurationS, chunkDurationS float64) []jobstore.Segment {
	if chunkDurationS <= 0 || mediaDurationS <= 0 {
		return nil
	}
	count := int(math.Ceil(mediaDurationS / chunkDurationS))
	segments := make([]jobstore.Segment, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * chunkDurationS
		duration := math.Min(chunkDurationS, mediaDurationS-start)
		segments = append(segments, jobstore.Segment{Index: i, StartS: start, DurationS: duration})
	}
	return segments
}

// Run extracts every planned segment into scratchDir, skipping any range
// whose prior output already exists with a matching checksum, and halving
// the duration of any range whose output exceeds MaxSegmentBytes. It
// returns the final, re-indexed segment list.
func Run(ctx context.Context, opts Options, sourcePath, scratchDir string, planned []jobstore.Segment, priorByStart map[string]jobstore.Segment) ([]jobstore.Segment, error) {
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure scratch dir: %w", err)
	}

	lock := flock.New(filepath.Join(scratchDir, ".lock"))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("lock scratch dir: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	var out []jobstore.Segment
	var totalBytes int64

	for _, seg := range planned {
		produced, err := extractRange(ctx, opts, sourcePath, scratchDir, seg.StartS, seg.DurationS, priorByStart)
		if err != nil {
			return nil, err
		}
		for _, p := range produced {
			totalBytes += p.SizeBytes
		}
		if opts.ScratchBudgetBytes > 0 && totalBytes > opts.ScratchBudgetBytes {
			return nil, faults.New(faults.DiskExhausted, "segmentation exceeded the configured scratch budget")
		}
		out = append(out, produced...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].StartS < out[j].StartS })
	for i := range out {
		out[i].Index = i
	}
	return out, nil
}

// extractRange produces one or more segments covering [start, start+duration).
// It recurses with halved duration when the extracted output is larger than
// MaxSegmentBytes, per spec.md §4.3's chunk-size-adaptation rule.
func extractRange(ctx context.Context, opts Options, sourcePath, scratchDir string, start, duration float64, priorByStart map[string]jobstore.Segment) ([]jobstore.Segment, error) {
	key := rangeKey(start, duration)
	outPath := filepath.Join(scratchDir, key+".mp4")

	if prior, ok := priorByStart[key]; ok && prior.Checksum != "" {
		if checksum, size, err := checksumFile(outPath); err == nil && checksum == prior.Checksum {
			return []jobstore.Segment{{StartS: start, DurationS: duration, LocalPath: outPath, Checksum: checksum, SizeBytes: size}}, nil
		}
	}
	// Stale or missing output: remove whatever is there and re-extract.
	_ = os.Remove(outPath)

	if err := extractOne(ctx, opts, sourcePath, outPath, start, duration); err != nil {
		return nil, err
	}
	checksum, size, err := checksumFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("checksum segment %s: %w", key, err)
	}

	if opts.MaxSegmentBytes > 0 && size > opts.MaxSegmentBytes && duration > minSplitDurationS*2 {
		_ = os.Remove(outPath)
		half := duration / 2
		left, err := extractRange(ctx, opts, sourcePath, scratchDir, start, half, priorByStart)
		if err != nil {
			return nil, err
		}
		right, err := extractRange(ctx, opts, sourcePath, scratchDir, start+half, duration-half, priorByStart)
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil
	}

	return []jobstore.Segment{{StartS: start, DurationS: duration, LocalPath: outPath, Checksum: checksum, SizeBytes: size}}, nil
}

func extractOne(ctx context.Context, opts Options, sourcePath, outPath string, start, duration float64) error {
	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", start),
		"-i", sourcePath,
		"-t", fmt.Sprintf("%.3f", duration),
		"-c", "copy",
		outPath,
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return faults.Wrap(faults.TransientIO, "segmenter tool failed", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output))))
	}
	return nil
}

func checksumFile(path string) (checksum string, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	hasher := sha256.New()
	written, err := io.Copy(hasher, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(hasher.Sum(nil)), written, nil
}

// rangeKey is the stable filename fragment for a (start, duration) range,
// stable across attempts so resumability checks find the same file.
func rangeKey(start, duration float64) string {
	return fmt.Sprintf("seg_%012d_%012d", int64(math.Round(start*1000)), int64(math.Round(duration*1000)))
}

// PriorByStart indexes a job's recorded segments by range key so Run can
// recognize output left over from a prior, possibly crashed, attempt.
func PriorByStart(segments []jobstore.Segment) map[string]jobstore.Segment {
	index := make(map[string]jobstore.Segment, len(segments))
	for _, seg := range segments {
		index[rangeKey(seg.StartS, seg.DurationS)] = seg
	}
	return index
}
