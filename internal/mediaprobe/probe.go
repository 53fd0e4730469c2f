package mediaprobe

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"subtitlegen/internal/faults"
	"subtitlegen/internal/jobstore"
)

// Options configures admission thresholds, mirroring config.Admission so
// this package has no import-time dependency on internal/config.
type Options struct {
	Binary            string
	MaxVideoSizeBytes int64
	MaxDurationS      float64
	AdmittedCodecs    []string
}

// Probe inspects sourcePath with ffprobe and either returns the admitted
// media metadata or an *faults.Fault of kind InvalidInput describing why
// the file was rejected (spec.md §4.2).
func Probe(ctx context.Context, opts Options, sourcePath string) (jobstore.MediaInfo, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return jobstore.MediaInfo{}, faults.Wrap(faults.InvalidInput, "source file is not readable", err)
	}
	if info.IsDir() {
		return jobstore.MediaInfo{}, faults.New(faults.InvalidInput, "source path is a directory")
	}

	result, err := inspect(ctx, opts.Binary, sourcePath)
	if err != nil {
		return jobstore.MediaInfo{}, faults.Wrap(faults.InvalidInput, "ffprobe failed to inspect the source file", err)
	}

	video, hasVideo := result.videoStream()
	if !hasVideo {
		return jobstore.MediaInfo{}, faults.New(faults.InvalidInput, "source file has no video stream")
	}
	if !result.hasAudio() {
		return jobstore.MediaInfo{}, faults.New(faults.InvalidInput, "source file has no audio stream; generation has no fallback without audio")
	}

	duration := result.durationSeconds()
	if duration <= 0 {
		return jobstore.MediaInfo{}, faults.New(faults.InvalidInput, "source file reports zero or negative duration")
	}
	if opts.MaxDurationS > 0 && duration > opts.MaxDurationS {
		return jobstore.MediaInfo{}, faults.New(faults.InvalidInput,
			fmt.Sprintf("duration %.0fs exceeds the configured ceiling of %.0fs", duration, opts.MaxDurationS))
	}

	sizeBytes := result.sizeBytes()
	if sizeBytes == 0 {
		sizeBytes = info.Size()
	}
	if opts.MaxVideoSizeBytes > 0 && sizeBytes > opts.MaxVideoSizeBytes {
		return jobstore.MediaInfo{}, faults.New(faults.InvalidInput,
			fmt.Sprintf("size %d bytes exceeds the configured ceiling of %d bytes", sizeBytes, opts.MaxVideoSizeBytes))
	}

	codec := strings.ToLower(video.CodecName)
	if len(opts.AdmittedCodecs) > 0 && !slices.ContainsFunc(opts.AdmittedCodecs, func(c string) bool {
		return strings.EqualFold(c, codec)
	}) {
		return jobstore.MediaInfo{}, faults.New(faults.InvalidInput,
			fmt.Sprintf("codec %q is not in the admitted codec set", codec))
	}

	return jobstore.MediaInfo{
		DurationS: duration,
		Width:     video.Width,
		Height:    video.Height,
		FrameRate: video.frameRate(),
		HasAudio:  true,
		Codec:     codec,
		SizeBytes: sizeBytes,
	}, nil
}
