package config

const (
	defaultTempDir         = "~/.local/share/subtitlegen/tmp"
	defaultOutputDir       = "~/subtitles"
	defaultJobStoreDir     = "~/.local/share/subtitlegen/jobs"
	defaultPromptRegistry  = "~/.config/subtitlegen/prompts"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultModelIdentifier = "subtitle-gen-1"
)

// Default returns a Config populated with repository defaults, mirroring
// spec.md §6's recognized options.
func Default() Config {
	return Config{
		Paths: Paths{
			TempDir:                defaultTempDir,
			OutputDir:              defaultOutputDir,
			JobStoreDir:            defaultJobStoreDir,
			PromptTemplateRegistry: defaultPromptRegistry,
		},
		Admission: Admission{
			MaxVideoSizeBytes: 10 * 1 << 30, // 10 GiB
			MaxDurationS:      12 * 3600,    // 12h
			AdmittedCodecs:    []string{"h264", "hevc", "vp9", "av1", "mpeg4", "mpeg2video"},
		},
		Segmentation: Segmentation{
			ChunkDurationS:     60,
			MaxSegmentBytes:    150 << 20, // 150 MiB
			ScratchBudgetBytes: 20 << 30,  // 20 GiB
			SegmenterBinary:    "ffmpeg",
		},
		Upload: Upload{
			Endpoint:             "http://127.0.0.1:9090/blobs",
			MaxConcurrentUploads: 3,
			TimeoutS:             300,
			MaxRetries:           5,
		},
		Generation: Generation{
			Endpoint:                 "http://127.0.0.1:9091",
			MaxConcurrentGenerations: 4,
			TimeoutS:                 120,
			MaxModelRetries:          3,
			QuotaCooldownS:           60,
			ModelIdentifier:          defaultModelIdentifier,
		},
		Quality: Quality{
			MinCoverage:         0.6,
			MaxDensityCPS:       25,
			MaxCueDurationS:     10,
			MinTranslationScore: 0.70,
			MinCulturalScore:    0.80,
			MaxAttempts:         3,
		},
		Scheduling: Scheduling{
			MaxConcurrentJobs:               3,
			MaxConcurrentSegmentExtractions: 1,
			PollIntervalS:                   5,
			DiskReserveBytes:                0,
		},
		Cleanup: Cleanup{
			RetentionS:     86400,
			SweepIntervalS: 300,
			KeepTemp:       false,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notify: Notify{
			Enabled:  false,
			TimeoutS: 10,
		},
	}
}
