// Package config loads, normalizes, and validates subtitlegen's
// configuration from a TOML file with environment variable overrides.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directories the pipeline reads from and writes to.
type Paths struct {
	TempDir                string `toml:"temp_dir" validate:"required"`
	OutputDir              string `toml:"output_dir" validate:"required"`
	JobStoreDir            string `toml:"job_store_dir" validate:"required"`
	PromptTemplateRegistry string `toml:"prompt_template_registry_dir" validate:"required"`
}

// Admission contains input-validation thresholds (C3).
type Admission struct {
	MaxVideoSizeBytes int64    `toml:"max_video_size_bytes" validate:"gt=0"`
	MaxDurationS      float64  `toml:"max_duration_s" validate:"gt=0"`
	AdmittedCodecs    []string `toml:"admitted_codecs"`
}

// Segmentation contains chunking/segmenter parameters (C4).
type Segmentation struct {
	ChunkDurationS     float64 `toml:"chunk_duration_s" validate:"gt=0"`
	MaxSegmentBytes    int64   `toml:"max_segment_bytes" validate:"gt=0"`
	ScratchBudgetBytes int64   `toml:"scratch_budget_bytes" validate:"gt=0"`
	SegmenterBinary    string  `toml:"segmenter_binary"`
}

// Upload contains blob-store adapter parameters (C5).
type Upload struct {
	Endpoint             string `toml:"endpoint" validate:"required"`
	MaxConcurrentUploads int    `toml:"max_concurrent_uploads" validate:"gt=0"`
	TimeoutS             int    `toml:"timeout_s" validate:"gt=0"`
	MaxRetries           int    `toml:"max_retries" validate:"gt=0"`
}

// Generation contains model-adapter parameters (C6).
type Generation struct {
	Endpoint                 string `toml:"endpoint" validate:"required"`
	MaxConcurrentGenerations int    `toml:"max_concurrent_generations" validate:"gt=0"`
	TimeoutS                 int    `toml:"timeout_s" validate:"gt=0"`
	MaxModelRetries          int    `toml:"max_model_retries" validate:"gt=0"`
	QuotaCooldownS           int    `toml:"quota_cooldown_s" validate:"gt=0"`
	ModelIdentifier          string `toml:"model_identifier" validate:"required"`
}

// Quality contains quality-gate thresholds (C9).
type Quality struct {
	MinCoverage         float64 `toml:"min_coverage" validate:"gte=0,lte=1"`
	MaxDensityCPS       float64 `toml:"max_density_cps" validate:"gt=0"`
	MaxCueDurationS     float64 `toml:"max_cue_duration_s" validate:"gt=0"`
	MinTranslationScore float64 `toml:"min_translation_quality" validate:"gte=0,lte=1"`
	MinCulturalScore    float64 `toml:"min_cultural_accuracy" validate:"gte=0,lte=1"`
	MaxAttempts         int     `toml:"max_attempts" validate:"gt=0"`
}

// Scheduling contains scheduler-wide bounds (C10, §5).
type Scheduling struct {
	MaxConcurrentJobs               int   `toml:"max_concurrent_jobs" validate:"gt=0"`
	MaxConcurrentSegmentExtractions int   `toml:"max_concurrent_segment_extractions" validate:"gt=0"`
	PollIntervalS                   int   `toml:"poll_interval_s" validate:"gt=0"`
	DiskReserveBytes                int64 `toml:"disk_reserve_bytes"`
}

// Cleanup contains reaper parameters (C11).
type Cleanup struct {
	RetentionS     int  `toml:"retention_s" validate:"gt=0"`
	SweepIntervalS int  `toml:"sweep_interval_s" validate:"gt=0"`
	KeepTemp       bool `toml:"keep_temp"`
}

// Logging mirrors the teacher's logging section.
type Logging struct {
	Format string `toml:"format" validate:"oneof=console json"`
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
}

// Notify contains optional push-notification settings.
type Notify struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
	TimeoutS int    `toml:"timeout_s" validate:"gt=0"`
}

// Config encapsulates all recognized configuration values (spec.md §6).
type Config struct {
	Paths        Paths        `toml:"paths"`
	Admission    Admission    `toml:"admission"`
	Segmentation Segmentation `toml:"segmentation"`
	Upload       Upload       `toml:"upload"`
	Generation   Generation   `toml:"generation"`
	Quality      Quality      `toml:"quality"`
	Scheduling   Scheduling   `toml:"scheduling"`
	Cleanup      Cleanup      `toml:"cleanup"`
	Logging      Logging      `toml:"logging"`
	Notify       Notify       `toml:"notify"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/subtitlegen/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The environment
// variables read by applyEnvOverrides (SUBTITLEGEN_ followed by the
// upper-cased field name, e.g. SUBTITLEGEN_MAX_ATTEMPTS) override the
// decoded value of their field; fields not listed there have no override.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	_, statErr := os.Stat(defaultPath)
	if statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return defaultPath, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", statErr)
	}
	return defaultPath, true, nil
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// EnsureDirectories creates the pipeline's working directories if absent.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.TempDir, c.Paths.OutputDir, c.Paths.JobStoreDir}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure directory %s: %w", dir, err)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString("SUBTITLEGEN_MODEL_IDENTIFIER", &cfg.Generation.ModelIdentifier)
	overrideString("SUBTITLEGEN_TEMP_DIR", &cfg.Paths.TempDir)
	overrideString("SUBTITLEGEN_OUTPUT_DIR", &cfg.Paths.OutputDir)
	overrideString("SUBTITLEGEN_JOB_STORE_DIR", &cfg.Paths.JobStoreDir)
	overrideString("SUBTITLEGEN_PROMPT_TEMPLATE_REGISTRY_DIR", &cfg.Paths.PromptTemplateRegistry)
	overrideString("SUBTITLEGEN_UPLOAD_ENDPOINT", &cfg.Upload.Endpoint)
	overrideString("SUBTITLEGEN_GENERATION_ENDPOINT", &cfg.Generation.Endpoint)
	overrideInt64("SUBTITLEGEN_MAX_VIDEO_SIZE_BYTES", &cfg.Admission.MaxVideoSizeBytes)
	overrideFloat("SUBTITLEGEN_MAX_DURATION_S", &cfg.Admission.MaxDurationS)
	if value, ok := os.LookupEnv("SUBTITLEGEN_ADMITTED_CODECS"); ok && strings.TrimSpace(value) != "" {
		codecs := strings.Split(value, ",")
		for i := range codecs {
			codecs[i] = strings.TrimSpace(codecs[i])
		}
		cfg.Admission.AdmittedCodecs = codecs
	}
	overrideFloat("SUBTITLEGEN_CHUNK_DURATION_S", &cfg.Segmentation.ChunkDurationS)
	overrideInt("SUBTITLEGEN_MAX_ATTEMPTS", &cfg.Quality.MaxAttempts)
	overrideInt("SUBTITLEGEN_MAX_CONCURRENT_JOBS", &cfg.Scheduling.MaxConcurrentJobs)
	overrideInt("SUBTITLEGEN_MAX_CONCURRENT_UPLOADS", &cfg.Upload.MaxConcurrentUploads)
	overrideInt("SUBTITLEGEN_MAX_CONCURRENT_GENERATIONS", &cfg.Generation.MaxConcurrentGenerations)
	overrideFloat("SUBTITLEGEN_MIN_COVERAGE", &cfg.Quality.MinCoverage)
	overrideFloat("SUBTITLEGEN_MAX_DENSITY_CPS", &cfg.Quality.MaxDensityCPS)
	overrideFloat("SUBTITLEGEN_MAX_CUE_DURATION_S", &cfg.Quality.MaxCueDurationS)
	overrideFloat("SUBTITLEGEN_MIN_TRANSLATION_QUALITY", &cfg.Quality.MinTranslationScore)
	overrideFloat("SUBTITLEGEN_MIN_CULTURAL_ACCURACY", &cfg.Quality.MinCulturalScore)
	overrideInt("SUBTITLEGEN_RETENTION_S", &cfg.Cleanup.RetentionS)
	overrideInt("SUBTITLEGEN_SWEEP_INTERVAL_S", &cfg.Cleanup.SweepIntervalS)
	overrideInt64("SUBTITLEGEN_DISK_RESERVE_BYTES", &cfg.Scheduling.DiskReserveBytes)
}

func overrideString(key string, dst *string) {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		*dst = value
	}
}

func overrideInt(key string, dst *int) {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			*dst = parsed
		}
	}
}

func overrideInt64(key string, dst *int64) {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			*dst = parsed
		}
	}
}

func overrideFloat(key string, dst *float64) {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			*dst = parsed
		}
	}
}
