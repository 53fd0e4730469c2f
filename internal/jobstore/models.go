package jobstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"subtitlegen/internal/faults"
	"subtitlegen/internal/langtag"
)

// schemaVersion guards the on-disk JobState format. A record written with a
// newer version than this binary understands is a fatal error for that job,
// per the data-model note in spec.md §6.
const schemaVersion = 1

// Stage is a node in the job's state machine (spec.md §4.10).
type Stage string

const (
	StageNew            Stage = "new"
	StageValidated      Stage = "validated"
	StageSegmented      Stage = "segmented"
	StageUploaded       Stage = "uploaded"
	StageGenerated      Stage = "generated"
	StageMerged         Stage = "merged"
	StageQualityChecked Stage = "quality_checked"
	StageEmitted        Stage = "emitted"
	StageCompleted      Stage = "completed"
	StageFailed         Stage = "failed"
	StageAbandoned      Stage = "abandoned"
)

// Terminal reports whether a stage has no further transitions.
func (s Stage) Terminal() bool {
	switch s {
	case StageCompleted, StageFailed, StageAbandoned:
		return true
	default:
		return false
	}
}

// MediaInfo is the admission-check result recorded against the job once
// probing succeeds (spec.md §4.2).
type MediaInfo struct {
	DurationS float64 `json:"duration_s"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FrameRate float64 `json:"frame_rate"`
	HasAudio  bool    `json:"has_audio"`
	Codec     string  `json:"codec"`
	SizeBytes int64   `json:"size_bytes"`
}

// Segment is one fixed-interval sub-clip of the source video (spec.md §4.3).
type Segment struct {
	Index     int     `json:"index"`
	StartS    float64 `json:"start_s"`
	DurationS float64 `json:"duration_s"`
	LocalPath string  `json:"local_path,omitempty"`
	BlobKey   string  `json:"blob_key,omitempty"`
	Checksum  string  `json:"checksum"`
	SizeBytes int64   `json:"size_bytes"`
	Uploaded  bool    `json:"uploaded"`
}

// UnitKey identifies one (segment, language, mode) unit of generation work,
// the granularity at which attempt budgets, fingerprints and per-chunk
// results are tracked (spec.md §4.5, §4.9).
type UnitKey string

// MakeUnitKey builds the canonical key for a unit of work. Keys sort
// lexically by segment index only when indexes share digit width, which is
// fine here: the key is used for map lookups, never for ordering.
func MakeUnitKey(segmentIndex int, language string, mode langtag.Mode) UnitKey {
	return UnitKey(fmt.Sprintf("%d|%s|%s", segmentIndex, language, mode))
}

// Parse decomposes a UnitKey back into its components.
func (k UnitKey) Parse() (segmentIndex int, language string, mode langtag.Mode, err error) {
	parts := strings.SplitN(string(k), "|", 3)
	if len(parts) != 3 {
		return 0, "", "", fmt.Errorf("malformed unit key %q", k)
	}
	idx, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", "", fmt.Errorf("malformed unit key %q: %w", k, err)
	}
	return idx, parts[1], langtag.Mode(parts[2]), nil
}

// CueSetRef points at a persisted, offset-corrected cue sequence for one
// unit of work rather than embedding potentially large cue data inline in
// the job record (spec.md §3 "per_chunk_results").
type CueSetRef struct {
	Path        string `json:"path"`
	CueCount    int    `json:"cue_count"`
	Fingerprint string `json:"fingerprint"`
}

// OutputPaths records where the merged, emitted subtitle files for one
// target landed once a job reaches Emitted/Completed.
type OutputPaths struct {
	SRTPath string `json:"srt_path,omitempty"`
	VTTPath string `json:"vtt_path,omitempty"`
}

// GateSummary is the quality gate's last verdict for one target, carried
// forward from runGate to runEmit so the per-job info.txt summary can
// report a verdict and score per language without re-evaluating the
// gate at emit time.
type GateSummary struct {
	Disposition      string  `json:"disposition"`
	CoverageFraction float64 `json:"coverage_fraction"`
	MeanDensityCPS   float64 `json:"mean_density_cps"`
	TranslationScore float64 `json:"translation_score,omitempty"`
	CulturalScore    float64 `json:"cultural_score,omitempty"`
}

// JobState is the full durable record for one subtitle-generation job
// (spec.md §3 "Data Model"). It is the unit that jobstore persists.
type JobState struct {
	SchemaVersion int    `json:"schema_version"`
	ID            string `json:"id"`
	SourcePath    string `json:"source_path"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Targets        []langtag.Target `json:"targets"`
	SourceLanguage string           `json:"source_language,omitempty"`
	Stage          Stage            `json:"stage"`

	AttemptCounts map[UnitKey]int `json:"attempt_counts"`

	Media    MediaInfo `json:"media"`
	Segments []Segment `json:"segments"`

	PerChunkResults map[UnitKey]CueSetRef  `json:"per_chunk_results"`
	MergedResults   map[string]CueSetRef   `json:"merged_results,omitempty"`
	AcceptedTargets map[string]bool        `json:"accepted_targets,omitempty"`
	GateVerdicts    map[string]GateSummary `json:"gate_verdicts,omitempty"`
	Outputs         map[string]OutputPaths `json:"outputs"`

	LastError      *faults.Record `json:"last_error,omitempty"`
	CleanupPending bool           `json:"cleanup_pending,omitempty"`

	ReservedBlobNamespace string `json:"reserved_blob_namespace"`
}

// NewJobState builds a fresh New-stage job record. id should come from
// clockid.Generator.NewJobID. sourceLanguage may be empty when the
// caller doesn't know the source audio's language; the quality gate then
// skips linguistic scoring for every target.
func NewJobState(id, sourcePath string, targets []langtag.Target, sourceLanguage string, now time.Time) *JobState {
	return &JobState{
		SchemaVersion:         schemaVersion,
		ID:                    id,
		SourcePath:            sourcePath,
		CreatedAt:             now,
		UpdatedAt:             now,
		Targets:               targets,
		SourceLanguage:        sourceLanguage,
		Stage:                 StageNew,
		AttemptCounts:         map[UnitKey]int{},
		PerChunkResults:       map[UnitKey]CueSetRef{},
		MergedResults:         map[string]CueSetRef{},
		AcceptedTargets:       map[string]bool{},
		GateVerdicts:          map[string]GateSummary{},
		Outputs:               map[string]OutputPaths{},
		ReservedBlobNamespace: "job-" + id,
	}
}

// Touch advances UpdatedAt; callers invoke this before every Save.
func (j *JobState) Touch(now time.Time) {
	j.UpdatedAt = now
}

// Attempts returns the attempts already consumed for a unit of work.
func (j *JobState) Attempts(key UnitKey) int {
	return j.AttemptCounts[key]
}

// IncrementAttempts consumes one attempt for a unit of work and returns the
// new count.
func (j *JobState) IncrementAttempts(key UnitKey) int {
	if j.AttemptCounts == nil {
		j.AttemptCounts = map[UnitKey]int{}
	}
	j.AttemptCounts[key]++
	return j.AttemptCounts[key]
}

// Clone returns a deep-enough copy for callers that mutate a working copy
// before Save; slices and maps are copied, nested pointers (LastError) are
// shared since they are treated as immutable once constructed.
func (j *JobState) Clone() *JobState {
	clone := *j
	clone.Targets = append([]langtag.Target(nil), j.Targets...)
	clone.Segments = append([]Segment(nil), j.Segments...)
	clone.AttemptCounts = make(map[UnitKey]int, len(j.AttemptCounts))
	for k, v := range j.AttemptCounts {
		clone.AttemptCounts[k] = v
	}
	clone.PerChunkResults = make(map[UnitKey]CueSetRef, len(j.PerChunkResults))
	for k, v := range j.PerChunkResults {
		clone.PerChunkResults[k] = v
	}
	clone.MergedResults = make(map[string]CueSetRef, len(j.MergedResults))
	for k, v := range j.MergedResults {
		clone.MergedResults[k] = v
	}
	clone.AcceptedTargets = make(map[string]bool, len(j.AcceptedTargets))
	for k, v := range j.AcceptedTargets {
		clone.AcceptedTargets[k] = v
	}
	clone.GateVerdicts = make(map[string]GateSummary, len(j.GateVerdicts))
	for k, v := range j.GateVerdicts {
		clone.GateVerdicts[k] = v
	}
	clone.Outputs = make(map[string]OutputPaths, len(j.Outputs))
	for k, v := range j.Outputs {
		clone.Outputs[k] = v
	}
	return &clone
}
