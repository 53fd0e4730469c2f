package scheduler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"subtitlegen/internal/jobstore"
	"subtitlegen/internal/langtag"
	"subtitlegen/internal/modeladapter"
)

func testRegistry(t *testing.T) *modeladapter.Registry {
	t.Helper()
	return modeladapter.NewRegistry([]modeladapter.Template{
		{Language: "en", Mode: langtag.ModeStandard, Text: "translate: {{segment}}", Version: "v1"},
	})
}

func TestRunGenerateProducesResultsForEverySegmentTargetPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"cue_text": "00:00:00,000 --> 00:00:01,000\nhello\n"})
	}))
	defer srv.Close()

	cfg := testConfigForStages(t)
	cfg.Generation.Endpoint = srv.URL
	cfg.Generation.TimeoutS = 5
	cfg.Generation.MaxModelRetries = 0

	r := &JobRunner{
		cfg:      cfg,
		genSem:   newSemaphore(4),
		registry: testRegistry(t),
	}

	job := jobWithOneTarget("job-generate")
	job.Segments = []jobstore.Segment{
		{Index: 0, Checksum: "chk-0", BlobKey: "blob-0"},
		{Index: 1, Checksum: "chk-1", BlobKey: "blob-1"},
	}

	if err := r.runGenerate(context.Background(), job); err != nil {
		t.Fatalf("runGenerate failed: %v", err)
	}
	if job.Stage != jobstore.StageGenerated {
		t.Fatalf("expected StageGenerated, got %s", job.Stage)
	}
	if len(job.PerChunkResults) != 2 {
		t.Fatalf("expected 2 per-chunk results, got %d", len(job.PerChunkResults))
	}
}

func TestRunGenerateSkipsUnitsAlreadyInPerChunkResults(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"cue_text": "00:00:00,000 --> 00:00:01,000\nhello\n"})
	}))
	defer srv.Close()

	cfg := testConfigForStages(t)
	cfg.Generation.Endpoint = srv.URL
	cfg.Generation.TimeoutS = 5

	r := &JobRunner{
		cfg:      cfg,
		genSem:   newSemaphore(4),
		registry: testRegistry(t),
	}

	job := jobWithOneTarget("job-generate-skip")
	job.Segments = []jobstore.Segment{{Index: 0, Checksum: "chk-0", BlobKey: "blob-0"}}
	target := job.Targets[0]
	key := jobstore.MakeUnitKey(0, target.Language, target.Mode)
	job.PerChunkResults[key] = jobstore.CueSetRef{Path: "already-done"}

	if err := r.runGenerate(context.Background(), job); err != nil {
		t.Fatalf("runGenerate failed: %v", err)
	}
	if job.Stage != jobstore.StageGenerated {
		t.Fatalf("expected StageGenerated, got %s", job.Stage)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no model calls for an already-completed unit, got %d", calls.Load())
	}
}

func TestRunGenerateFailsWhenNoTemplateRegistered(t *testing.T) {
	cfg := testConfigForStages(t)
	cfg.Generation.Endpoint = "http://127.0.0.1:0"
	cfg.Generation.TimeoutS = 5

	r := &JobRunner{
		cfg:      cfg,
		genSem:   newSemaphore(4),
		registry: modeladapter.NewRegistry(nil),
	}

	job := jobWithOneTarget("job-generate-missing-template")
	job.Segments = []jobstore.Segment{{Index: 0, Checksum: "chk-0", BlobKey: "blob-0"}}

	if err := r.runGenerate(context.Background(), job); err == nil {
		t.Fatal("expected an error when no prompt template is registered for the target")
	}
	if job.Stage == jobstore.StageGenerated {
		t.Fatal("expected the job to remain short of StageGenerated on failure")
	}
}

func TestRunGenerateRetriesOnInvalidModelOutputUpToMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"cue_text": "not a valid cue block"})
	}))
	defer srv.Close()

	cfg := testConfigForStages(t)
	cfg.Generation.Endpoint = srv.URL
	cfg.Generation.TimeoutS = 5
	cfg.Quality.MaxAttempts = 2

	r := &JobRunner{
		cfg:      cfg,
		genSem:   newSemaphore(4),
		registry: testRegistry(t),
	}

	job := jobWithOneTarget("job-generate-invalid")
	job.Segments = []jobstore.Segment{{Index: 0, Checksum: "chk-0", BlobKey: "blob-0"}}

	if err := r.runGenerate(context.Background(), job); err == nil {
		t.Fatal("expected an error once max attempts is exhausted on invalid model output")
	}
	if calls.Load() != 2 {
		t.Fatalf("expected exactly quality.max_attempts=2 model calls, got %d", calls.Load())
	}
}
