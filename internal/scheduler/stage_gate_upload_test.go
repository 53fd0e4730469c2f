package scheduler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"subtitlegen/internal/backoff"
	"subtitlegen/internal/blobstore"
	"subtitlegen/internal/cueio"
	"subtitlegen/internal/jobstore"
	"subtitlegen/internal/qualitygate"
)

func backoffTestPolicy() backoff.Policy {
	p := backoff.Default()
	p.InitialDelay = time.Millisecond
	p.MaxDelay = 5 * time.Millisecond
	p.Jitter = false
	return p
}

func TestRunGateAcceptsCueSequenceAboveThresholds(t *testing.T) {
	cfg := testConfigForStages(t)
	cfg.Quality.MinCoverage = 0
	cfg.Quality.MaxDensityCPS = 0
	r := &JobRunner{cfg: cfg}

	job := jobWithOneTarget("job-gate-accept")
	job.Media.DurationS = 1
	target := job.Targets[0]

	cuesPath := filepath.Join(t.TempDir(), "merged.json")
	cues := []cueio.Cue{{Start: 0, End: time.Second, Text: []string{"hello"}}}
	if err := cueio.SaveJSON(cuesPath, cues); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}
	job.MergedResults[target.Key()] = jobstore.CueSetRef{Path: cuesPath, CueCount: 1}

	if err := r.runGate(context.Background(), job); err != nil {
		t.Fatalf("runGate failed: %v", err)
	}
	if job.Stage != jobstore.StageQualityChecked {
		t.Fatalf("expected StageQualityChecked, got %s", job.Stage)
	}
	if !job.AcceptedTargets[target.Key()] {
		t.Fatal("expected the target to be accepted")
	}
	if verdict := job.GateVerdicts[target.Key()]; verdict.Disposition != string(qualitygate.Accept) {
		t.Fatalf("expected a recorded accept verdict, got %+v", verdict)
	}
}

func TestRunGateRewindsJobOnRetryableQualityFault(t *testing.T) {
	cfg := testConfigForStages(t)
	cfg.Quality.MinCoverage = 0.99
	cfg.Quality.MaxAttempts = 3
	r := &JobRunner{cfg: cfg}

	job := jobWithOneTarget("job-gate-retry")
	job.Media.DurationS = 100
	target := job.Targets[0]

	seg := jobstore.Segment{Index: 0, StartS: 0, DurationS: 1}
	job.Segments = []jobstore.Segment{seg}
	unitKey := jobstore.MakeUnitKey(seg.Index, target.Language, target.Mode)
	job.PerChunkResults[unitKey] = jobstore.CueSetRef{Path: "unused"}

	cuesPath := filepath.Join(t.TempDir(), "merged.json")
	cues := []cueio.Cue{{Start: 0, End: time.Second, Text: []string{"hi"}}}
	if err := cueio.SaveJSON(cuesPath, cues); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}
	job.MergedResults[target.Key()] = jobstore.CueSetRef{Path: cuesPath, CueCount: 1}

	if err := r.runGate(context.Background(), job); err != nil {
		t.Fatalf("runGate failed: %v", err)
	}
	if job.Stage != jobstore.StageUploaded {
		t.Fatalf("expected the job to rewind to StageUploaded, got %s", job.Stage)
	}
	if _, ok := job.PerChunkResults[unitKey]; ok {
		t.Fatal("expected the target's per-chunk results to be cleared on retry")
	}
	if _, ok := job.MergedResults[target.Key()]; ok {
		t.Fatal("expected the target's merged result to be cleared on retry")
	}
	if job.Attempts(gateAttemptKey(target)) != 1 {
		t.Fatalf("expected one gate attempt to be recorded, got %d", job.Attempts(gateAttemptKey(target)))
	}
}

func TestRunGateFailsOnStructuralFault(t *testing.T) {
	cfg := testConfigForStages(t)
	r := &JobRunner{cfg: cfg}

	job := jobWithOneTarget("job-gate-fail")
	job.Media.DurationS = 1
	target := job.Targets[0]

	cuesPath := filepath.Join(t.TempDir(), "merged.json")
	// An empty cue is a structural fault, never retry-eligible.
	cues := []cueio.Cue{{Start: 0, End: time.Second, Text: []string{"   "}}}
	if err := cueio.SaveJSON(cuesPath, cues); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}
	job.MergedResults[target.Key()] = jobstore.CueSetRef{Path: cuesPath, CueCount: 1}

	if err := r.runGate(context.Background(), job); err == nil {
		t.Fatal("expected an error for a structural fault")
	}
}

func testBlobServer(t *testing.T) (*httptest.Server, *blobstore.Store) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			io.Copy(io.Discard, r.Body)
			w.WriteHeader(http.StatusCreated)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	policy := backoffTestPolicy()
	store := blobstore.New(srv.URL, time.Second, policy, 2)
	return srv, store
}

func TestRunUploadMarksAllSegmentsUploaded(t *testing.T) {
	_, blobs := testBlobServer(t)
	cfg := testConfigForStages(t)
	r := &JobRunner{cfg: cfg, blobs: blobs, uploadSem: newSemaphore(cfg.Upload.MaxConcurrentUploads)}

	job := jobWithOneTarget("job-upload")
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		path := filepath.Join(dir, "seg.mp4")
		if err := os.WriteFile(path, []byte("bytes"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
		job.Segments = append(job.Segments, jobstore.Segment{Index: i, LocalPath: path})
	}

	if err := r.runUpload(context.Background(), job); err != nil {
		t.Fatalf("runUpload failed: %v", err)
	}
	if job.Stage != jobstore.StageUploaded {
		t.Fatalf("expected StageUploaded, got %s", job.Stage)
	}
	for _, seg := range job.Segments {
		if !seg.Uploaded {
			t.Fatalf("expected segment %d to be marked uploaded", seg.Index)
		}
		if seg.BlobKey == "" {
			t.Fatalf("expected segment %d to have a blob key", seg.Index)
		}
	}
}

func TestRunUploadSkipsAlreadyUploadedSegments(t *testing.T) {
	cfg := testConfigForStages(t)
	r := &JobRunner{cfg: cfg, uploadSem: newSemaphore(1)}

	job := jobWithOneTarget("job-upload-skip")
	job.Segments = []jobstore.Segment{{Index: 0, Uploaded: true, BlobKey: "already-there"}}

	if err := r.runUpload(context.Background(), job); err != nil {
		t.Fatalf("runUpload failed: %v", err)
	}
	if job.Stage != jobstore.StageUploaded {
		t.Fatalf("expected StageUploaded, got %s", job.Stage)
	}
}

func TestRunUploadFailsFastWhenBlobPutErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := testConfigForStages(t)
	blobs := blobstore.New(srv.URL, time.Second, backoffTestPolicy(), 1)
	r := &JobRunner{cfg: cfg, blobs: blobs, uploadSem: newSemaphore(2)}

	job := jobWithOneTarget("job-upload-fail")
	dir := t.TempDir()
	path := filepath.Join(dir, "seg.mp4")
	if err := os.WriteFile(path, []byte("bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	job.Segments = []jobstore.Segment{{Index: 0, LocalPath: path}}

	if err := r.runUpload(context.Background(), job); err == nil {
		t.Fatal("expected an error when the blob store rejects the upload")
	}
	if job.Stage == jobstore.StageUploaded {
		t.Fatal("expected the job to remain at the prior stage on failure")
	}
}
