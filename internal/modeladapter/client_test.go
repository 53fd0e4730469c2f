package modeladapter_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"subtitlegen/internal/backoff"
	"subtitlegen/internal/faults"
	"subtitlegen/internal/langtag"
	"subtitlegen/internal/modeladapter"
)

func testPolicy() backoff.Policy {
	p := backoff.Default()
	p.InitialDelay = time.Millisecond
	p.MaxDelay = 5 * time.Millisecond
	p.Jitter = false
	return p
}

func testRegistry() *modeladapter.Registry {
	return modeladapter.NewRegistry([]modeladapter.Template{
		{Language: "en", Mode: langtag.ModeStandard, Text: "translate to english", Version: "v1"},
	})
}

func TestGenerateReturnsCueText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"cue_text": "1\n00:00:00,000 --> 00:00:02,000\nhello\n"})
	}))
	defer srv.Close()

	client := modeladapter.New(srv.URL, "model-1", time.Second, testPolicy(), 3, testRegistry())
	cueText, err := client.Generate(context.Background(), "blob://segment-0", "en", langtag.ModeStandard, "fp-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if cueText == "" {
		t.Fatal("expected non-empty cue text")
	}
}

func TestGenerateClassifiesQuotaExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := modeladapter.New(srv.URL, "model-1", time.Second, testPolicy(), 0, testRegistry())
	_, err := client.Generate(context.Background(), "blob://segment-0", "en", langtag.ModeStandard, "fp-2")
	if faults.KindOf(err) != faults.QuotaExceeded {
		t.Fatalf("expected QuotaExceeded, got %v", err)
	}
}

func TestGenerateRejectsMissingTemplate(t *testing.T) {
	client := modeladapter.New("http://example.invalid", "model-1", time.Second, testPolicy(), 1, modeladapter.NewRegistry(nil))
	_, err := client.Generate(context.Background(), "blob://segment-0", "es", langtag.ModeStandard, "fp-3")
	if faults.KindOf(err) != faults.InvalidInput {
		t.Fatalf("expected InvalidInput for a missing template, got %v", err)
	}
}

func TestGenerateDedupsConcurrentCallsByFingerprint(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]string{"cue_text": "cue"})
	}))
	defer srv.Close()

	client := modeladapter.New(srv.URL, "model-1", time.Second, testPolicy(), 1, testRegistry())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Generate(context.Background(), "blob://segment-0", "en", langtag.ModeStandard, "shared-fp")
			if err != nil {
				t.Errorf("Generate failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly 1 upstream call for 5 concurrent requests sharing a fingerprint, got %d", got)
	}
}

// TestGenerateIssuesAFreshCallOnEachSequentialRequest guards against a
// persistent memo reappearing: a quality-gate retry reaches Generate
// again with the same fingerprint (the fingerprint carries no attempt
// counter), and that second call must reach the model endpoint rather
// than replay a cached, already-rejected answer.
func TestGenerateIssuesAFreshCallOnEachSequentialRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(map[string]string{"cue_text": "cue"})
	}))
	defer srv.Close()

	client := modeladapter.New(srv.URL, "model-1", time.Second, testPolicy(), 1, testRegistry())
	ctx := context.Background()

	if _, err := client.Generate(ctx, "blob://segment-0", "en", langtag.ModeStandard, "retry-fp"); err != nil {
		t.Fatalf("first Generate failed: %v", err)
	}
	if _, err := client.Generate(ctx, "blob://segment-0", "en", langtag.ModeStandard, "retry-fp"); err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 upstream calls for 2 sequential requests sharing a fingerprint, got %d", got)
	}
}
