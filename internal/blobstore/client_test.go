package blobstore_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"subtitlegen/internal/backoff"
	"subtitlegen/internal/blobstore"
	"subtitlegen/internal/faults"
)

type fakeBlobServer struct {
	mu        sync.Mutex
	checksums map[string]string
	failCount int
}

func newFakeBlobServer() *fakeBlobServer {
	return &fakeBlobServer{checksums: map[string]string{}}
}

func (f *fakeBlobServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		f.mu.Lock()
		if f.failCount > 0 {
			f.failCount--
			f.mu.Unlock()
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		f.mu.Unlock()

		switch r.Method {
		case http.MethodPut:
			f.mu.Lock()
			f.checksums[path] = r.Header.Get("X-Content-Checksum")
			f.mu.Unlock()
			io.Copy(io.Discard, r.Body)
			w.WriteHeader(http.StatusCreated)
		case http.MethodHead:
			f.mu.Lock()
			checksum, ok := f.checksums[path]
			f.mu.Unlock()
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("X-Content-Checksum", checksum)
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			f.mu.Lock()
			for key := range f.checksums {
				if len(key) >= len(path) && key[:len(path)] == path {
					delete(f.checksums, key)
				}
			}
			f.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func testPolicy() backoff.Policy {
	p := backoff.Default()
	p.InitialDelay = time.Millisecond
	p.MaxDelay = 5 * time.Millisecond
	p.Jitter = false
	return p
}

func TestPutThenExists(t *testing.T) {
	server := newFakeBlobServer()
	srv := httptest.NewServer(server.handler())
	defer srv.Close()

	store := blobstore.New(srv.URL, time.Second, testPolicy(), 3)

	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("segment bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ctx := context.Background()
	if _, err := store.Put(ctx, "job-1", "segment-0", path); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	exists, err := store.Exists(ctx, "job-1", "segment-0")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Fatal("expected the blob to exist after Put")
	}
}

func TestPutIsIdempotentForSameContent(t *testing.T) {
	server := newFakeBlobServer()
	srv := httptest.NewServer(server.handler())
	defer srv.Close()

	store := blobstore.New(srv.URL, time.Second, testPolicy(), 3)

	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("segment bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ctx := context.Background()
	if _, err := store.Put(ctx, "job-1", "segment-0", path); err != nil {
		t.Fatalf("first Put failed: %v", err)
	}
	if _, err := store.Put(ctx, "job-1", "segment-0", path); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
}

func TestPutRetriesOnTransientFailure(t *testing.T) {
	server := newFakeBlobServer()
	server.failCount = 2
	srv := httptest.NewServer(server.handler())
	defer srv.Close()

	store := blobstore.New(srv.URL, time.Second, testPolicy(), 3)

	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("segment bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := store.Put(context.Background(), "job-1", "segment-0", path); err != nil {
		t.Fatalf("expected Put to succeed after retries, got %v", err)
	}
}

func TestDeletePrefixRemovesNamespace(t *testing.T) {
	server := newFakeBlobServer()
	srv := httptest.NewServer(server.handler())
	defer srv.Close()

	store := blobstore.New(srv.URL, time.Second, testPolicy(), 3)

	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("segment bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ctx := context.Background()
	if _, err := store.Put(ctx, "job-1", "segment-0", path); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.DeletePrefix(ctx, "job-1"); err != nil {
		t.Fatalf("DeletePrefix failed: %v", err)
	}
	exists, err := store.Exists(ctx, "job-1", "segment-0")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Fatal("expected the blob to be gone after DeletePrefix")
	}
}

func TestExistsReturnsFalseForMissingKey(t *testing.T) {
	server := newFakeBlobServer()
	srv := httptest.NewServer(server.handler())
	defer srv.Close()

	store := blobstore.New(srv.URL, time.Second, testPolicy(), 3)
	exists, err := store.Exists(context.Background(), "job-1", "missing")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Fatal("expected false for a missing key")
	}
}

func TestPutFailsFastOnAuthFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := blobstore.New(srv.URL, time.Second, testPolicy(), 3)

	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("segment bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, err := store.Put(context.Background(), "job-1", "segment-0", path)
	if err == nil {
		t.Fatal("expected an error for a 401 response")
	}
	if faults.KindOf(err) != faults.AuthFault {
		t.Fatalf("expected AuthFault, got %s", faults.KindOf(err))
	}
}

func TestPingSucceedsOnAnyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	store := blobstore.New(srv.URL, time.Second, testPolicy(), 0)
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestPingFailsWhenUnreachable(t *testing.T) {
	store := blobstore.New("http://127.0.0.1:1", time.Second, testPolicy(), 0)
	if err := store.Ping(context.Background()); err == nil {
		t.Fatal("expected an error for an unreachable endpoint")
	}
}
