package mediaprobe_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"subtitlegen/internal/faults"
	"subtitlegen/internal/mediaprobe"
)

func TestProbeRejectsMissingFile(t *testing.T) {
	_, err := mediaprobe.Probe(context.Background(), mediaprobe.Options{}, "/nonexistent/does-not-exist.mp4")
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if faults.KindOf(err) != faults.InvalidInput {
		t.Fatalf("expected InvalidInput, got %s", faults.KindOf(err))
	}
}

func TestProbeRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := mediaprobe.Probe(context.Background(), mediaprobe.Options{}, dir)
	if faults.KindOf(err) != faults.InvalidInput {
		t.Fatalf("expected InvalidInput for a directory path, got %v", err)
	}
}

func TestProbePropagatesFfprobeFailureAsInvalidInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-a-video.mp4")
	if err := os.WriteFile(path, []byte("not a real video"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	_, err := mediaprobe.Probe(context.Background(), mediaprobe.Options{Binary: "ffprobe"}, path)
	if err == nil {
		t.Fatal("expected an error for a non-media file")
	}
	if faults.KindOf(err) != faults.InvalidInput {
		t.Fatalf("expected InvalidInput, got %s", faults.KindOf(err))
	}
	var fault *faults.Fault
	if !errors.As(err, &fault) {
		t.Fatal("expected a *faults.Fault")
	}
}
