package scheduler

import (
	"context"
	"testing"

	"subtitlegen/internal/config"
	"subtitlegen/internal/jobstore"
)

func TestRunValidateRejectsDirectorySource(t *testing.T) {
	cfg := config.Default()
	r := &JobRunner{cfg: &cfg}

	job := jobWithOneTarget("job-validate-dir")
	job.SourcePath = t.TempDir()

	if err := r.runValidate(context.Background(), job); err == nil {
		t.Fatal("expected an error when the source path is a directory")
	}
	if job.Stage == jobstore.StageValidated {
		t.Fatal("expected the job to remain at StageNew on rejection")
	}
}

func TestRunValidateRejectsMissingSource(t *testing.T) {
	cfg := config.Default()
	r := &JobRunner{cfg: &cfg}

	job := jobWithOneTarget("job-validate-missing")
	job.SourcePath = "/nonexistent/path/to/video.mkv"

	if err := r.runValidate(context.Background(), job); err == nil {
		t.Fatal("expected an error when the source file does not exist")
	}
}
