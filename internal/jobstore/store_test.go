package jobstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"subtitlegen/internal/config"
	"subtitlegen/internal/jobstore"
	"subtitlegen/internal/langtag"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.TempDir = t.TempDir()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.JobStoreDir = t.TempDir()
	cfg.Paths.PromptTemplateRegistry = t.TempDir()
	return &cfg
}

func mustOpen(t *testing.T, cfg *config.Config) *jobstore.Store {
	t.Helper()
	store, err := jobstore.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleJob(id string) *jobstore.JobState {
	targets := []langtag.Target{{Language: "en", Mode: langtag.ModeStandard}}
	return jobstore.NewJobState(id, "/videos/"+id+".mp4", targets, "en", time.Now().UTC())
}

func TestCreateLoadRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	store := mustOpen(t, cfg)
	ctx := context.Background()

	job := sampleJob("job-1")
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	loaded, recovered, err := store.Load(ctx, job.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if recovered {
		t.Fatal("unexpected backup recovery on a fresh job")
	}
	if loaded.ID != job.ID || loaded.SourcePath != job.SourcePath {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
	if loaded.Stage != jobstore.StageNew {
		t.Fatalf("expected StageNew, got %s", loaded.Stage)
	}
}

func TestCreateRejectsDuplicate(t *testing.T) {
	cfg := testConfig(t)
	store := mustOpen(t, cfg)
	ctx := context.Background()

	job := sampleJob("job-dup")
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Create(ctx, job); err != jobstore.ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestSaveRotatesBackup(t *testing.T) {
	cfg := testConfig(t)
	store := mustOpen(t, cfg)
	ctx := context.Background()

	job := sampleJob("job-2")
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	job.Stage = jobstore.StageValidated
	job.Touch(time.Now().UTC())
	if err := store.Save(ctx, job); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	backupPath := filepath.Join(cfg.Paths.JobStoreDir, job.ID+".json.bak")
	if _, err := os.Stat(backupPath); err != nil {
		t.Fatalf("expected a backup file after the second save: %v", err)
	}

	loaded, _, err := store.Load(ctx, job.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Stage != jobstore.StageValidated {
		t.Fatalf("expected StageValidated, got %s", loaded.Stage)
	}
}

func TestLoadFallsBackToBackupWhenCanonicalCorrupt(t *testing.T) {
	cfg := testConfig(t)
	store := mustOpen(t, cfg)
	ctx := context.Background()

	job := sampleJob("job-3")
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	job.Stage = jobstore.StageValidated
	job.Touch(time.Now().UTC())
	if err := store.Save(ctx, job); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	canonicalPath := filepath.Join(cfg.Paths.JobStoreDir, job.ID+".json")
	if err := os.WriteFile(canonicalPath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt canonical file: %v", err)
	}

	loaded, recovered, err := store.Load(ctx, job.ID)
	if err != nil {
		t.Fatalf("Load failed despite a valid backup: %v", err)
	}
	if !recovered {
		t.Fatal("expected recovered=true when falling back to the backup")
	}
	if loaded.Stage != jobstore.StageNew {
		t.Fatalf("expected the backup's stage (StageNew), got %s", loaded.Stage)
	}
}

func TestLoadFailsWhenBothCanonicalAndBackupCorrupt(t *testing.T) {
	cfg := testConfig(t)
	store := mustOpen(t, cfg)
	ctx := context.Background()

	job := sampleJob("job-4")
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	job.Stage = jobstore.StageValidated
	job.Touch(time.Now().UTC())
	if err := store.Save(ctx, job); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	canonicalPath := filepath.Join(cfg.Paths.JobStoreDir, job.ID+".json")
	backupPath := filepath.Join(cfg.Paths.JobStoreDir, job.ID+".json.bak")
	if err := os.WriteFile(canonicalPath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt canonical file: %v", err)
	}
	if err := os.WriteFile(backupPath, []byte("{also not json"), 0o644); err != nil {
		t.Fatalf("corrupt backup file: %v", err)
	}

	if _, _, err := store.Load(ctx, job.ID); err == nil {
		t.Fatal("expected an error when both canonical and backup are corrupt")
	}
}

func TestListActiveExcludesTerminalStages(t *testing.T) {
	cfg := testConfig(t)
	store := mustOpen(t, cfg)
	ctx := context.Background()

	active := sampleJob("job-active")
	if err := store.Create(ctx, active); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	done := sampleJob("job-done")
	done.Stage = jobstore.StageCompleted
	if err := store.Create(ctx, done); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	jobs, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != active.ID {
		t.Fatalf("expected only job-active, got %+v", jobs)
	}
}

func TestListTerminalRespectsCutoff(t *testing.T) {
	cfg := testConfig(t)
	store := mustOpen(t, cfg)
	ctx := context.Background()

	job := sampleJob("job-term")
	job.Stage = jobstore.StageFailed
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	future := time.Now().UTC().Add(time.Hour)
	jobs, err := store.ListTerminal(ctx, future)
	if err != nil {
		t.Fatalf("ListTerminal failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != job.ID {
		t.Fatalf("expected job-term before the future cutoff, got %+v", jobs)
	}

	past := time.Now().UTC().Add(-time.Hour)
	jobs, err = store.ListTerminal(ctx, past)
	if err != nil {
		t.Fatalf("ListTerminal failed: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs before the past cutoff, got %+v", jobs)
	}
}

func TestUnitKeyRoundTrip(t *testing.T) {
	key := jobstore.MakeUnitKey(3, "en", langtag.ModeSDH)
	idx, lang, mode, err := key.Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if idx != 3 || lang != "en" || mode != langtag.ModeSDH {
		t.Fatalf("unexpected parse result: idx=%d lang=%s mode=%s", idx, lang, mode)
	}
}
