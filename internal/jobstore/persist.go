package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Create writes the initial record for a new job. It fails with
// ErrAlreadyExists if a canonical record is already present.
func (s *Store) Create(ctx context.Context, job *JobState) error {
	return s.withLock(ctx, job.ID, func() error {
		if fileExists(s.canonicalPath(job.ID)) {
			return ErrAlreadyExists
		}
		if err := s.writeCanonical(job); err != nil {
			return err
		}
		return s.upsertIndex(ctx, job)
	})
}

// Save persists an updated record using temp-write, backup-rotate, rename:
// the existing canonical file (if any) is renamed to its .bak sibling, a
// fresh temp file is written and fsynced, then renamed into place as the
// new canonical file. A crash at any point during this sequence leaves
// either the old canonical file, the new one, or the backup readable — it
// never leaves the job unrecoverable (spec.md §4.1).
func (s *Store) Save(ctx context.Context, job *JobState) error {
	return s.withLock(ctx, job.ID, func() error {
		canonical := s.canonicalPath(job.ID)
		backup := s.backupPath(job.ID)
		if fileExists(canonical) {
			if err := os.Rename(canonical, backup); err != nil {
				return fmt.Errorf("rotate backup for job %s: %w", job.ID, err)
			}
		}
		if err := s.writeCanonical(job); err != nil {
			return err
		}
		return s.upsertIndex(ctx, job)
	})
}

// writeCanonical writes job to a temp file in the same directory, fsyncs
// it, then renames it onto the canonical path. The same-directory temp
// file and the rename step keep the replacement atomic on POSIX
// filesystems.
func (s *Store) writeCanonical(job *JobState) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}

	tmp := s.tempPath(job.ID)
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open temp file for job %s: %w", job.ID, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp file for job %s: %w", job.ID, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync temp file for job %s: %w", job.ID, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file for job %s: %w", job.ID, err)
	}
	if err := os.Rename(tmp, s.canonicalPath(job.ID)); err != nil {
		return fmt.Errorf("rename temp file for job %s: %w", job.ID, err)
	}
	return nil
}

// Load reads a job record. If the canonical file is missing or fails to
// parse, it falls back to the backup; recovered reports whether the
// backup had to be used so the caller can log the fallback. If both the
// canonical file and its backup are unreadable, Load returns ErrCorrupt.
func (s *Store) Load(ctx context.Context, id string) (job *JobState, recovered bool, err error) {
	err = s.withLock(ctx, id, func() error {
		canonical := s.canonicalPath(id)
		backup := s.backupPath(id)

		if !fileExists(canonical) && !fileExists(backup) {
			return ErrNotFound
		}

		if parsed, parseErr := readJobFile(canonical); parseErr == nil {
			job = parsed
			return checkSchemaVersion(job)
		}

		parsed, parseErr := readJobFile(backup)
		if parseErr != nil {
			return fmt.Errorf("%w: job %s", ErrCorrupt, id)
		}
		job = parsed
		recovered = true
		return checkSchemaVersion(job)
	})
	if err != nil {
		return nil, false, err
	}
	return job, recovered, nil
}

func checkSchemaVersion(job *JobState) error {
	if job.SchemaVersion > schemaVersion {
		return fmt.Errorf("%w: job %s has schema version %d, binary supports up to %d",
			ErrSchemaVersion, job.ID, job.SchemaVersion, schemaVersion)
	}
	return nil
}

func readJobFile(path string) (*JobState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var job JobState
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Delete removes the canonical record, its backup and lock file, and the
// index row. It does not touch the job's blobs or scratch files; those
// are reaped by internal/cleanup.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.withLock(ctx, id, func() error {
		for _, path := range []string{s.canonicalPath(id), s.backupPath(id)} {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove %s: %w", path, err)
			}
		}
		_, err := s.db.ExecContext(ctx, "DELETE FROM job_index WHERE id = ?", id)
		return err
	})
}

func (s *Store) upsertIndex(ctx context.Context, job *JobState) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_index (id, stage, created_at, updated_at, source_path)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET stage = excluded.stage, updated_at = excluded.updated_at`,
		job.ID, string(job.Stage), job.CreatedAt.Format(time.RFC3339Nano), job.UpdatedAt.Format(time.RFC3339Nano), job.SourcePath,
	)
	if err != nil {
		return fmt.Errorf("upsert index for job %s: %w", job.ID, err)
	}
	return nil
}
