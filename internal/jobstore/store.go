package jobstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"subtitlegen/internal/config"
)

// Store is the durable job record store: a directory of canonical JSON
// files (one per job, with a rotating .bak) plus a SQLite index used only
// to answer list queries without scanning the directory.
type Store struct {
	dir string
	db  *sql.DB
}

// lockRetryInterval is how often TryLockContext polls for the per-job file
// lock while waiting for another holder to release it.
const lockRetryInterval = 50 * time.Millisecond

// Open creates the job store directory if needed, opens the SQLite index
// and applies its schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.JobStoreDir, "index.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{dir: cfg.Paths.JobStoreDir, db: db}
	if err := store.initIndexSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the index database. It does not touch the canonical JSON
// files, which require no open handle between calls.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) canonicalPath(id string) string { return filepath.Join(s.dir, id+".json") }
func (s *Store) backupPath(id string) string    { return filepath.Join(s.dir, id+".json.bak") }
func (s *Store) tempPath(id string) string      { return filepath.Join(s.dir, id+".json.tmp") }
func (s *Store) lockPath(id string) string      { return filepath.Join(s.dir, id+".lock") }

// withLock serializes all writers (and readers that need a consistent
// view) for one job id, matching the "only one writer touches JobState at
// a time" discipline from spec.md §4.10.
func (s *Store) withLock(ctx context.Context, id string, fn func() error) error {
	lock := flock.New(s.lockPath(id))
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return fmt.Errorf("lock job %s: %w", id, err)
	}
	if !locked {
		return fmt.Errorf("lock job %s: timed out", id)
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
