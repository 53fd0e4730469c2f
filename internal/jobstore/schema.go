package jobstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var indexSchemaSQL string

// indexSchemaVersion guards the secondary SQLite index, independent of
// schemaVersion which guards the canonical JSON record format.
const indexSchemaVersion = 1

// ErrIndexSchemaMismatch indicates the index database was built by an
// incompatible version of this binary.
var ErrIndexSchemaMismatch = errors.New("jobstore: index schema version mismatch")

func (s *Store) initIndexSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createIndexSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read index schema version: %w", err)
	}
	if version != indexSchemaVersion {
		return fmt.Errorf("%w: index has version %d, expected %d (delete the index database to rebuild it)",
			ErrIndexSchemaMismatch, version, indexSchemaVersion)
	}
	return nil
}

func (s *Store) createIndexSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, indexSchemaSQL); err != nil {
		return fmt.Errorf("create index schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", indexSchemaVersion); err != nil {
		return fmt.Errorf("record index schema version: %w", err)
	}
	return tx.Commit()
}
