package jobstore

import "errors"

var (
	// ErrNotFound is returned by Load when no record exists for an id.
	ErrNotFound = errors.New("jobstore: job not found")
	// ErrAlreadyExists is returned by Create when a record already exists.
	ErrAlreadyExists = errors.New("jobstore: job already exists")
	// ErrCorrupt is returned by Load when both the canonical record and its
	// backup fail to parse. This is fatal for the affected job; it does not
	// take down the rest of the store.
	ErrCorrupt = errors.New("jobstore: canonical and backup records are both unreadable")
	// ErrSchemaVersion is returned by Load when a record was written by a
	// newer schema than this binary understands.
	ErrSchemaVersion = errors.New("jobstore: record schema version is newer than this binary supports")
)
