// Package jobstore is the durable job record store (C2). The canonical
// record for a job is a JSON file written with a temp-write, backup-rotate,
// rename sequence so a crash mid-write never leaves a job unreadable. A
// SQLite database alongside the JSON tree is a secondary index used only to
// answer list_active/list_terminal queries without scanning every file.
package jobstore
