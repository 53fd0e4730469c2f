// Package cleanup is the reaper (C11): it removes a job's uploaded blobs
// and scratch directory once the job reaches a terminal stage, and runs
// a periodic sweep over terminal jobs the scheduler never got to reap
// synchronously (a crash between the terminal transition and the reap
// call, or a reap that failed). With cleanup.keep_temp set, the scratch
// directory is kept and only the blobs are removed.
package cleanup
