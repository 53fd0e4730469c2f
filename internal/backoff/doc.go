// Package backoff is the capped exponential retry policy shared by
// internal/blobstore and internal/modeladapter (spec.md §4.4: initial 1s,
// factor 2, cap 30s, max 5 tries). It supplies only the delay schedule;
// callers own the actual retry loop so they can apply their own
// fault-kind classification between attempts.
package backoff
