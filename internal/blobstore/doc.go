// Package blobstore is the blob adapter (C5): an opaque object-store
// client exposing put/exists/delete_prefix over HTTP, with per-call
// timeouts and capped exponential backoff on transient failure. It
// distinguishes retryable transport faults from fatal auth/permission
// faults so callers don't retry a request that can never succeed.
package blobstore
