// Package clockid provides the monotonic time source and unique
// identifier generation used across the pipeline (spec.md C1): job IDs,
// segment checksums' companion IDs, and request fingerprints. Centralizing
// these here keeps the clock and ID generator out of ambient global state,
// per spec.md §9 ("no hidden global state") — components receive a Clock
// explicitly rather than calling time.Now() directly.
package clockid
