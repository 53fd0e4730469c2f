// Package segmenter is the segmenter (C4). It splits an admitted video
// into fixed-interval sub-clips in a job-scoped scratch directory,
// resuming from a prior partial run by checksum and halving chunk
// duration for any range whose output exceeds the configured byte budget.
package segmenter
