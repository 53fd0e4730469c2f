// Package scheduler is the stage scheduler (C10), the heart of the job
// pipeline. It drives each JobState through the stage machine described
// in spec.md §4.10 (New -> Validated -> Segmented -> Uploaded ->
// Generated -> Merged -> Validated2 -> Emitted -> Completed, with
// Failed/Abandoned as terminal escapes), dispatching the validation,
// segmentation, upload, generation, merge, and quality-gate components
// and persisting the job record after every transition. It is the single
// writer of JobState; every other component returns pure results.
package scheduler
