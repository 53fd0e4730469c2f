// Package diskguard polls free space ahead of segmenter runs and new-job
// admission, promoting original_source/src/resource_manager.py into a
// stateless checker returning a typed verdict, in the idiom of the
// teacher's internal/preflight package.
package diskguard
