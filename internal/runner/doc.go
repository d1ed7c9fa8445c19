// Package runner performs tasks in the background. Jobs are buffered in a
// bounded Queue and consumed by a WorkerPool whose workers call the lifecycle
// engine; a full queue is reported to the submitter instead of blocking.
package runner
