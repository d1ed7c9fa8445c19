// Package events decouples the parts of the service that ask for background
// work from the parts that carry it out.
//
// The API layer emits a TaskRequestEvent of type TypePerformTask; the runner
// registers a handler that turns the event into a queued perform job.
package events
