// Package lifecycle drives a task through a single execution attempt.
//
// Engine.Perform reads the latest copy of a task, hands it to an executor
// while holding a per-task lock, and records the outcome (status, timing,
// try count and error history) with one store write. The running state is
// never persisted; concurrent attempts on the same task are serialized or
// rejected depending on the configured LockMode.
package lifecycle
