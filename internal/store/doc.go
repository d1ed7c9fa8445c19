// Package store defines the persistence contract for tasks. The interfaces
// here keep the lifecycle engine and services independent of the storage
// technology; internal/platform/postgres and internal/platform/memory provide
// the implementations.
package store
