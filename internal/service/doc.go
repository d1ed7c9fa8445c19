// Package service contains the task use cases exposed by the API: querying,
// CRUD, message handling, synchronous and queued execution, and explicit
// sample-data seeding.
//
// Services receive their collaborators (store, lifecycle engine, event
// emitter) through constructor injection and never depend on a concrete
// store implementation. Store errors are translated into service sentinels
// or wrapped in a TaskServiceError so the API layer can map them with
// errors.Is/errors.As.
package service
