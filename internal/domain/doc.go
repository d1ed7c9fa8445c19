// Package domain defines the core business entities of the task tracker
// (tasks and their messages) along with the validation rules and sentinel
// errors shared by the store, service, and API layers.
package domain
