// Package postgres implements store.TaskStore on PostgreSQL using
// database/sql with the pgx stdlib driver. The errors and msgs lists are
// stored as JSONB columns so that message append and removal are single
// atomic statements. The schema is managed by the goose migrations embedded
// in Migrations.
package postgres
