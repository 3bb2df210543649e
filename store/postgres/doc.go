// Package postgres implements the store using pgx/v5 with raw SQL.
// Schema lives in embedded SQL migrations applied by Migrate; applied
// files are tracked in harness_migrations so Migrate is re-runnable.
package postgres
