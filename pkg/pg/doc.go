// Package pg manages the PostgreSQL connection pool: connecting with
// retries at startup, applying goose migrations, and exposing a
// healthcheck probe for the HTTP health endpoint.
package pg
