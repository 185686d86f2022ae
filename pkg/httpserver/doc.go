// Package httpserver wraps net/http's server with environment-driven
// configuration, graceful shutdown on context cancellation or SIGTERM,
// and structured start/stop logging.
package httpserver
