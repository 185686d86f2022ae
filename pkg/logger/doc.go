// Package logger builds the application's slog.Logger: JSON for
// production log shipping, text for local development, with static
// service attributes stamped on every record.
package logger
