// Package logging constructs the slog loggers used across Comet, with
// level and format driven by configuration. Components tag their child
// loggers via Component so every line attributes its origin.
package logging
