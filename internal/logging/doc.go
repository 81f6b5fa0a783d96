// Package logging builds slog loggers with console and JSON handlers and
// standardizes the structured field keys used across daybook components.
package logging
