// Package views materializes per-user, per-day documents from interaction
// events: the compass check-in summary and the daily wins record. Writes are
// idempotent keyed upserts, so the inline hook and the stream consumer can
// both apply the same event safely.
package views
