// Package queue persists transcription jobs in SQLite and implements the
// durable work-queue semantics the worker relies on: priority ordering,
// exclusive leases with heartbeats, bounded retries with exponential
// backoff, and retention of a small window of finished jobs. The Facade
// wraps the store for request-path callers and degrades to a disabled mode
// when the backend is unreachable.
package queue
