// Package notifications sends ntfy push notifications for pipeline events,
// deduplicating repeats within a bounded window.
package notifications
