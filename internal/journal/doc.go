// Package journal persists captured interaction events and exposes them as
// an ordered change feed with per-consumer checkpoints.
package journal
