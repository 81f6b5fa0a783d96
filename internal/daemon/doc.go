// Package daemon hosts the background services: the transcription worker
// pool, the view-materializing stream consumer, and the HTTP API. A lock
// file guarantees a single instance per machine.
package daemon
