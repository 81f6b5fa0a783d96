// Package worker drains the transcription queue. A bounded pool of claim
// loops leases jobs, runs each through fetch, transcribe, and write-back
// stages, and records retry or terminal failure outcomes.
package worker
