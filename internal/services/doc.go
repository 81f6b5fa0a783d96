// Package services holds cross-cutting service plumbing: the sentinel error
// taxonomy used to classify job failures and context carriers for structured
// log fields.
package services
