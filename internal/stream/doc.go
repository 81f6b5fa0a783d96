// Package stream tails the journal's interaction event feed and drives the
// materialized view pipeline, one event at a time in append order.
package stream
