// Package metrics exposes Prometheus counters and gauges for the server on a
// dedicated registry, so tests can build as many instances as they like.
package metrics
