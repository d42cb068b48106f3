// Package metric provides Prometheus metrics for respkv.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Prometheus registry, server metrics and HTTP handler
//   - collector.go: Custom collector over keyspace statistics
//
// Metrics include:
//
//   - Connection gauges and counters
//   - Command counters and latency histograms
//   - Protocol error and rate limit counters
//   - Keyspace size, hits, misses and lazily expired keys
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
