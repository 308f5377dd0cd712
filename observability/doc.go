// Package observability records OpenTelemetry metrics for worker lifecycle
// events. LifecycleMetrics registers a counting hook for every event on a
// lifecycle registry.
//
// For per-call Redis tracing and metrics, see package redisconn.
package observability
