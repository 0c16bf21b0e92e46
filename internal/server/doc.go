// Package server exposes the workflow service's HTTP API: definition and
// template management, instance lifecycle control, step execution callbacks,
// monitoring queries, Prometheus metrics, and a WebSocket event stream.
package server
