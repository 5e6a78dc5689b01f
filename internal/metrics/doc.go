// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - REST session lifecycle (creations, expiries, keep-alive pings)
//   - WebSocket connection state, reconnects and message rates
//   - Recorder batch sizes, sink latencies and buffer overflow counts
//   - REST request outcomes by status class
package metrics
