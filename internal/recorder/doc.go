// Package recorder persists stream and poller data.
//
// Records are appended to a bounded ring buffer by stream callbacks and the
// ticker poller. A flush loop drains the buffer in batches, on size or on a
// timer, and writes every batch to all configured sinks concurrently:
//
//   - PostgresSink: COPY into a TimescaleDB/Postgres table
//   - RedisSink: PUBLISH each record on a per-event, per-symbol channel
//
// A sink failure is logged and counted; it never blocks the other sinks or
// the stream read loop.
package recorder
