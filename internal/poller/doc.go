// Package poller implements the REST ticker poller.
//
// The poller:
//   - Polls the public ticker endpoint for a fixed symbol list on an interval
//   - Provides a backup data source when the stream is reconnecting
//   - Uses concurrent requests with bounded concurrency
//   - Keeps the REST session warm with real traffic, postponing idle expiry
package poller
