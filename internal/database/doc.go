// Package database provides the PostgreSQL/TimescaleDB connection pool used
// by the recorder's database sink.
package database
