package recorder

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxConn is the subset of *pgxpool.Pool the Postgres sink needs.
type PgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

var recordColumns = []string{"id", "source", "event", "channel", "symbol", "data", "received_at"}

// PostgresSink copies records into a table.
type PostgresSink struct {
	db    PgxConn
	table string
}

// NewPostgresSink creates a sink writing to table.
func NewPostgresSink(db PgxConn, table string) *PostgresSink {
	return &PostgresSink{db: db, table: table}
}

func (s *PostgresSink) Name() string { return "postgres" }

// EnsureSchema creates the events table if it does not exist.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          UUID PRIMARY KEY,
			source      TEXT NOT NULL,
			event       TEXT NOT NULL,
			channel     TEXT NOT NULL,
			symbol      TEXT NOT NULL DEFAULT '',
			data        JSONB NOT NULL,
			received_at TIMESTAMPTZ NOT NULL
		)`, pgx.Identifier{s.table}.Sanitize())

	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Write copies the batch with a single COPY.
func (s *PostgresSink) Write(ctx context.Context, batch []Record) error {
	if len(batch) == 0 {
		return nil
	}

	n, err := s.db.CopyFrom(ctx, pgx.Identifier{s.table}, recordColumns,
		pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
			r := batch[i]
			return []any{r.ID, r.Source, r.Event, r.Channel, r.Symbol, []byte(r.Data), r.ReceivedAt}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy into %s: %w", s.table, err)
	}
	if int(n) != len(batch) {
		return fmt.Errorf("copy into %s: wrote %d of %d rows", s.table, n, len(batch))
	}
	return nil
}
