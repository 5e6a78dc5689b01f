package recorder

import "context"

// Sink persists batches of records.
type Sink interface {
	Name() string
	Write(ctx context.Context, batch []Record) error
}
