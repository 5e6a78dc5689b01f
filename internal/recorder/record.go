package recorder

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/mexc-futures/internal/api"
	"github.com/rickgao/mexc-futures/internal/stream"
)

// Sources a record can come from.
const (
	SourceStream = "stream"
	SourcePoller = "poller"
)

// Record is one persisted data point.
type Record struct {
	ID         uuid.UUID       `json:"id"`
	Source     string          `json:"source"`
	Event      string          `json:"event"`
	Channel    string          `json:"channel"`
	Symbol     string          `json:"symbol,omitempty"`
	Data       json.RawMessage `json:"data"`
	ReceivedAt time.Time       `json:"received_at"`
}

// FromEvent converts a stream event into a record.
func FromEvent(ev stream.Event) Record {
	receivedAt := ev.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	data := ev.Data
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	return Record{
		ID:         uuid.New(),
		Source:     SourceStream,
		Event:      ev.Name,
		Channel:    ev.Channel,
		Symbol:     ev.Symbol,
		Data:       data,
		ReceivedAt: receivedAt,
	}
}

// FromTicker converts a polled ticker into a record.
func FromTicker(t api.Ticker, polledAt time.Time) (Record, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return Record{}, fmt.Errorf("marshal ticker: %w", err)
	}
	return Record{
		ID:         uuid.New(),
		Source:     SourcePoller,
		Event:      stream.EventTicker,
		Channel:    api.PathTicker,
		Symbol:     t.Symbol,
		Data:       data,
		ReceivedAt: polledAt,
	}, nil
}
