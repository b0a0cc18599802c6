// Package events defines the messages exchanged between the dashboard and
// its worker when transfers complete.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"transferdash/internal/core"
)

const TypeTransferCompleted = "transfer.completed"

// TransferEvent carries the full transfer so consumers never need to read
// the ledger.
type TransferEvent struct {
	Type      string        `json:"type"`
	Transfer  core.Transfer `json:"transfer"`
	Timestamp time.Time     `json:"timestamp"`
}

type (
	Publisher interface {
		PublishTransferEvent(ctx context.Context, e *TransferEvent) error
	}

	// Handler processes one event. Returning an error asks the transport to
	// redeliver when it can.
	Handler func(ctx context.Context, e *TransferEvent) error

	Consumer interface {
		ConsumeTransferEvents(ctx context.Context, handler Handler) error
	}
)

// NewTransferCompleted wraps t in a completion event stamped now.
func NewTransferCompleted(t core.Transfer) *TransferEvent {
	return &TransferEvent{
		Type:      TypeTransferCompleted,
		Transfer:  t,
		Timestamp: time.Now(),
	}
}

func (e *TransferEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes an event and rejects payloads without a type or a
// transfer id.
func FromJSON(data []byte) (*TransferEvent, error) {
	var e TransferEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Type == "" || e.Transfer.ID == "" {
		return nil, fmt.Errorf("incomplete transfer event")
	}
	return &e, nil
}

// Nop discards events. It is the publisher used when no broker is configured.
type Nop struct{}

func (Nop) PublishTransferEvent(context.Context, *TransferEvent) error { return nil }
