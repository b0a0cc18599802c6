// Package natsbus carries transfer events over a NATS subject.
package natsbus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"transferdash/internal/events"
)

type Bus struct {
	nc      *nats.Conn
	subject string
}

// Connect dials url and keeps reconnecting for the life of the process.
func Connect(url, subject string) (*Bus, error) {
	nc, err := nats.Connect(url,
		nats.Name("transferdash"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &Bus{nc: nc, subject: subject}, nil
}

func (b *Bus) PublishTransferEvent(ctx context.Context, e *events.TransferEvent) error {
	body, err := e.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := b.nc.Publish(b.subject, body); err != nil {
		return fmt.Errorf("publish to %s: %w", b.subject, err)
	}
	if err := b.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", b.subject, err)
	}
	slog.InfoContext(ctx, "Published transfer event", "transfer_id", e.Transfer.ID, "subject", b.subject)
	return nil
}

// ConsumeTransferEvents subscribes to the subject and blocks until ctx is
// done. NATS core has no redelivery, so handler errors are only logged.
func (b *Bus) ConsumeTransferEvents(ctx context.Context, handler events.Handler) error {
	sub, err := b.nc.Subscribe(b.subject, func(m *nats.Msg) {
		handleMessage(ctx, m.Data, handler)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.subject, err)
	}
	defer sub.Unsubscribe()

	slog.InfoContext(ctx, "Started consuming transfer events", "subject", b.subject)
	<-ctx.Done()
	return ctx.Err()
}

func handleMessage(ctx context.Context, data []byte, handler events.Handler) {
	e, err := events.FromJSON(data)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
		return
	}
	if err := handler(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to handle transfer event", "error", err, "transfer_id", e.Transfer.ID)
	}
}

func (b *Bus) Ping(context.Context) error {
	if !b.nc.IsConnected() {
		return fmt.Errorf("nats: not connected (%s)", b.nc.Status())
	}
	return nil
}

// Close drains pending messages before closing.
func (b *Bus) Close() error {
	return b.nc.Drain()
}
