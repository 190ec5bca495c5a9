// Package natsclient publishes fleet events to a NATS bus for external
// consumers (other dashboards, downstream reporting).
package natsclient

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher wraps a NATS connection configured for lossy, best-effort
// event mirroring. A nil *Publisher is a valid no-op sink.
type Publisher struct {
	nc *nats.Conn
}

// NewPublisher connects to the given NATS URL with unlimited reconnects.
func NewPublisher(url string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("prodplane-controller"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &Publisher{nc: nc}, nil
}

// Publish sends one payload on the given subject.
func (p *Publisher) Publish(ctx context.Context, subject string, payload []byte) error {
	if p == nil {
		return nil
	}
	if p.nc == nil || p.nc.IsClosed() {
		return fmt.Errorf("nats not connected")
	}
	return p.nc.Publish(subject, payload)
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	p.nc.Drain()
	p.nc.Close()
}
