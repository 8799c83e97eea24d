// Package events announces pipeline milestones on NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"ArticlesPublisher/internal/metrics"
	"ArticlesPublisher/internal/ports"
)

const source = "articles-publisher"

// Message is the envelope every event is sent in.
type Message struct {
	Subject   string          `json:"subject"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	Version   string          `json:"version"`
	Data      json.RawMessage `json:"data"`
}

// Notifier publishes JSON envelopes to NATS subjects.
type Notifier struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

var _ ports.EventPublisher = (*Notifier)(nil)

// Connect dials NATS with unlimited reconnects. prefix is prepended to subjects.
func Connect(url, prefix string, logger *slog.Logger) (*Notifier, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("component", "events")

	nc, err := nats.Connect(url,
		nats.Name(source),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected to nats", "url", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats connection lost", "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Notifier{conn: nc, prefix: prefix, logger: logger}, nil
}

// Publish wraps payload in a Message and sends it.
func (n *Notifier) Publish(ctx context.Context, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject = n.subject(subject)

	data, err := Encode(subject, payload, time.Now().UTC())
	if err != nil {
		return err
	}

	if err := n.conn.Publish(subject, data); err != nil {
		metrics.NatsMessagesPublished.WithLabelValues(subject, "error").Inc()
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	metrics.NatsMessagesPublished.WithLabelValues(subject, "ok").Inc()
	n.logger.Debug("event published", "subject", subject)
	return nil
}

// Close drains pending messages and closes the connection.
func (n *Notifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}

func (n *Notifier) subject(s string) string {
	if n.prefix == "" {
		return s
	}
	return strings.TrimSuffix(n.prefix, ".") + "." + s
}

// Encode builds the wire form of an event.
func Encode(subject string, payload any, at time.Time) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", subject, err)
	}
	data, err := json.Marshal(Message{
		Subject:   subject,
		Timestamp: at,
		Source:    source,
		Version:   "1.0",
		Data:      body,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", subject, err)
	}
	return data, nil
}

// Nop drops every event. It is used when no NATS url is configured.
type Nop struct{}

var _ ports.EventPublisher = Nop{}

func (Nop) Publish(context.Context, string, any) error { return nil }
