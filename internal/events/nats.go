package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectPrefix is prepended to the event type to form the NATS subject.
const SubjectPrefix = "mealsplit.split."

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL   string
	Token string
}

// NATSPublisher publishes events as JSON on core NATS subjects.
type NATSPublisher struct {
	conn *nats.Conn
}

// ConnectNATS dials the server and returns a publisher that owns the connection.
func ConnectNATS(cfg NATSConfig) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("mealsplit"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: nc}, nil
}

// Subject returns the NATS subject for an event type.
func Subject(t Type) string {
	return SubjectPrefix + string(t)
}

func (p *NATSPublisher) Publish(_ context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to encode split event", "type", event.Type, "split_id", event.SplitID, "error", err)
		return
	}
	if err := p.conn.Publish(Subject(event.Type), data); err != nil {
		slog.Warn("Failed to publish split event", "type", event.Type, "split_id", event.SplitID, "error", err)
	}
}

// Close drains pending publishes and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
