package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rotblauer/fieldcat/catdb/pending"
	"github.com/rotblauer/fieldcat/params"
)

// NATSSender publishes records to a JetStream stream.
// The publish ack is the backend acknowledgment.
type NATSSender struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	subject string
}

func DialNATS(cfg params.DeliveryConfig) (*NATSSender, error) {
	nc, err := nats.Connect(cfg.BackendURL,
		nats.Name("fieldcat"),
		nats.Timeout(cfg.Timeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:       cfg.Stream,
		Subjects:   []string{cfg.Subject},
		Storage:    nats.FileStorage,
		MaxAge:     7 * 24 * time.Hour,
		Duplicates: 24 * time.Hour,
	})
	if err != nil && !strings.Contains(err.Error(), "stream name already in use") {
		// The stream may be managed elsewhere; publishing still works if it exists.
		logger.Warn("Failed to create stream", "stream", cfg.Stream, "error", err)
	}
	return &NATSSender{conn: nc, js: js, subject: cfg.Subject}, nil
}

func (s *NATSSender) Reachable(ctx context.Context) error {
	if !s.conn.IsConnected() {
		return fmt.Errorf("%w: nats %s", ErrUnreachable, s.conn.Status())
	}
	if err := s.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return nil
}

func (s *NATSSender) Send(ctx context.Context, rec *pending.Record) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	_, err = s.js.Publish(s.subject, data, nats.Context(ctx), nats.MsgId(MessageID(rec)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return nil
}

func (s *NATSSender) Close() error {
	s.conn.Close()
	return nil
}
