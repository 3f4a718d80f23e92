// Copyright 2025 James Ross
// Package eventhooks publishes post-mutation notifications (metamod,
// chmod, put, move, remove, mkcoll, rmcoll) to NATS, grounded on the teacher's
// internal/event-hooks NATS publisher, trimmed down from the job-event
// subscription model to a single best-effort fire-and-forget publish per
// mutating primitive (SPEC_FULL.md §2.7).
package eventhooks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/jamesross/dgrid-batch/internal/config"
)

// Event is one post-mutation notification.
type Event struct {
	Operation  string    `json:"operation"`
	Collection string    `json:"collection"`
	DataObject string    `json:"data_object,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Error      string    `json:"error,omitempty"`
}

// Publisher publishes events to NATS. A nil Publisher (event hooks
// disabled) makes Publish a no-op, so callers never branch on enablement.
type Publisher struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger
}

// New connects to NATS per cfg.EventHooks. Returns (nil, nil) when event
// hooks are disabled.
func New(cfg *config.Config, logger *zap.Logger) (*Publisher, error) {
	if !cfg.EventHooks.Enabled {
		return nil, nil
	}
	conn, err := nats.Connect(cfg.EventHooks.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("eventhooks: connect to NATS: %w", err)
	}
	return &Publisher{conn: conn, prefix: cfg.EventHooks.SubjectPrefix, logger: logger}, nil
}

// Publish fires ev to "<prefix>.<operation>", logging (not returning) any
// failure: event delivery is best-effort and must never fail the item
// whose mutation it reports.
func (p *Publisher) Publish(ev Event) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("eventhooks: marshal event", zap.Error(err))
		return
	}
	subject := fmt.Sprintf("%s.%s", p.prefix, ev.Operation)
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Error("eventhooks: publish failed", zap.String("subject", subject), zap.Error(err))
	}
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
