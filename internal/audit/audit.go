// Copyright 2025 James Ross
// Package audit is a best-effort audit sink for mutating operations,
// batched and flushed to ClickHouse. Grounded on the teacher's
// internal/long-term-archives ClickHouse exporter, trimmed from a
// generic job-archive exporter to a fixed per-envelope audit record
// (SPEC_FULL.md §2.5).
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"

	"github.com/jamesross/dgrid-batch/internal/config"
	"github.com/jamesross/dgrid-batch/internal/obs"
)

// Record is one audited envelope outcome.
type Record struct {
	Operation  string
	Collection string
	DataObject string
	Succeeded  bool
	ErrorCode  int
	Timestamp  time.Time
}

// Sink batches Records in memory and flushes them to ClickHouse on a
// timer or when a batch fills. A nil Sink (audit disabled) makes Record
// a no-op.
type Sink struct {
	mu        sync.Mutex
	db        *sql.DB
	table     string
	batch     []Record
	batchSize int
	logger    *zap.Logger

	flushInterval time.Duration
	stop          chan struct{}
	done          chan struct{}
}

// New opens a ClickHouse connection and starts the periodic flush loop.
// Returns (nil, nil) when auditing is disabled.
func New(cfg *config.Config, logger *zap.Logger) (*Sink, error) {
	if !cfg.Audit.Enabled {
		return nil, nil
	}
	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{cfg.Audit.ClickhouseDSN},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 10 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("audit: ping clickhouse: %w", err)
	}

	s := &Sink{
		db:            db,
		table:         "dgrid_audit",
		batchSize:     cfg.Audit.BatchSize,
		logger:        logger,
		flushInterval: cfg.Audit.FlushInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	if err := s.ensureTable(ctx); err != nil {
		return nil, err
	}
	go s.flushLoop()
	return s, nil
}

func (s *Sink) ensureTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			ts DateTime,
			operation String,
			collection String,
			data_object String,
			succeeded UInt8,
			error_code Int32
		) ENGINE = MergeTree() ORDER BY ts`, s.table))
	return err
}

// Record appends rec to the in-memory batch, flushing immediately if the
// batch has filled. Nil-safe: Record on a nil Sink is a no-op.
func (s *Sink) Record(rec Record) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.batchSize
	s.mu.Unlock()
	if full {
		s.flush()
	}
}

func (s *Sink) flushLoop() {
	defer close(s.done)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-s.stop:
			s.flush()
			return
		}
	}
}

func (s *Sink) flush() {
	s.mu.Lock()
	batch := s.batch
	s.batch = nil
	s.mu.Unlock()
	if len(batch) == 0 {
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		obs.AuditFlushFailures.Inc()
		s.logger.Error("audit: begin tx", zap.Error(err))
		return
	}
	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT INTO %s (ts, operation, collection, data_object, succeeded, error_code) VALUES (?, ?, ?, ?, ?, ?)", s.table))
	if err != nil {
		obs.AuditFlushFailures.Inc()
		s.logger.Error("audit: prepare insert", zap.Error(err))
		return
	}
	defer stmt.Close()

	for _, r := range batch {
		succeeded := uint8(0)
		if r.Succeeded {
			succeeded = 1
		}
		if _, err := stmt.Exec(r.Timestamp, r.Operation, r.Collection, r.DataObject, succeeded, r.ErrorCode); err != nil {
			obs.AuditFlushFailures.Inc()
			s.logger.Error("audit: insert record", zap.Error(err))
		}
	}
	if err := tx.Commit(); err != nil {
		obs.AuditFlushFailures.Inc()
		s.logger.Error("audit: commit tx", zap.Error(err))
	}
}

// Close flushes any remaining batch and stops the flush loop.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	close(s.stop)
	<-s.done
	return s.db.Close()
}
