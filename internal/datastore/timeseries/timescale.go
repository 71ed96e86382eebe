// Package timeseries writes raw telemetry to a TimescaleDB hypertable in
// batches. It is optional: when disabled, readings only land in the primary
// relational store.
package timeseries

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultBatchSize     = 500
	defaultFlushInterval = 5 * time.Second
)

var telemetryColumns = []string{
	"timestamp",
	"vehicle_id",
	"speed_kmh",
	"fuel_level_pct",
	"engine_temperature_c",
	"rpm",
	"mileage",
	"latitude",
	"longitude",
	"voltage",
	"throttle_pct",
	"brake_status",
}

// Store buffers telemetry readings and flushes them with CopyFrom when the
// buffer fills or the flush interval elapses.
type Store struct {
	pool          *pgxpool.Pool
	log           logger.Logger
	batchSize     int
	flushInterval time.Duration

	mu      sync.Mutex
	pending []entities.TelemetryReading

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New connects to TimescaleDB and starts the background flusher.
func New(ctx context.Context, dsn string, batchSize int, flushInterval time.Duration, log logger.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create timescale pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping timescale: %w", err)
	}

	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}

	s := &Store{
		pool:          pool,
		log:           log,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		pending:       make([]entities.TelemetryReading, 0, batchSize),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	go s.flushLoop()
	return s, nil
}

// Append queues a reading for the next flush. It never blocks on the
// database; a full buffer triggers an asynchronous flush.
func (s *Store) Append(reading entities.TelemetryReading) {
	s.mu.Lock()
	s.pending = append(s.pending, reading)
	full := len(s.pending) >= s.batchSize
	s.mu.Unlock()

	if full {
		go s.flush()
	}
}

func (s *Store) flushLoop() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-s.stopCh:
			s.flush()
			return
		}
	}
}

func (s *Store) flush() {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.pending
	s.pending = make([]entities.TelemetryReading, 0, s.batchSize)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.copyBatch(ctx, batch); err != nil {
		s.log.Error("timescale flush failed",
			logger.Int("batch_size", len(batch)),
			logger.Error(err))
	}
}

func (s *Store) copyBatch(ctx context.Context, batch []entities.TelemetryReading) error {
	rows := make([][]any, len(batch))
	for i := range batch {
		r := &batch[i]
		rows[i] = []any{
			r.Timestamp,
			r.VehicleID,
			r.SpeedKmh,
			r.FuelLevelPct,
			r.EngineTemperatureC,
			r.RPM,
			r.Mileage,
			r.Latitude,
			r.Longitude,
			r.Voltage,
			r.ThrottlePct,
			r.BrakeStatus,
		}
	}

	_, err := s.pool.CopyFrom(
		ctx,
		pgx.Identifier{"telemetry_readings"},
		telemetryColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("CopyFrom failed for batch of %d: %w", len(batch), err)
	}
	return nil
}

// EnsureSchema creates the telemetry table and hypertable if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS telemetry_readings (
			timestamp            TIMESTAMPTZ NOT NULL,
			vehicle_id           BIGINT NOT NULL,
			speed_kmh            DOUBLE PRECISION,
			fuel_level_pct       DOUBLE PRECISION,
			engine_temperature_c DOUBLE PRECISION,
			rpm                  INTEGER,
			mileage              INTEGER,
			latitude             DOUBLE PRECISION,
			longitude            DOUBLE PRECISION,
			voltage              DOUBLE PRECISION,
			throttle_pct         DOUBLE PRECISION,
			brake_status         BOOLEAN
		);
		SELECT create_hypertable('telemetry_readings', 'timestamp', if_not_exists => TRUE);
	`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to ensure timescale schema: %w", err)
	}
	return nil
}

// Ping checks connectivity for health endpoints.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close flushes pending readings and releases the pool.
func (s *Store) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
		s.pool.Close()
	})
}
