package telemetry

import (
	"context"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/repository"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/timeseries"
	"github.com/fleetpredict/fleetpredict-go/internal/logger"
	"github.com/fleetpredict/fleetpredict-go/internal/observability/metrics"
)

// DBWriter drains the persistence channel: each reading is inserted, the
// vehicle's mileage and last-seen timestamp are advanced, and the optional
// time-series store receives a copy.
type DBWriter struct {
	ch        <-chan *Message
	telemetry repository.TelemetryRepository
	vehicles  repository.VehicleRepository
	// timescale is nil when the time-series store is disabled.
	timescale *timeseries.Store
	metrics   *metrics.Metrics
	log       logger.Logger
}

// NewDBWriter creates the persistence stage.
func NewDBWriter(
	ch <-chan *Message,
	telemetryRepo repository.TelemetryRepository,
	vehicleRepo repository.VehicleRepository,
	timescale *timeseries.Store,
	m *metrics.Metrics,
	log logger.Logger,
) *DBWriter {
	return &DBWriter{
		ch:        ch,
		telemetry: telemetryRepo,
		vehicles:  vehicleRepo,
		timescale: timescale,
		metrics:   m,
		log:       log,
	}
}

// Run consumes messages until the channel closes or ctx is cancelled.
func (w *DBWriter) Run(ctx context.Context) {
	for {
		select {
		case msg, ok := <-w.ch:
			if !ok {
				return
			}
			w.write(ctx, msg)
		case <-ctx.Done():
			return
		}
	}
}

func (w *DBWriter) write(ctx context.Context, msg *Message) {
	if err := w.telemetry.InsertReading(ctx, &msg.Reading); err != nil {
		w.metrics.DBWriteFailures.Inc()
		w.log.Error("telemetry insert failed",
			logger.Uint64("vehicle_id", uint64(msg.Reading.VehicleID)),
			logger.Error(err))
		return
	}
	w.metrics.DBWriteSuccess.Inc()

	err := w.vehicles.RecordTelemetry(ctx, msg.Reading.VehicleID, msg.Reading.Mileage, msg.Reading.Timestamp)
	if err != nil {
		w.log.Warn("vehicle telemetry update failed",
			logger.Uint64("vehicle_id", uint64(msg.Reading.VehicleID)),
			logger.Error(err))
	}

	if w.timescale != nil {
		w.timescale.Append(msg.Reading)
	}
}
