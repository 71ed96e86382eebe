package telemetry

import (
	"context"

	"github.com/fleetpredict/fleetpredict-go/internal/logger"
	"github.com/fleetpredict/fleetpredict-go/internal/state"
)

// StateWriter drains the state channel into Redis.
type StateWriter struct {
	ch    <-chan *Message
	store *state.Store
	log   logger.Logger
}

// NewStateWriter creates the Redis state stage.
func NewStateWriter(ch <-chan *Message, store *state.Store, log logger.Logger) *StateWriter {
	return &StateWriter{ch: ch, store: store, log: log}
}

// Run consumes messages until the channel closes or ctx is cancelled.
func (w *StateWriter) Run(ctx context.Context) {
	for {
		select {
		case msg, ok := <-w.ch:
			if !ok {
				return
			}
			if err := w.store.UpdateVehicleState(ctx, msg.Vehicle, &msg.Reading); err != nil {
				w.log.Warn("redis state update failed",
					logger.Uint64("vehicle_id", uint64(msg.Vehicle.ID)),
					logger.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}
