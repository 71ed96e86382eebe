package telemetry

import (
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/observability/metrics"
)

// Message is one accepted reading flowing through the pipeline, carrying a
// snapshot of the vehicle it was resolved against.
type Message struct {
	Vehicle *entities.Vehicle
	Reading entities.TelemetryReading
}

// Dispatcher fans accepted readings out to the three pipeline stages.
// Sends never block: when a stage falls behind, its messages are dropped
// and counted rather than stalling ingestion.
type Dispatcher struct {
	DBChan     chan *Message
	StateChan  chan *Message
	EngineChan chan *Message

	metrics *metrics.Metrics
}

// NewDispatcher creates a dispatcher with the given channel capacities.
func NewDispatcher(dbSize, stateSize, engineSize int, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		DBChan:     make(chan *Message, dbSize),
		StateChan:  make(chan *Message, stateSize),
		EngineChan: make(chan *Message, engineSize),
		metrics:    m,
	}
}

// Dispatch delivers the message to each stage channel, dropping on overflow.
func (d *Dispatcher) Dispatch(msg *Message) {
	select {
	case d.DBChan <- msg:
	default:
		d.metrics.ChannelDrops.WithLabelValues("db").Inc()
	}

	select {
	case d.StateChan <- msg:
	default:
		d.metrics.ChannelDrops.WithLabelValues("state").Inc()
	}

	select {
	case d.EngineChan <- msg:
	default:
		d.metrics.ChannelDrops.WithLabelValues("engine").Inc()
	}
}

// Close closes all stage channels. Call only after ingestion has stopped.
func (d *Dispatcher) Close() {
	close(d.DBChan)
	close(d.StateChan)
	close(d.EngineChan)
}
