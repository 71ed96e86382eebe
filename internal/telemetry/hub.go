package telemetry

import (
	"encoding/json"
	"sync"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
)

// subscriberBuffer is the per-subscriber channel capacity. A slow consumer
// loses messages instead of stalling the pipeline.
const subscriberBuffer = 32

// Subscription is one live-telemetry listener for a single vehicle.
type Subscription struct {
	C chan []byte

	hub       *Hub
	vehicleID uint
}

// Close detaches the subscription from the hub.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s.vehicleID, s)
}

// Hub fans accepted readings out to in-process subscribers, keyed by
// vehicle. It backs the per-vehicle live telemetry socket.
type Hub struct {
	mu   sync.RWMutex
	subs map[uint]map[*Subscription]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint]map[*Subscription]struct{})}
}

// Subscribe registers a listener for one vehicle's readings.
func (h *Hub) Subscribe(vehicleID uint) *Subscription {
	sub := &Subscription{
		C:         make(chan []byte, subscriberBuffer),
		hub:       h,
		vehicleID: vehicleID,
	}
	h.mu.Lock()
	if h.subs[vehicleID] == nil {
		h.subs[vehicleID] = make(map[*Subscription]struct{})
	}
	h.subs[vehicleID][sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(vehicleID uint, sub *Subscription) {
	h.mu.Lock()
	if set, ok := h.subs[vehicleID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, vehicleID)
		}
	}
	h.mu.Unlock()
}

// Broadcast sends the reading to every subscriber of its vehicle.
// Sends never block; full subscriber buffers drop the message.
func (h *Hub) Broadcast(reading *entities.TelemetryReading) {
	h.mu.RLock()
	set := h.subs[reading.VehicleID]
	if len(set) == 0 {
		h.mu.RUnlock()
		return
	}
	payload, err := json.Marshal(reading)
	if err != nil {
		h.mu.RUnlock()
		return
	}
	for sub := range set {
		select {
		case sub.C <- payload:
		default:
		}
	}
	h.mu.RUnlock()
}

// SubscriberCount reports the number of active subscriptions, across all
// vehicles.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}
