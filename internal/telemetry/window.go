package telemetry

import (
	"sync"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
)

// WindowTracker keeps a bounded per-vehicle buffer of the most recent
// readings, newest first, for the pattern checks to evaluate against.
type WindowTracker struct {
	size    int
	mu      sync.RWMutex
	windows map[uint][]entities.TelemetryReading
}

// NewWindowTracker creates a tracker retaining up to size readings per
// vehicle.
func NewWindowTracker(size int) *WindowTracker {
	if size < 1 {
		size = 30
	}
	return &WindowTracker{
		size:    size,
		windows: make(map[uint][]entities.TelemetryReading),
	}
}

// Append records a reading and returns a snapshot of the vehicle's window,
// newest first. The snapshot is a copy; callers may retain it.
func (t *WindowTracker) Append(vehicleID uint, reading entities.TelemetryReading) []entities.TelemetryReading {
	t.mu.Lock()
	defer t.mu.Unlock()

	window := t.windows[vehicleID]
	// Newest first keeps the checks index-free: window[0] is the latest.
	window = append([]entities.TelemetryReading{reading}, window...)
	if len(window) > t.size {
		window = window[:t.size]
	}
	t.windows[vehicleID] = window

	snapshot := make([]entities.TelemetryReading, len(window))
	copy(snapshot, window)
	return snapshot
}

// Snapshot returns a copy of the vehicle's window, newest first.
func (t *WindowTracker) Snapshot(vehicleID uint) []entities.TelemetryReading {
	t.mu.RLock()
	defer t.mu.RUnlock()

	window := t.windows[vehicleID]
	snapshot := make([]entities.TelemetryReading, len(window))
	copy(snapshot, window)
	return snapshot
}

// Seed replaces the vehicle's window, for warm starts from persisted
// readings. Input must be newest first.
func (t *WindowTracker) Seed(vehicleID uint, readings []entities.TelemetryReading) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(readings) > t.size {
		readings = readings[:t.size]
	}
	window := make([]entities.TelemetryReading, len(readings))
	copy(window, readings)
	t.windows[vehicleID] = window
}

// Forget drops the vehicle's window, e.g. after the vehicle is deleted.
func (t *WindowTracker) Forget(vehicleID uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.windows, vehicleID)
}
