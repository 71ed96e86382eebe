// Package telemetry implements the ingestion pipeline: payload parsing,
// fan-out dispatch to the persistence, state, and evaluation stages, and
// the per-vehicle rolling window the pattern checks read from.
package telemetry

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/repository"
)

// Payload is one telemetry message from a device. A vehicle is identified
// by vehicle_id, license_plate, or vin; all sensor fields are optional.
type Payload struct {
	VehicleID    uint   `json:"vehicle_id,omitempty"`
	LicensePlate string `json:"license_plate,omitempty"`
	VIN          string `json:"vin,omitempty"`
	// Timestamp is RFC 3339 / ISO 8601; missing or unparsable falls back
	// to the receive time.
	Timestamp string `json:"timestamp,omitempty"`

	SpeedKmh           *float64 `json:"speed_kmh,omitempty"`
	FuelLevelPct       *float64 `json:"fuel_level_pct,omitempty"`
	EngineTemperatureC *float64 `json:"engine_temperature_c,omitempty"`
	Latitude           *float64 `json:"latitude,omitempty"`
	Longitude          *float64 `json:"longitude,omitempty"`
	// Lat and Lng are accepted as aliases for latitude and longitude.
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	RPM         *int     `json:"rpm,omitempty"`
	Mileage     *int     `json:"mileage,omitempty"`
	Voltage     *float64 `json:"voltage,omitempty"`
	ThrottlePct *float64 `json:"throttle_pct,omitempty"`
	BrakeStatus *bool    `json:"brake_status,omitempty"`
}

// ParsePayload decodes a JSON telemetry message.
func ParsePayload(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return &p, nil
}

// Ref returns the vehicle lookup reference for this payload.
func (p *Payload) Ref() repository.VehicleRef {
	return repository.VehicleRef{
		ID:           p.VehicleID,
		LicensePlate: p.LicensePlate,
		VIN:          p.VIN,
	}
}

// ParsedTimestamp returns the payload timestamp, or now when absent or
// malformed.
func (p *Payload) ParsedTimestamp(now time.Time) time.Time {
	if p.Timestamp == "" {
		return now
	}
	raw := strings.Replace(p.Timestamp, "Z", "+00:00", 1)
	// Naive timestamps (no zone) are interpreted as UTC.
	for _, layout := range []string{"2006-01-02T15:04:05.999999999-07:00", "2006-01-02T15:04:05.999999999"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return now
}

// Reading converts the payload into a persistable reading for the resolved
// vehicle, normalizing the lat/lng aliases.
func (p *Payload) Reading(vehicleID uint, now time.Time) entities.TelemetryReading {
	lat := p.Latitude
	if lat == nil {
		lat = p.Lat
	}
	lng := p.Longitude
	if lng == nil {
		lng = p.Lng
	}
	return entities.TelemetryReading{
		VehicleID:          vehicleID,
		Timestamp:          p.ParsedTimestamp(now),
		SpeedKmh:           p.SpeedKmh,
		FuelLevelPct:       p.FuelLevelPct,
		EngineTemperatureC: p.EngineTemperatureC,
		Latitude:           lat,
		Longitude:          lng,
		RPM:                p.RPM,
		Mileage:            p.Mileage,
		Voltage:            p.Voltage,
		ThrottlePct:        p.ThrottlePct,
		BrakeStatus:        p.BrakeStatus,
	}
}
