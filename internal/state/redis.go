// Package state mirrors live vehicle status into Redis: latest telemetry
// hash per vehicle, a fleet geo set, pub/sub fan-out, and the shared alert
// dedup keys that survive process restarts.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/redis/go-redis/v9"
)

const (
	// GeoKey is the sorted set holding last known vehicle positions.
	GeoKey = "fleet:geo"
	// TelemetryChannel receives every accepted reading as JSON.
	TelemetryChannel = "fleet:telemetry"
	// AlertChannel receives every persisted alert as JSON.
	AlertChannel = "fleet:alerts"

	defaultStateTTL = 90 * time.Second
)

// Store wraps the Redis client with fleet-specific operations.
type Store struct {
	client   *redis.Client
	stateTTL time.Duration
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, addr, password string, db int, stateTTL time.Duration) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 5,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if stateTTL <= 0 {
		stateTTL = defaultStateTTL
	}
	return &Store{client: client, stateTTL: stateTTL}, nil
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks connectivity for health endpoints.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func stateKey(vehicleID uint) string {
	return fmt.Sprintf("vehicle:%d:state", vehicleID)
}

func dedupKey(vehicleID uint, alertType string) string {
	return fmt.Sprintf("alert:%d:%s", vehicleID, alertType)
}

// UpdateVehicleState writes the reading into the vehicle state hash,
// refreshes its TTL, updates the geo set, and publishes the reading. All
// four commands run in one pipeline.
func (s *Store) UpdateVehicleState(ctx context.Context, vehicle *entities.Vehicle, reading *entities.TelemetryReading) error {
	stateData := map[string]any{
		"vehicle_id":    vehicle.ID,
		"license_plate": vehicle.LicensePlate,
		"timestamp":     reading.Timestamp.Unix(),
	}
	if reading.SpeedKmh != nil {
		stateData["speed_kmh"] = *reading.SpeedKmh
	}
	if reading.FuelLevelPct != nil {
		stateData["fuel_level_pct"] = *reading.FuelLevelPct
	}
	if reading.EngineTemperatureC != nil {
		stateData["engine_temperature_c"] = *reading.EngineTemperatureC
	}
	if reading.RPM != nil {
		stateData["rpm"] = *reading.RPM
	}
	if reading.Mileage != nil {
		stateData["mileage"] = *reading.Mileage
	}
	if reading.Latitude != nil {
		stateData["lat"] = *reading.Latitude
	}
	if reading.Longitude != nil {
		stateData["lng"] = *reading.Longitude
	}

	pubPayload, err := json.Marshal(stateData)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, stateKey(vehicle.ID), stateData)
	pipe.Expire(ctx, stateKey(vehicle.ID), s.stateTTL)
	if reading.Latitude != nil && reading.Longitude != nil {
		pipe.GeoAdd(ctx, GeoKey, &redis.GeoLocation{
			Name:      fmt.Sprintf("%d", vehicle.ID),
			Latitude:  *reading.Latitude,
			Longitude: *reading.Longitude,
		})
	}
	pipe.Publish(ctx, TelemetryChannel, pubPayload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// GetVehicleState returns the live state hash for a vehicle, or nil when
// the vehicle has not reported within the TTL.
func (s *Store) GetVehicleState(ctx context.Context, vehicleID uint) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, stateKey(vehicleID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis state read failed: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

// CheckAlertDedup reports whether an alert of this type was recently raised
// for the vehicle.
func (s *Store) CheckAlertDedup(ctx context.Context, vehicleID uint, alertType string) (bool, error) {
	count, err := s.client.Exists(ctx, dedupKey(vehicleID, alertType)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return count > 0, nil
}

// SetAlertDedup marks the (vehicle, alert type) pair as recently alerted.
func (s *Store) SetAlertDedup(ctx context.Context, vehicleID uint, alertType string, ttl time.Duration) error {
	return s.client.Set(ctx, dedupKey(vehicleID, alertType), "1", ttl).Err()
}

// PublishAlert broadcasts a persisted alert on the alert channel.
func (s *Store) PublishAlert(ctx context.Context, alert *entities.VehicleAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	return s.client.Publish(ctx, AlertChannel, payload).Err()
}
