package entities

import "time"

// TelemetryReading is one timestamped sensor snapshot for a vehicle.
// Sensor fields are pointers: a nil value means the sensor did not report,
// which the pattern checks treat differently from zero.
type TelemetryReading struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	VehicleID uint      `gorm:"not null;index:idx_telemetry_vehicle_ts,priority:1" json:"vehicle_id"`
	Timestamp time.Time `gorm:"not null;index:idx_telemetry_vehicle_ts,priority:2" json:"timestamp"`

	SpeedKmh           *float64 `json:"speed_kmh,omitempty"`
	FuelLevelPct       *float64 `json:"fuel_level_pct,omitempty"`
	EngineTemperatureC *float64 `json:"engine_temperature_c,omitempty"`
	Latitude           *float64 `json:"latitude,omitempty"`
	Longitude          *float64 `json:"longitude,omitempty"`
	RPM                *int     `json:"rpm,omitempty"`
	Mileage            *int     `json:"mileage,omitempty"`
	Voltage            *float64 `json:"voltage,omitempty"`
	ThrottlePct        *float64 `json:"throttle_pct,omitempty"`
	BrakeStatus        *bool    `json:"brake_status,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
}

// TableName returns the table name for GORM.
func (TelemetryReading) TableName() string {
	return "telemetry_readings"
}
