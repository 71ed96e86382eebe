package entities

import "time"

// Vehicle statuses.
const (
	VehicleStatusActive           = "active"
	VehicleStatusInactive         = "inactive"
	VehicleStatusUnderMaintenance = "under_maintenance"
	VehicleStatusRetired          = "retired"
)

// VehicleType groups vehicles that share maintenance intervals.
type VehicleType struct {
	ID                      uint      `gorm:"primaryKey" json:"id"`
	Name                    string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description             string    `gorm:"size:1000;default:''" json:"description"`
	MaintenanceIntervalDays int       `gorm:"not null;default:90" json:"maintenance_interval_days"`
	MaintenanceIntervalKm   int       `gorm:"not null;default:10000" json:"maintenance_interval_km"`
	CreatedAt               time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (VehicleType) TableName() string {
	return "vehicle_types"
}

// Vehicle is a registered fleet vehicle. Deletion is soft: retired vehicles
// keep their telemetry and alert history.
type Vehicle struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	LicensePlate  string `gorm:"size:20;not null;uniqueIndex" json:"license_plate"`
	VIN           string `gorm:"size:17;not null;uniqueIndex" json:"vin"`
	Make          string `gorm:"size:100;not null" json:"make"`
	Model         string `gorm:"size:100;not null" json:"model"`
	Year          int    `gorm:"not null" json:"year"`
	Status        string `gorm:"size:20;not null;default:'active';index" json:"status"`
	CurrentMileage int   `gorm:"not null;default:0" json:"current_mileage"`

	VehicleTypeID *uint        `gorm:"index" json:"vehicle_type_id"`
	VehicleType   *VehicleType `gorm:"foreignKey:VehicleTypeID" json:"vehicle_type,omitempty"`

	IsDeleted       bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	LastTelemetryAt *time.Time `json:"last_telemetry_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Vehicle) TableName() string {
	return "vehicles"
}

// DisplayName returns a human-friendly identifier for notifications.
func (v *Vehicle) DisplayName() string {
	if v.Make == "" && v.Model == "" {
		return v.LicensePlate
	}
	return v.Make + " " + v.Model + " (" + v.LicensePlate + ")"
}

// EngineOn reports whether the vehicle sent telemetry within threshold of now.
func (v *Vehicle) EngineOn(now time.Time, threshold time.Duration) bool {
	if v.LastTelemetryAt == nil {
		return false
	}
	return now.Sub(*v.LastTelemetryAt) < threshold
}
