package entities

import "time"

// Alert types produced by the pattern engine.
const (
	AlertTypeHighEngineTemp     = "high_engine_temp"
	AlertTypeAnomalousFuel      = "anomalous_fuel"
	AlertTypeHarshDriving       = "harsh_driving"
	AlertTypeProlongedIdle      = "prolonged_idle"
	AlertTypeMaintenanceMileage = "maintenance_mileage"
	AlertTypeMaintenanceTime    = "maintenance_time"
	AlertTypeStatisticalAnomaly = "statistical_anomaly"
)

// AlertTypes lists every alert type, in evaluation order.
var AlertTypes = []string{
	AlertTypeHighEngineTemp,
	AlertTypeAnomalousFuel,
	AlertTypeHarshDriving,
	AlertTypeProlongedIdle,
	AlertTypeMaintenanceMileage,
	AlertTypeMaintenanceTime,
	AlertTypeStatisticalAnomaly,
}

// Alert severities, ordered from least to most urgent.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// SeverityRank maps a severity to its ordinal for comparisons; unknown
// severities rank lowest.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Suggestion statuses for maintenance-due alerts.
const (
	SuggestionPending   = "pending"
	SuggestionAccepted  = "accepted"
	SuggestionDismissed = "dismissed"
)

// VehicleAlert is a persisted record of a triggered pattern.
type VehicleAlert struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	VehicleID uint   `gorm:"not null;index:idx_alert_vehicle_ts,priority:1" json:"vehicle_id"`
	AlertType string `gorm:"size:32;not null;index" json:"alert_type"`
	Severity  string `gorm:"size:16;not null;default:'medium';index" json:"severity"`
	Message   string `gorm:"type:text;not null" json:"message"`
	// Confidence is a 0-1 score; nil when the check does not estimate one.
	Confidence *float64 `json:"confidence,omitempty"`
	// TimeframeText is a short horizon hint, e.g. "Within 500 km".
	TimeframeText string `gorm:"size:128;default:''" json:"timeframe_text"`
	// SuggestionStatus tracks the accept/dismiss workflow on maintenance
	// suggestions; nil for alert types without a suggestion.
	SuggestionStatus *string `gorm:"size:16;index" json:"suggestion_status,omitempty"`

	CreatedAt time.Time  `gorm:"autoCreateTime;index:idx_alert_vehicle_ts,priority:2" json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`

	Vehicle *Vehicle `gorm:"foreignKey:VehicleID;constraint:OnDelete:CASCADE" json:"vehicle,omitempty"`
}

// TableName returns the table name for GORM.
func (VehicleAlert) TableName() string {
	return "vehicle_alerts"
}

// IsRead reports whether the alert has been acknowledged.
func (a *VehicleAlert) IsRead() bool {
	return a.ReadAt != nil
}
