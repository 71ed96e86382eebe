package entities

import "time"

// Maintenance task statuses.
const (
	TaskStatusScheduled  = "scheduled"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
	TaskStatusOverdue    = "overdue"
)

// Maintenance task types.
const (
	MaintenancePreventive = "preventive"
	MaintenanceCorrective = "corrective"
)

// Task priorities.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// MaintenanceTask is a scheduled or completed service job on a vehicle.
// Completed tasks anchor the maintenance-due checks: the engine measures
// mileage and days since the most recent completion.
type MaintenanceTask struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	VehicleID       uint   `gorm:"not null;index" json:"vehicle_id"`
	Title           string `gorm:"size:200;not null" json:"title"`
	Description     string `gorm:"type:text;default:''" json:"description"`
	MaintenanceType string `gorm:"size:20;not null;default:'preventive'" json:"maintenance_type"`
	Status          string `gorm:"size:20;not null;default:'scheduled';index" json:"status"`
	Priority        string `gorm:"size:16;not null;default:'medium'" json:"priority"`

	ScheduledDate  *time.Time `gorm:"index" json:"scheduled_date,omitempty"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
	// MileageAtMaintenance is the odometer reading when the task completed.
	MileageAtMaintenance *int `json:"mileage_at_maintenance,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Vehicle *Vehicle `gorm:"foreignKey:VehicleID;constraint:OnDelete:CASCADE" json:"vehicle,omitempty"`
}

// TableName returns the table name for GORM.
func (MaintenanceTask) TableName() string {
	return "maintenance_tasks"
}
