package entities

import "time"

// Runbook action types.
const (
	RunbookMarkAlertRead         = "mark_alert_read"
	RunbookDismissAlert          = "dismiss_alert"
	RunbookCreateMaintenanceTask = "create_maintenance_task"
)

// Playbook holds the suggested operator steps for one alert type.
type Playbook struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	AlertType   string   `gorm:"size:32;not null;uniqueIndex" json:"alert_type"`
	Name        string   `gorm:"size:200;not null" json:"name"`
	Description string   `gorm:"size:1000;default:''" json:"description"`
	Steps       []string `gorm:"serializer:json" json:"steps"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Playbook) TableName() string {
	return "playbooks"
}

// RunbookParams tunes the create_maintenance_task action.
type RunbookParams struct {
	Title           string `json:"title,omitempty"`
	Description     string `json:"description,omitempty"`
	MaintenanceType string `json:"maintenance_type,omitempty"`
	DaysAhead       int    `json:"days_ahead,omitempty"`
	Priority        string `json:"priority,omitempty"`
}

// Runbook is an executable remediation an operator can apply to an alert.
// AlertType scopes the runbook to one alert type; empty means any.
type Runbook struct {
	ID         uint          `gorm:"primaryKey" json:"id"`
	Name       string        `gorm:"size:200;not null;uniqueIndex" json:"name"`
	AlertType  string        `gorm:"size:32;default:'';index" json:"alert_type"`
	ActionType string        `gorm:"size:32;not null" json:"action_type"`
	Params     RunbookParams `gorm:"serializer:json" json:"params"`
	IsActive   bool          `gorm:"not null;default:true;index" json:"is_active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Runbook) TableName() string {
	return "runbooks"
}

// AppliesTo reports whether the runbook can be executed against alertType.
func (r *Runbook) AppliesTo(alertType string) bool {
	return r.IsActive && (r.AlertType == "" || r.AlertType == alertType)
}
