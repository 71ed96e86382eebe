package repository

import (
	"context"
	"time"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
)

// MaxAlertPageSize caps the page size of alert listings.
const MaxAlertPageSize = 200

// AlertFilter controls alert listing queries. Zero values are "no filter".
type AlertFilter struct {
	VehicleID  uint
	AlertType  string
	Severity   string
	UnreadOnly bool
	Since      time.Time
	Limit      int
	Offset     int
}

// AlertRepository persists and queries pattern alerts.
type AlertRepository interface {
	CreateAlert(ctx context.Context, alert *entities.VehicleAlert) error
	// ListAlerts returns one page of alerts, newest first, plus the total
	// number of rows matching the filter. Limit is clamped to
	// MaxAlertPageSize; zero or negative means the cap.
	ListAlerts(ctx context.Context, filter AlertFilter) ([]entities.VehicleAlert, int64, error)
	GetAlert(ctx context.Context, id uint) (*entities.VehicleAlert, error)
	MarkAlertRead(ctx context.Context, id uint) error
	SetSuggestionStatus(ctx context.Context, id uint, status string) error

	// RecentAlertTypes returns the alert types raised for the vehicle at or
	// after since. Used for cooldown dedup.
	RecentAlertTypes(ctx context.Context, vehicleID uint, since time.Time) ([]string, error)
	// HasUnreadAlertSince reports whether the vehicle has an unread alert of
	// the given severity created at or after since.
	HasUnreadAlertSince(ctx context.Context, vehicleID uint, severity string, since time.Time) (bool, error)
	// DeleteReadAlertsBefore removes read alerts older than cutoff and
	// returns the number deleted.
	DeleteReadAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
