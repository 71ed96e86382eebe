// Package notification maintains the in-app notification feed and pushes
// high-priority entries to external channels via shoutrrr URLs.
package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification types.
const (
	TypeInfo    = "info"
	TypeWarning = "warning"
	TypeError   = "error"
	TypeAlert   = "alert"
)

// Notification priorities, ordered low to critical.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// PriorityRank orders priorities for comparison; unknown ranks lowest.
func PriorityRank(priority string) int {
	switch priority {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Notification is one feed entry.
type Notification struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Priority  string         `json:"priority"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewNotification creates a feed entry with a fresh ID.
func NewNotification(notifType, priority, title, message string) *Notification {
	return &Notification{
		ID:        uuid.NewString(),
		Type:      notifType,
		Priority:  priority,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
	}
}

// WithMetadata attaches a metadata key, allocating the map lazily.
func (n *Notification) WithMetadata(key string, value any) *Notification {
	if n.Metadata == nil {
		n.Metadata = make(map[string]any)
	}
	n.Metadata[key] = value
	return n
}
