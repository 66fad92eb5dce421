package audit

import (
	"context"
	"time"

	domain "refdesk/internal/domain/audit"
)

// Store defines the interface for audit event persistence.
type Store interface {
	// Save persists an audit event.
	Save(ctx context.Context, event domain.Event) error

	// List returns audit events with optional filtering.
	// POST: Returns events ordered by timestamp desc
	List(ctx context.Context, filter Filter) ([]domain.Event, error)

	// Count returns the number of events matching the filter, ignoring pagination.
	Count(ctx context.Context, filter Filter) (int, error)
}

// Filter defines query parameters for listing audit events.
type Filter struct {
	Category   domain.Category
	Action     domain.Action
	ActorID    string
	ResourceID string
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}
