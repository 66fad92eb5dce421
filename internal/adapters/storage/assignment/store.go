package assignment

import (
	"context"
	"time"

	domain "refdesk/internal/domain/assignment"
	eventdomain "refdesk/internal/domain/event"
)

// Store persists assignments. Create re-checks event status, quota and
// schedule conflicts inside a write transaction.
type Store interface {
	GetByID(ctx context.Context, id string) (Detail, error)
	Create(ctx context.Context, a domain.Assignment) (domain.Assignment, error)
	Save(ctx context.Context, a domain.Assignment) error
	List(ctx context.Context, filter ListFilter) ([]Detail, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	ListBookings(ctx context.Context, from, to time.Time) ([]domain.Booking, error)
	CancelEvent(ctx context.Context, e eventdomain.Event) ([]Detail, error)
	HasConfirmed(ctx context.Context, eventID, refereeID string) (bool, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	TopReferees(ctx context.Context, limit int) ([]RefereeCount, error)
}

// Detail is an assignment joined with its referee and event.
type Detail struct {
	Assignment   domain.Assignment
	RefereeName  string
	RefereeEmail string
	Event        eventdomain.Event
}

// RefereeCount is a referee with their confirmed assignment total.
type RefereeCount struct {
	RefereeID string
	Name      string
	Count     int
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	EventID   string
	RefereeID string
	Status    string
	From      time.Time // event ends on or after
	To        time.Time // event starts on or before
	Limit     int
	Offset    int
}
