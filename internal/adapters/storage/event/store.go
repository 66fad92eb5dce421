package event

import (
	"context"
	"time"

	domain "refdesk/internal/domain/event"
)

// Store persists Event state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Event, error)
	Save(ctx context.Context, e domain.Event) error
	List(ctx context.Context, filter ListFilter) ([]domain.Event, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	CountByStatus(ctx context.Context, submittedBy string) (map[string]int, error)
	CountByMonth(ctx context.Context, from time.Time) (map[string]int, error)
}

// ListFilter carries filtering parameters for List operations.
// From/To select events overlapping the inclusive date range.
type ListFilter struct {
	Status      string
	Level       string
	SubmittedBy string
	Search      string // matches title, venue or city
	From        time.Time
	To          time.Time
	EndedBefore time.Time // end_date strictly before this date
	Limit       int
	Offset      int
}
