package honor

import (
	"context"

	domain "refdesk/internal/domain/honor"
)

// Store persists honor claims.
type Store interface {
	GetByID(ctx context.Context, id string) (Detail, error)
	GetByEventAndReferee(ctx context.Context, eventID, refereeID string) (domain.Honor, error)
	Save(ctx context.Context, h domain.Honor) error
	List(ctx context.Context, filter ListFilter) ([]Detail, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	Totals(ctx context.Context, refereeID string) (map[string]Total, error)
}

// Detail is an honor joined with its referee and event names.
type Detail struct {
	Honor       domain.Honor
	RefereeName string
	EventTitle  string
	EventStart  string // YYYY-MM-DD
}

// Total aggregates honors sharing a status.
type Total struct {
	Count  int
	Amount int64
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	EventID   string
	RefereeID string
	Status    string
	Limit     int
	Offset    int
}
