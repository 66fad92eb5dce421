package referee

import (
	"context"

	domain "refdesk/internal/domain/referee"
)

// Store persists referee profiles. Name, email and phone are read from the
// owning account.
type Store interface {
	GetByAccountID(ctx context.Context, accountID string) (domain.Profile, error)
	Save(ctx context.Context, p domain.Profile) error
	List(ctx context.Context, filter ListFilter) ([]domain.Profile, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Search       string // matches name, email or license number
	LicenseLevel string
	Region       string
	ActiveOnly   bool // profile active and account active
	Limit        int
	Offset       int
}
