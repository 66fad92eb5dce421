package outbox

import (
	"context"
	"time"

	domain "refdesk/internal/domain/outbox"
)

// Store defines the interface for outbox entry persistence.
type Store interface {
	// GetByID retrieves an outbox entry by its ID.
	// PRE: id is non-empty
	// POST: Returns the entry or an error wrapping sql.ErrNoRows
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Save persists an outbox entry to the database.
	// PRE: entity has been validated
	// POST: Entity is persisted (insert or update)
	Save(ctx context.Context, e domain.Entry) error

	// ListDue returns pending or retrying entries whose next attempt is due at now.
	// PRE: limit > 0
	// POST: Returns up to limit entries, oldest first
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Entry, error)

	// ListFailed returns entries that have permanently failed.
	// PRE: limit > 0
	// POST: Returns up to limit failed entries, most recent attempt first
	ListFailed(ctx context.Context, limit int) ([]domain.Entry, error)

	// CountUndelivered returns the number of pending or retrying entries.
	CountUndelivered(ctx context.Context) (int, error)
}
