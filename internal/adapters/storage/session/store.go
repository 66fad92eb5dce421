// Package session persists revoked session token IDs.
package session

import (
	"context"
	"time"
)

// RevocationStore records token IDs that were signed out before expiry.
type RevocationStore interface {
	// Revoke marks jti as unusable until expiresAt.
	// POST: IsRevoked(jti) is true until the row is purged
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error

	// IsRevoked reports whether jti was revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// PurgeExpired removes revocations whose token has expired by now.
	// POST: Returns the number of rows removed
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
