package session

import (
	"context"
	"time"

	"refdesk/internal/adapters/storage"
)

// SQLiteStore implements RevocationStore using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new revocation store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

var _ RevocationStore = (*SQLiteStore)(nil)

// Revoke marks jti as unusable until expiresAt. Revoking twice is a no-op.
func (s *SQLiteStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO revoked_token (jti, expires_at) VALUES (?, ?) ON CONFLICT(jti) DO NOTHING`,
		jti, storage.FormatTime(expiresAt))
	return err
}

// IsRevoked reports whether jti was revoked.
func (s *SQLiteStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM revoked_token WHERE jti = ?`, jti).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// PurgeExpired removes revocations for tokens that have expired.
func (s *SQLiteStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM revoked_token WHERE expires_at <= ?`, storage.FormatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
