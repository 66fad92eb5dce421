package referee

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"refdesk/internal/adapters/storage"
	domain "refdesk/internal/domain/referee"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new referee profile store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

var _ Store = (*SQLiteStore)(nil)

const profileSelect = `SELECT p.account_id, a.full_name, a.email, a.phone, p.license_level, p.license_number,
		p.region, p.active, p.updated_at
	FROM referee_profile p JOIN account a ON a.id = p.account_id`

// GetByAccountID retrieves the profile owned by an account.
// PRE: accountID is non-empty
// POST: Returns the profile or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByAccountID(ctx context.Context, accountID string) (domain.Profile, error) {
	row := s.db.QueryRowContext(ctx, profileSelect+` WHERE p.account_id = ?`, accountID)
	p, err := scanProfile(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, fmt.Errorf("referee profile not found: %w", err)
	}
	return p, err
}

// Save inserts or updates the profile row.
// PRE: profile has been validated; the account exists
// POST: license fields, region, active flag and updated_at persisted
func (s *SQLiteStore) Save(ctx context.Context, p domain.Profile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO referee_profile (account_id, license_level, license_number, region, active, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(account_id) DO UPDATE SET
		   license_level=excluded.license_level, license_number=excluded.license_number,
		   region=excluded.region, active=excluded.active, updated_at=excluded.updated_at`,
		p.AccountID, p.LicenseLevel, p.LicenseNumber, p.Region, storage.BoolToInt(p.Active),
		storage.FormatTime(p.UpdatedAt))
	return err
}

func buildWhere(filter ListFilter) (string, []any) {
	var clauses []string
	var args []any
	if q := strings.TrimSpace(filter.Search); q != "" {
		like := "%" + q + "%"
		clauses = append(clauses, "(a.full_name LIKE ? OR a.email LIKE ? OR p.license_number LIKE ?)")
		args = append(args, like, like, like)
	}
	if filter.LicenseLevel != "" {
		clauses = append(clauses, "p.license_level = ?")
		args = append(args, filter.LicenseLevel)
	}
	if filter.Region != "" {
		clauses = append(clauses, "p.region = ?")
		args = append(args, filter.Region)
	}
	if filter.ActiveOnly {
		clauses = append(clauses, "p.active = 1 AND a.status = 'active'")
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns profiles matching the filter ordered by name.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Profile, error) {
	where, args := buildWhere(filter)
	query, args := storage.Paginate(profileSelect+where+` ORDER BY a.full_name, p.account_id`,
		args, filter.Limit, filter.Offset)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count returns the number of profiles matching the filter, ignoring pagination.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := buildWhere(filter)
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM referee_profile p JOIN account a ON a.id = p.account_id`+where, args...).Scan(&n)
	return n, err
}

func scanProfile(scan func(dest ...any) error) (domain.Profile, error) {
	var p domain.Profile
	var active int
	var updatedAt string
	if err := scan(&p.AccountID, &p.FullName, &p.Email, &p.Phone, &p.LicenseLevel, &p.LicenseNumber,
		&p.Region, &active, &updatedAt); err != nil {
		return domain.Profile{}, err
	}
	p.Active = active != 0
	p.UpdatedAt = storage.ParseTime(updatedAt, "referee_profile", "updated_at", p.AccountID)
	return p, nil
}
