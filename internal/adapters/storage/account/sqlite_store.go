package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"refdesk/internal/adapters/storage"
	domain "refdesk/internal/domain/account"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new account store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

var _ Store = (*SQLiteStore)(nil)

const accountColumns = `id, email, password_hash, role, status, full_name, phone, created_at,
		decided_by, decided_at, decision_note, failed_logins, locked_until, password_change_required`

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM account WHERE id = ?`, id)
	entity, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	return entity, err
}

// GetByEmail retrieves an Account by normalised email.
// PRE: email is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows if not found
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM account WHERE email = ?`, domain.NormalizeEmail(email))
	entity, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	return entity, err
}

// Save persists an Account to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, a domain.Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO account (`+accountColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   email=excluded.email, password_hash=excluded.password_hash, role=excluded.role,
		   status=excluded.status, full_name=excluded.full_name, phone=excluded.phone,
		   decided_by=excluded.decided_by, decided_at=excluded.decided_at,
		   decision_note=excluded.decision_note, failed_logins=excluded.failed_logins,
		   locked_until=excluded.locked_until, password_change_required=excluded.password_change_required`,
		a.ID, domain.NormalizeEmail(a.Email), a.PasswordHash, a.Role, a.Status, a.FullName, a.Phone,
		storage.FormatTime(a.CreatedAt), storage.NullableString(a.DecidedBy), storage.NullableTime(a.DecidedAt),
		a.DecisionNote, a.FailedLogins, storage.NullableTime(a.LockedUntil),
		storage.BoolToInt(a.PasswordChangeRequired))
	return err
}

func buildWhere(filter ListFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Role != "" {
		clauses = append(clauses, "role = ?")
		args = append(args, filter.Role)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		clauses = append(clauses, "(full_name LIKE ? OR email LIKE ?)")
		like := "%" + q + "%"
		args = append(args, like, like)
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List retrieves Accounts based on the filter.
// POST: Returns matching entities, newest first
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Account, error) {
	where, args := buildWhere(filter)
	query, args := storage.Paginate(`SELECT `+accountColumns+` FROM account`+where+` ORDER BY created_at DESC, id`,
		args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Account
	for rows.Next() {
		entity, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// Count returns the number of accounts matching the filter, ignoring pagination.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := buildWhere(filter)
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM account`+where, args...).Scan(&count)
	return count, err
}

// CountByStatus returns account totals keyed by status.
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM account GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

// scanAccount extracts an Account from a row scanner function.
func scanAccount(scan func(dest ...any) error) (domain.Account, error) {
	var a domain.Account
	var createdAt string
	var decidedBy, decidedAt, lockedUntil sql.NullString
	var pwChange int
	err := scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.Status, &a.FullName, &a.Phone, &createdAt,
		&decidedBy, &decidedAt, &a.DecisionNote, &a.FailedLogins, &lockedUntil, &pwChange)
	if err != nil {
		return domain.Account{}, err
	}
	a.CreatedAt = storage.ParseTime(createdAt, "account", "created_at", a.ID)
	a.DecidedBy = decidedBy.String
	a.DecidedAt = storage.ParseNullableTime(decidedAt, "account", "decided_at", a.ID)
	a.LockedUntil = storage.ParseNullableTime(lockedUntil, "account", "locked_until", a.ID)
	a.PasswordChangeRequired = pwChange != 0
	return a, nil
}
