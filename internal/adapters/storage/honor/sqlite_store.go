package honor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"refdesk/internal/adapters/storage"
	domain "refdesk/internal/domain/honor"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new honor store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

var _ Store = (*SQLiteStore)(nil)

const honorColumns = `h.id, h.event_id, h.referee_id, h.amount, h.note, h.receipt_key, h.status,
		h.submitted_at, h.verified_by, h.verified_at, h.rejection_reason, h.paid_at`

const detailSelect = `SELECT ` + honorColumns + `, a.full_name, e.title, e.start_date
	FROM honor h
	JOIN account a ON a.id = h.referee_id
	JOIN event e ON e.id = h.event_id`

// GetByID retrieves an honor with its referee and event names.
// POST: Returns the detail or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (Detail, error) {
	row := s.db.QueryRowContext(ctx, detailSelect+` WHERE h.id = ?`, id)
	d, err := scanDetail(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Detail{}, fmt.Errorf("honor not found: %w", err)
	}
	return d, err
}

// GetByEventAndReferee retrieves the single honor for an (event, referee) pair.
// POST: Returns the honor or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByEventAndReferee(ctx context.Context, eventID, refereeID string) (domain.Honor, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+honorColumns+` FROM honor h WHERE h.event_id = ? AND h.referee_id = ?`,
		eventID, refereeID)
	h, err := scanHonor(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Honor{}, fmt.Errorf("honor not found: %w", err)
	}
	return h, err
}

// Save inserts or updates an honor.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, h domain.Honor) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO honor (id, event_id, referee_id, amount, note, receipt_key, status, submitted_at,
		   verified_by, verified_at, rejection_reason, paid_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   amount=excluded.amount, note=excluded.note, receipt_key=excluded.receipt_key,
		   status=excluded.status, submitted_at=excluded.submitted_at, verified_by=excluded.verified_by,
		   verified_at=excluded.verified_at, rejection_reason=excluded.rejection_reason, paid_at=excluded.paid_at`,
		h.ID, h.EventID, h.RefereeID, h.Amount, h.Note, h.ReceiptKey, h.Status,
		storage.FormatTime(h.SubmittedAt), storage.NullableString(h.VerifiedBy),
		storage.NullableTime(h.VerifiedAt), h.RejectionReason, storage.NullableTime(h.PaidAt))
	return err
}

func buildWhere(filter ListFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.EventID != "" {
		clauses = append(clauses, "h.event_id = ?")
		args = append(args, filter.EventID)
	}
	if filter.RefereeID != "" {
		clauses = append(clauses, "h.referee_id = ?")
		args = append(args, filter.RefereeID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "h.status = ?")
		args = append(args, filter.Status)
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns honors matching the filter, most recently submitted first.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]Detail, error) {
	where, args := buildWhere(filter)
	query, args := storage.Paginate(detailSelect+where+` ORDER BY h.submitted_at DESC, h.id`,
		args, filter.Limit, filter.Offset)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Detail
	for rows.Next() {
		d, err := scanDetail(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Count returns the number of honors matching the filter, ignoring pagination.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := buildWhere(filter)
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM honor h`+where, args...).Scan(&n)
	return n, err
}

// Totals returns counts and amount sums keyed by status, optionally for one referee.
func (s *SQLiteStore) Totals(ctx context.Context, refereeID string) (map[string]Total, error) {
	query := `SELECT status, COUNT(*), COALESCE(SUM(amount), 0) FROM honor`
	var args []any
	if refereeID != "" {
		query += ` WHERE referee_id = ?`
		args = append(args, refereeID)
	}
	rows, err := s.db.QueryContext(ctx, query+` GROUP BY status`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Total)
	for rows.Next() {
		var status string
		var t Total
		if err := rows.Scan(&status, &t.Count, &t.Amount); err != nil {
			return nil, err
		}
		out[status] = t
	}
	return out, rows.Err()
}

func scanHonor(scan func(dest ...any) error) (domain.Honor, error) {
	var h domain.Honor
	dest, finish := honorDest(&h)
	if err := scan(dest...); err != nil {
		return domain.Honor{}, err
	}
	finish()
	return h, nil
}

func scanDetail(scan func(dest ...any) error) (Detail, error) {
	var d Detail
	dest, finish := honorDest(&d.Honor)
	dest = append(dest, &d.RefereeName, &d.EventTitle, &d.EventStart)
	if err := scan(dest...); err != nil {
		return Detail{}, err
	}
	finish()
	return d, nil
}

// honorDest returns scan targets for honorColumns and a func converting the raw values.
func honorDest(h *domain.Honor) ([]any, func()) {
	var submittedAt string
	var verifiedBy, verifiedAt, paidAt sql.NullString
	dest := []any{&h.ID, &h.EventID, &h.RefereeID, &h.Amount, &h.Note, &h.ReceiptKey, &h.Status,
		&submittedAt, &verifiedBy, &verifiedAt, &h.RejectionReason, &paidAt}
	return dest, func() {
		h.SubmittedAt = storage.ParseTime(submittedAt, "honor", "submitted_at", h.ID)
		h.VerifiedBy = verifiedBy.String
		h.VerifiedAt = storage.ParseNullableTime(verifiedAt, "honor", "verified_at", h.ID)
		h.PaidAt = storage.ParseNullableTime(paidAt, "honor", "paid_at", h.ID)
	}
}
