package assignment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"refdesk/internal/adapters/storage"
	eventstore "refdesk/internal/adapters/storage/event"
	domain "refdesk/internal/domain/assignment"
	eventdomain "refdesk/internal/domain/event"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new assignment store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

var _ Store = (*SQLiteStore)(nil)

const detailSelect = `SELECT s.id, s.event_id, s.referee_id, s.role, s.status, s.assigned_by, s.note,
		s.created_at, s.responded_at, s.updated_at, a.full_name, a.email, ` + eventstore.Columns + `
	FROM assignment s
	JOIN account a ON a.id = s.referee_id
	JOIN event e ON e.id = s.event_id`

// bookingWhere selects assignments that occupy a referee's dates.
const bookingWhere = `s.status IN ('pending', 'confirmed') AND e.status NOT IN ('cancelled', 'rejected')`

// GetByID retrieves an assignment with its referee and event.
// POST: Returns the detail or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (Detail, error) {
	row := s.db.QueryRowContext(ctx, detailSelect+` WHERE s.id = ?`, id)
	d, err := scanDetail(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Detail{}, fmt.Errorf("assignment not found: %w", err)
	}
	return d, err
}

// Create books a referee onto an event.
// A previous declined or cancelled row for the same pair is reused.
// Event status and quota are read under the write lock.
// PRE: a has been validated; a.Status is pending
// POST: the booking is stored, or event.ErrNotApproved, ErrAlreadyAssigned,
// ErrQuotaFull or ErrScheduleConflict is returned and nothing changes
func (s *SQLiteStore) Create(ctx context.Context, a domain.Assignment) (domain.Assignment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Assignment{}, err
	}
	defer tx.Rollback()

	// Take the write lock before reading so concurrent assigners serialize.
	res, err := tx.ExecContext(ctx, `UPDATE event SET id = id WHERE id = ?`, a.EventID)
	if err != nil {
		return domain.Assignment{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Assignment{}, fmt.Errorf("event not found: %w", sql.ErrNoRows)
	}

	var eventStatus string
	var quota int
	if err := tx.QueryRowContext(ctx,
		`SELECT status, referee_quota FROM event WHERE id = ?`, a.EventID).Scan(&eventStatus, &quota); err != nil {
		return domain.Assignment{}, err
	}
	if eventStatus != eventdomain.StatusApproved {
		return domain.Assignment{}, eventdomain.ErrNotApproved
	}

	var existingID, existingStatus string
	err = tx.QueryRowContext(ctx,
		`SELECT id, status FROM assignment WHERE event_id = ? AND referee_id = ?`,
		a.EventID, a.RefereeID).Scan(&existingID, &existingStatus)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return domain.Assignment{}, err
	case existingStatus == domain.StatusPending || existingStatus == domain.StatusConfirmed:
		return domain.Assignment{}, domain.ErrAlreadyAssigned
	default:
		a.ID = existingID
	}

	if a.Role == domain.RolePrimary {
		var booked int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM assignment
			 WHERE event_id = ? AND role = 'primary' AND status IN ('pending', 'confirmed')`,
			a.EventID).Scan(&booked); err != nil {
			return domain.Assignment{}, err
		}
		if booked >= quota {
			return domain.Assignment{}, domain.ErrQuotaFull
		}
	}

	var conflictTitle, conflictStart string
	err = tx.QueryRowContext(ctx,
		`SELECT e.title, e.start_date
		 FROM assignment s JOIN event e ON e.id = s.event_id
		 JOIN event t ON t.id = ?
		 WHERE s.referee_id = ? AND e.id != t.id AND `+bookingWhere+`
		   AND e.start_date <= t.end_date AND e.end_date >= t.start_date
		 ORDER BY e.start_date LIMIT 1`,
		a.EventID, a.RefereeID).Scan(&conflictTitle, &conflictStart)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return domain.Assignment{}, err
	default:
		return domain.Assignment{}, fmt.Errorf("%w: %s (%s)", domain.ErrScheduleConflict, conflictTitle, conflictStart)
	}

	if err := upsert(ctx, tx, a); err != nil {
		return domain.Assignment{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Assignment{}, err
	}
	return a, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, a domain.Assignment) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO assignment (id, event_id, referee_id, role, status, assigned_by, note, created_at, responded_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   role=excluded.role, status=excluded.status, assigned_by=excluded.assigned_by, note=excluded.note,
		   created_at=excluded.created_at, responded_at=excluded.responded_at, updated_at=excluded.updated_at`,
		a.ID, a.EventID, a.RefereeID, a.Role, a.Status, a.AssignedBy, a.Note,
		storage.FormatTime(a.CreatedAt), storage.NullableTime(a.RespondedAt), storage.NullableTime(a.UpdatedAt))
	return err
}

// Save updates an assignment's mutable fields.
// PRE: entity has been validated
func (s *SQLiteStore) Save(ctx context.Context, a domain.Assignment) error {
	return upsert(ctx, s.db, a)
}

func buildWhere(filter ListFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.EventID != "" {
		clauses = append(clauses, "s.event_id = ?")
		args = append(args, filter.EventID)
	}
	if filter.RefereeID != "" {
		clauses = append(clauses, "s.referee_id = ?")
		args = append(args, filter.RefereeID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "s.status = ?")
		args = append(args, filter.Status)
	}
	if !filter.From.IsZero() {
		clauses = append(clauses, "e.end_date >= ?")
		args = append(args, filter.From.Format(storage.DateLayout))
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, "e.start_date <= ?")
		args = append(args, filter.To.Format(storage.DateLayout))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns assignments matching the filter ordered by event start date.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]Detail, error) {
	where, args := buildWhere(filter)
	query, args := storage.Paginate(detailSelect+where+` ORDER BY e.start_date, s.role DESC, a.full_name, s.id`,
		args, filter.Limit, filter.Offset)
	return s.queryDetails(ctx, query, args...)
}

// Count returns the number of assignments matching the filter, ignoring pagination.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := buildWhere(filter)
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assignment s JOIN event e ON e.id = s.event_id`+where, args...).Scan(&n)
	return n, err
}

// ListBookings returns every booking whose event overlaps [from, to].
// POST: only pending/confirmed assignments on events that still book referees
func (s *SQLiteStore) ListBookings(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
	details, err := s.queryDetails(ctx, detailSelect+` WHERE `+bookingWhere+`
		 AND e.end_date >= ? AND e.start_date <= ?`,
		from.Format(storage.DateLayout), to.Format(storage.DateLayout))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Booking, 0, len(details))
	for _, d := range details {
		out = append(out, domain.Booking{Assignment: d.Assignment, Event: d.Event})
	}
	return out, nil
}

// CancelEvent stores e's cancellation and cancels every booking on it in one
// transaction. It returns the bookings as they were before cancellation.
// PRE: e.Status is cancelled with its decision fields set
// POST: the event is cancelled and no pending or confirmed assignment remains
// on it, or event.ErrNotCancellable is returned when the stored event was no
// longer pending or approved
func (s *SQLiteStore) CancelEvent(ctx context.Context, e eventdomain.Event) ([]Detail, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE event SET status = 'cancelled', decided_by = ?, decided_at = ?, decision_note = ?, updated_at = ?
		 WHERE id = ? AND status IN ('pending', 'approved')`,
		storage.NullableString(e.DecidedBy), storage.NullableTime(e.DecidedAt), e.DecisionNote,
		storage.NullableTime(e.UpdatedAt), e.ID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, eventdomain.ErrNotCancellable
	}

	details, err := queryDetails(ctx, tx, detailSelect+` WHERE s.event_id = ? AND s.status IN ('pending', 'confirmed')`, e.ID)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE assignment SET status = 'cancelled', updated_at = ?
		 WHERE event_id = ? AND status IN ('pending', 'confirmed')`,
		storage.FormatTime(e.UpdatedAt), e.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return details, nil
}

// HasConfirmed reports whether the referee holds a confirmed assignment on the event.
func (s *SQLiteStore) HasConfirmed(ctx context.Context, eventID, refereeID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assignment WHERE event_id = ? AND referee_id = ? AND status = 'confirmed'`,
		eventID, refereeID).Scan(&n)
	return n > 0, err
}

// CountByStatus returns assignment totals keyed by status.
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM assignment GROUP BY status`)
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

// TopReferees returns the referees with the most confirmed assignments.
// PRE: limit > 0
func (s *SQLiteStore) TopReferees(ctx context.Context, limit int) ([]RefereeCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.referee_id, a.full_name, COUNT(*) AS n
		 FROM assignment s JOIN account a ON a.id = s.referee_id
		 WHERE s.status = 'confirmed'
		 GROUP BY s.referee_id, a.full_name
		 ORDER BY n DESC, a.full_name
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RefereeCount
	for rows.Next() {
		var rc RefereeCount
		if err := rows.Scan(&rc.RefereeID, &rc.Name, &rc.Count); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteStore) queryDetails(ctx context.Context, query string, args ...any) ([]Detail, error) {
	return queryDetails(ctx, s.db, query, args...)
}

func queryDetails(ctx context.Context, q querier, query string, args ...any) ([]Detail, error) {
	rows, err := q.QueryContext(ctx, query, args...)
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

// scanDetail scans assignment and referee columns, then hands the rest to the event scanner.
func scanDetail(scan func(dest ...any) error) (Detail, error) {
	var d Detail
	a := &d.Assignment
	var createdAt string
	var respondedAt, updatedAt sql.NullString
	head := []any{&a.ID, &a.EventID, &a.RefereeID, &a.Role, &a.Status, &a.AssignedBy, &a.Note,
		&createdAt, &respondedAt, &updatedAt, &d.RefereeName, &d.RefereeEmail}

	ev, err := eventstore.ScanEvent(func(rest ...any) error {
		return scan(append(head, rest...)...)
	})
	if err != nil {
		return Detail{}, err
	}
	d.Event = ev
	a.CreatedAt = storage.ParseTime(createdAt, "assignment", "created_at", a.ID)
	a.RespondedAt = storage.ParseNullableTime(respondedAt, "assignment", "responded_at", a.ID)
	a.UpdatedAt = storage.ParseNullableTime(updatedAt, "assignment", "updated_at", a.ID)
	return d, nil
}
