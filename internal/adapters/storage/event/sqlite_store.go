package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"refdesk/internal/adapters/storage"
	domain "refdesk/internal/domain/event"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new event store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

var _ Store = (*SQLiteStore)(nil)

// Columns is the select list understood by ScanEvent, for joins in other stores.
const Columns = `e.id, e.title, e.description, e.venue, e.city, e.start_date, e.end_date, e.level,
		e.referee_quota, e.status, e.submitted_by, e.decided_by, e.decided_at, e.decision_note,
		e.created_at, e.updated_at`

// GetByID retrieves an event by ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+Columns+` FROM event e WHERE e.id = ?`, id)
	ev, err := ScanEvent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, fmt.Errorf("event not found: %w", err)
	}
	return ev, err
}

// Save inserts or updates an event.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, e domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO event (id, title, description, venue, city, start_date, end_date, level,
		   referee_quota, status, submitted_by, decided_by, decided_at, decision_note, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title=excluded.title, description=excluded.description, venue=excluded.venue, city=excluded.city,
		   start_date=excluded.start_date, end_date=excluded.end_date, level=excluded.level,
		   referee_quota=excluded.referee_quota, status=excluded.status, decided_by=excluded.decided_by,
		   decided_at=excluded.decided_at, decision_note=excluded.decision_note, updated_at=excluded.updated_at`,
		e.ID, e.Title, e.Description, e.Venue, e.City,
		e.StartDate.Format(storage.DateLayout), e.EndDate.Format(storage.DateLayout), e.Level,
		e.RefereeQuota, e.Status, e.SubmittedBy, storage.NullableString(e.DecidedBy),
		storage.NullableTime(e.DecidedAt), e.DecisionNote, storage.FormatTime(e.CreatedAt),
		storage.NullableTime(e.UpdatedAt))
	return err
}

func buildWhere(filter ListFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Status != "" {
		clauses = append(clauses, "e.status = ?")
		args = append(args, filter.Status)
	}
	if filter.Level != "" {
		clauses = append(clauses, "e.level = ?")
		args = append(args, filter.Level)
	}
	if filter.SubmittedBy != "" {
		clauses = append(clauses, "e.submitted_by = ?")
		args = append(args, filter.SubmittedBy)
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		like := "%" + q + "%"
		clauses = append(clauses, "(e.title LIKE ? OR e.venue LIKE ? OR e.city LIKE ?)")
		args = append(args, like, like, like)
	}
	if !filter.From.IsZero() {
		clauses = append(clauses, "e.end_date >= ?")
		args = append(args, filter.From.Format(storage.DateLayout))
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, "e.start_date <= ?")
		args = append(args, filter.To.Format(storage.DateLayout))
	}
	if !filter.EndedBefore.IsZero() {
		clauses = append(clauses, "e.end_date < ?")
		args = append(args, filter.EndedBefore.Format(storage.DateLayout))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns events matching the filter ordered by start date.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Event, error) {
	where, args := buildWhere(filter)
	query, args := storage.Paginate(`SELECT `+Columns+` FROM event e`+where+` ORDER BY e.start_date, e.title, e.id`,
		args, filter.Limit, filter.Offset)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		ev, err := ScanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Count returns the number of events matching the filter, ignoring pagination.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := buildWhere(filter)
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM event e`+where, args...).Scan(&n)
	return n, err
}

// CountByStatus returns event totals keyed by status, optionally for one submitter.
func (s *SQLiteStore) CountByStatus(ctx context.Context, submittedBy string) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM event`
	var args []any
	if submittedBy != "" {
		query += ` WHERE submitted_by = ?`
		args = append(args, submittedBy)
	}
	return countGrouped(ctx, s.db, query+` GROUP BY status`, args...)
}

// CountByMonth returns non-rejected event totals keyed by start month (YYYY-MM)
// for events starting on or after from.
func (s *SQLiteStore) CountByMonth(ctx context.Context, from time.Time) (map[string]int, error) {
	return countGrouped(ctx, s.db,
		`SELECT substr(start_date, 1, 7), COUNT(*) FROM event
		 WHERE start_date >= ? AND status NOT IN ('rejected', 'cancelled')
		 GROUP BY substr(start_date, 1, 7)`,
		from.Format(storage.DateLayout))
}

func countGrouped(ctx context.Context, db storage.SQLDB, query string, args ...any) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}

// ScanEvent scans a row selected with Columns.
func ScanEvent(scan func(dest ...any) error) (domain.Event, error) {
	var e domain.Event
	var start, end, createdAt string
	var decidedBy, decidedAt, updatedAt sql.NullString
	err := scan(&e.ID, &e.Title, &e.Description, &e.Venue, &e.City, &start, &end, &e.Level,
		&e.RefereeQuota, &e.Status, &e.SubmittedBy, &decidedBy, &decidedAt, &e.DecisionNote,
		&createdAt, &updatedAt)
	if err != nil {
		return domain.Event{}, err
	}
	e.StartDate = storage.ParseDate(start, "event", "start_date", e.ID)
	e.EndDate = storage.ParseDate(end, "event", "end_date", e.ID)
	e.DecidedBy = decidedBy.String
	e.DecidedAt = storage.ParseNullableTime(decidedAt, "event", "decided_at", e.ID)
	e.CreatedAt = storage.ParseTime(createdAt, "event", "created_at", e.ID)
	e.UpdatedAt = storage.ParseNullableTime(updatedAt, "event", "updated_at", e.ID)
	return e, nil
}

