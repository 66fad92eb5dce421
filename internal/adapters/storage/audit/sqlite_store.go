package audit

import (
	"context"
	"strings"

	"refdesk/internal/adapters/storage"
	domain "refdesk/internal/domain/audit"
)

// SQLiteStore implements the audit Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new audit event store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

var _ Store = (*SQLiteStore)(nil)

const eventColumns = `id, timestamp, category, action, severity, actor_id, actor_email, actor_role,
		resource_id, resource_type, description, ip_address, metadata`

// Save persists an audit event.
// POST: Event is persisted
func (s *SQLiteStore) Save(ctx context.Context, e domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_event (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, storage.FormatTime(e.Timestamp), string(e.Category), string(e.Action),
		string(e.Severity), e.ActorID, e.ActorEmail, e.ActorRole,
		e.ResourceID, e.ResourceType, e.Description, e.IPAddress, e.Metadata)
	return err
}

func buildWhere(filter Filter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.Action != "" {
		clauses = append(clauses, "action = ?")
		args = append(args, string(filter.Action))
	}
	if filter.ActorID != "" {
		clauses = append(clauses, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.ResourceID != "" {
		clauses = append(clauses, "resource_id = ?")
		args = append(args, filter.ResourceID)
	}
	if !filter.From.IsZero() {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, storage.FormatTime(filter.From))
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, storage.FormatTime(filter.To))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns audit events with optional filtering, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]domain.Event, error) {
	where, args := buildWhere(filter)
	query, args := storage.Paginate(`SELECT `+eventColumns+` FROM audit_event`+where+` ORDER BY timestamp DESC, id`,
		args, filter.Limit, filter.Offset)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.Category, &e.Action, &e.Severity, &e.ActorID, &e.ActorEmail,
			&e.ActorRole, &e.ResourceID, &e.ResourceType, &e.Description, &e.IPAddress, &e.Metadata); err != nil {
			return nil, err
		}
		e.Timestamp = storage.ParseTime(ts, "audit_event", "timestamp", e.ID)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Count returns the number of events matching the filter.
func (s *SQLiteStore) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := buildWhere(filter)
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_event`+where, args...).Scan(&n)
	return n, err
}
