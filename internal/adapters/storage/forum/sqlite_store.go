package forum

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"refdesk/internal/adapters/storage"
	domain "refdesk/internal/domain/forum"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new forum store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

var _ Store = (*SQLiteStore)(nil)

const topicSelect = `SELECT t.id, t.category, t.title, t.body, t.author_id, COALESCE(a.full_name, ''),
		t.pinned, t.locked, t.hidden, t.reply_count, t.created_at, t.updated_at, t.last_activity_at
	FROM forum_topic t LEFT JOIN account a ON a.id = t.author_id`

const replySelect = `SELECT r.id, r.topic_id, r.author_id, COALESCE(a.full_name, ''), r.body, r.hidden,
		r.created_at, r.updated_at
	FROM forum_reply r LEFT JOIN account a ON a.id = r.author_id`

// GetTopic retrieves a topic by ID.
// POST: Returns the topic or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetTopic(ctx context.Context, id string) (domain.Topic, error) {
	t, err := scanTopic(s.db.QueryRowContext(ctx, topicSelect+` WHERE t.id = ?`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Topic{}, fmt.Errorf("topic not found: %w", err)
	}
	return t, err
}

// SaveTopic inserts or updates a topic. ReplyCount is maintained by AddReply
// and DeleteReply and is not overwritten on update.
// PRE: entity has been validated
func (s *SQLiteStore) SaveTopic(ctx context.Context, t domain.Topic) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO forum_topic (id, category, title, body, author_id, pinned, locked, hidden, reply_count,
		   created_at, updated_at, last_activity_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   category=excluded.category, title=excluded.title, body=excluded.body, pinned=excluded.pinned,
		   locked=excluded.locked, hidden=excluded.hidden, updated_at=excluded.updated_at,
		   last_activity_at=excluded.last_activity_at`,
		t.ID, t.Category, t.Title, t.Body, t.AuthorID, storage.BoolToInt(t.Pinned), storage.BoolToInt(t.Locked),
		storage.BoolToInt(t.Hidden), t.ReplyCount, storage.FormatTime(t.CreatedAt),
		storage.NullableTime(t.UpdatedAt), storage.FormatTime(t.LastActivityAt))
	return err
}

// DeleteTopic removes a topic and all its replies.
// POST: neither the topic nor any of its replies remain
func (s *SQLiteStore) DeleteTopic(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM forum_reply WHERE topic_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM forum_topic WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func buildWhere(filter TopicFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Category != "" {
		clauses = append(clauses, "t.category = ?")
		args = append(args, filter.Category)
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		like := "%" + q + "%"
		clauses = append(clauses, "(t.title LIKE ? OR t.body LIKE ?)")
		args = append(args, like, like)
	}
	if !filter.IncludeHidden {
		clauses = append(clauses, "t.hidden = 0")
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListTopics returns topics, pinned first, then by most recent activity.
func (s *SQLiteStore) ListTopics(ctx context.Context, filter TopicFilter) ([]domain.Topic, error) {
	where, args := buildWhere(filter)
	query, args := storage.Paginate(topicSelect+where+` ORDER BY t.pinned DESC, t.last_activity_at DESC, t.id`,
		args, filter.Limit, filter.Offset)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Topic
	for rows.Next() {
		t, err := scanTopic(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountTopics returns the number of topics matching the filter, ignoring pagination.
func (s *SQLiteStore) CountTopics(ctx context.Context, filter TopicFilter) (int, error) {
	where, args := buildWhere(filter)
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM forum_topic t`+where, args...).Scan(&n)
	return n, err
}

// GetReply retrieves a reply by ID.
// POST: Returns the reply or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetReply(ctx context.Context, id string) (domain.Reply, error) {
	r, err := scanReply(s.db.QueryRowContext(ctx, replySelect+` WHERE r.id = ?`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Reply{}, fmt.Errorf("reply not found: %w", err)
	}
	return r, err
}

// AddReply inserts a reply and bumps the topic's counters.
// PRE: reply has been validated and the topic accepts replies
// POST: reply stored; topic reply_count incremented and last_activity_at set to the reply time
func (s *SQLiteStore) AddReply(ctx context.Context, r domain.Reply) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO forum_reply (id, topic_id, author_id, body, hidden, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TopicID, r.AuthorID, r.Body, storage.BoolToInt(r.Hidden),
		storage.FormatTime(r.CreatedAt), storage.NullableTime(r.UpdatedAt)); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE forum_topic SET reply_count = reply_count + 1, last_activity_at = ? WHERE id = ?`,
		storage.FormatTime(r.CreatedAt), r.TopicID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("topic not found: %w", sql.ErrNoRows)
	}
	return tx.Commit()
}

// SaveReply updates a reply's body and hidden flag.
func (s *SQLiteStore) SaveReply(ctx context.Context, r domain.Reply) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE forum_reply SET body = ?, hidden = ?, updated_at = ? WHERE id = ?`,
		r.Body, storage.BoolToInt(r.Hidden), storage.NullableTime(r.UpdatedAt), r.ID)
	return err
}

// DeleteReply removes a reply and decrements its topic's reply count.
func (s *SQLiteStore) DeleteReply(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var topicID string
	if err := tx.QueryRowContext(ctx, `SELECT topic_id FROM forum_reply WHERE id = ?`, id).Scan(&topicID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("reply not found: %w", err)
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM forum_reply WHERE id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE forum_topic SET reply_count = MAX(reply_count - 1, 0) WHERE id = ?`, topicID); err != nil {
		return err
	}
	return tx.Commit()
}

// ListReplies returns a topic's replies in posting order.
func (s *SQLiteStore) ListReplies(ctx context.Context, topicID string, includeHidden bool) ([]domain.Reply, error) {
	query := replySelect + ` WHERE r.topic_id = ?`
	if !includeHidden {
		query += ` AND r.hidden = 0`
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY r.created_at, r.id`, topicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Reply
	for rows.Next() {
		r, err := scanReply(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanTopic(scan func(dest ...any) error) (domain.Topic, error) {
	var t domain.Topic
	var pinned, locked, hidden int
	var createdAt, lastActivity string
	var updatedAt sql.NullString
	if err := scan(&t.ID, &t.Category, &t.Title, &t.Body, &t.AuthorID, &t.AuthorName,
		&pinned, &locked, &hidden, &t.ReplyCount, &createdAt, &updatedAt, &lastActivity); err != nil {
		return domain.Topic{}, err
	}
	t.Pinned, t.Locked, t.Hidden = pinned != 0, locked != 0, hidden != 0
	t.CreatedAt = storage.ParseTime(createdAt, "forum_topic", "created_at", t.ID)
	t.UpdatedAt = storage.ParseNullableTime(updatedAt, "forum_topic", "updated_at", t.ID)
	t.LastActivityAt = storage.ParseTime(lastActivity, "forum_topic", "last_activity_at", t.ID)
	return t, nil
}

func scanReply(scan func(dest ...any) error) (domain.Reply, error) {
	var r domain.Reply
	var hidden int
	var createdAt string
	var updatedAt sql.NullString
	if err := scan(&r.ID, &r.TopicID, &r.AuthorID, &r.AuthorName, &r.Body, &hidden, &createdAt, &updatedAt); err != nil {
		return domain.Reply{}, err
	}
	r.Hidden = hidden != 0
	r.CreatedAt = storage.ParseTime(createdAt, "forum_reply", "created_at", r.ID)
	r.UpdatedAt = storage.ParseNullableTime(updatedAt, "forum_reply", "updated_at", r.ID)
	return r, nil
}
