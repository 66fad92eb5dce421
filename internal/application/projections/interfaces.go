package projections

import (
	"context"
	"errors"
	"time"

	"refdesk/internal/adapters/storage/account"
	"refdesk/internal/adapters/storage/assignment"
	storeAudit "refdesk/internal/adapters/storage/audit"
	"refdesk/internal/adapters/storage/event"
	"refdesk/internal/adapters/storage/forum"
	"refdesk/internal/adapters/storage/honor"
	"refdesk/internal/adapters/storage/referee"
	domainAccount "refdesk/internal/domain/account"
	domainAssignment "refdesk/internal/domain/assignment"
	domainAudit "refdesk/internal/domain/audit"
	domainEvent "refdesk/internal/domain/event"
	domainForum "refdesk/internal/domain/forum"
	domainOutbox "refdesk/internal/domain/outbox"
	domainReferee "refdesk/internal/domain/referee"
)

// ErrForbidden is returned when the viewer may not read the requested data.
var ErrForbidden = errors.New("you do not have permission to view this")

// Viewer identifies who is reading.
type Viewer struct {
	ID   string
	Role string
}

// IsAdmin reports whether the viewer has the admin role.
func (v Viewer) IsAdmin() bool { return v.Role == domainAccount.RoleAdmin }

// AccountStore interface for account queries.
type AccountStore interface {
	List(ctx context.Context, filter account.ListFilter) ([]domainAccount.Account, error)
	Count(ctx context.Context, filter account.ListFilter) (int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// RefereeStore interface for referee profile queries.
type RefereeStore interface {
	GetByAccountID(ctx context.Context, accountID string) (domainReferee.Profile, error)
	List(ctx context.Context, filter referee.ListFilter) ([]domainReferee.Profile, error)
	Count(ctx context.Context, filter referee.ListFilter) (int, error)
}

// EventStore interface for event queries.
type EventStore interface {
	GetByID(ctx context.Context, id string) (domainEvent.Event, error)
	List(ctx context.Context, filter event.ListFilter) ([]domainEvent.Event, error)
	Count(ctx context.Context, filter event.ListFilter) (int, error)
	CountByStatus(ctx context.Context, submittedBy string) (map[string]int, error)
	CountByMonth(ctx context.Context, from time.Time) (map[string]int, error)
}

// AssignmentStore interface for assignment queries.
type AssignmentStore interface {
	List(ctx context.Context, filter assignment.ListFilter) ([]assignment.Detail, error)
	Count(ctx context.Context, filter assignment.ListFilter) (int, error)
	ListBookings(ctx context.Context, from, to time.Time) ([]domainAssignment.Booking, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	TopReferees(ctx context.Context, limit int) ([]assignment.RefereeCount, error)
}

// HonorStore interface for honor queries.
type HonorStore interface {
	List(ctx context.Context, filter honor.ListFilter) ([]honor.Detail, error)
	Count(ctx context.Context, filter honor.ListFilter) (int, error)
	Totals(ctx context.Context, refereeID string) (map[string]honor.Total, error)
}

// ForumStore interface for forum queries.
type ForumStore interface {
	GetTopic(ctx context.Context, id string) (domainForum.Topic, error)
	ListTopics(ctx context.Context, filter forum.TopicFilter) ([]domainForum.Topic, error)
	CountTopics(ctx context.Context, filter forum.TopicFilter) (int, error)
	ListReplies(ctx context.Context, topicID string, includeHidden bool) ([]domainForum.Reply, error)
}

// AuditStore interface for audit trail queries.
type AuditStore interface {
	List(ctx context.Context, filter storeAudit.Filter) ([]domainAudit.Event, error)
	Count(ctx context.Context, filter storeAudit.Filter) (int, error)
}

// OutboxStore interface for outbox queries.
type OutboxStore interface {
	ListFailed(ctx context.Context, limit int) ([]domainOutbox.Entry, error)
	CountUndelivered(ctx context.Context) (int, error)
}
