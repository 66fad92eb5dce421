package forum

import (
	"context"

	domain "refdesk/internal/domain/forum"
)

// Store persists forum topics and replies. Author names are read from accounts.
type Store interface {
	GetTopic(ctx context.Context, id string) (domain.Topic, error)
	SaveTopic(ctx context.Context, t domain.Topic) error
	DeleteTopic(ctx context.Context, id string) error
	ListTopics(ctx context.Context, filter TopicFilter) ([]domain.Topic, error)
	CountTopics(ctx context.Context, filter TopicFilter) (int, error)

	GetReply(ctx context.Context, id string) (domain.Reply, error)
	AddReply(ctx context.Context, r domain.Reply) error
	SaveReply(ctx context.Context, r domain.Reply) error
	DeleteReply(ctx context.Context, id string) error
	ListReplies(ctx context.Context, topicID string, includeHidden bool) ([]domain.Reply, error)
}

// TopicFilter carries filtering parameters for ListTopics.
type TopicFilter struct {
	Category      string
	Search        string
	IncludeHidden bool
	Limit         int
	Offset        int
}
