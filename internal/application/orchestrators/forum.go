package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"refdesk/internal/adapters/metrics"
	"refdesk/internal/domain/audit"
	"refdesk/internal/domain/forum"
)

// ForumStoreForWorkflow defines the forum store interface needed by forum workflows.
type ForumStoreForWorkflow interface {
	GetTopic(ctx context.Context, id string) (forum.Topic, error)
	SaveTopic(ctx context.Context, t forum.Topic) error
	DeleteTopic(ctx context.Context, id string) error
	GetReply(ctx context.Context, id string) (forum.Reply, error)
	AddReply(ctx context.Context, r forum.Reply) error
	SaveReply(ctx context.Context, r forum.Reply) error
	DeleteReply(ctx context.Context, id string) error
}

// ForumDeps holds dependencies for forum workflows.
type ForumDeps struct {
	ForumStore ForumStoreForWorkflow
	Audit      AuditWriter
	Metrics    *metrics.Metrics
	GenerateID func() string
	Now        func() time.Time
}

// CreateTopicInput carries a new topic.
type CreateTopicInput struct {
	Category string
	Title    string
	Body     string
	Actor    Actor
}

// ExecuteCreateTopic opens a forum topic.
// PRE: learning topics require an admin actor
// POST: Topic stored with LastActivityAt = CreatedAt
func ExecuteCreateTopic(ctx context.Context, input CreateTopicInput, deps ForumDeps) (forum.Topic, error) {
	if err := forum.CanCreate(input.Category, input.Actor.IsAdmin()); err != nil {
		return forum.Topic{}, err
	}
	now := nowOr(deps.Now)
	t := forum.Topic{
		ID:             idOr(deps.GenerateID),
		Category:       input.Category,
		Title:          strings.TrimSpace(input.Title),
		Body:           input.Body,
		AuthorID:       input.Actor.ID,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if err := t.Validate(); err != nil {
		return forum.Topic{}, err
	}
	if err := deps.ForumStore.SaveTopic(ctx, t); err != nil {
		return forum.Topic{}, fmt.Errorf("save topic: %w", err)
	}
	deps.Metrics.Inc(metrics.ForumPost)
	slog.Info("forum_event", "event", "topic_created", "topic_id", t.ID, "category", t.Category, "author_id", t.AuthorID)
	return t, nil
}

// EditTopicInput carries a topic edit.
type EditTopicInput struct {
	TopicID string
	Title   string
	Body    string
	Actor   Actor
}

// ExecuteEditTopic changes a topic's title and body.
// PRE: Actor is the author or an admin; authors cannot edit a locked or hidden topic
func ExecuteEditTopic(ctx context.Context, input EditTopicInput, deps ForumDeps) (forum.Topic, error) {
	t, err := deps.ForumStore.GetTopic(ctx, input.TopicID)
	if err != nil {
		return forum.Topic{}, err
	}
	if err := t.CheckEdit(input.Actor.ID, input.Actor.IsAdmin()); err != nil {
		return forum.Topic{}, err
	}
	t.Title = strings.TrimSpace(input.Title)
	t.Body = input.Body
	t.UpdatedAt = nowOr(deps.Now)
	if err := t.Validate(); err != nil {
		return forum.Topic{}, err
	}
	if err := deps.ForumStore.SaveTopic(ctx, t); err != nil {
		return forum.Topic{}, fmt.Errorf("save topic: %w", err)
	}
	slog.Info("forum_event", "event", "topic_edited", "topic_id", t.ID, "actor_id", input.Actor.ID)
	return t, nil
}

// DeleteTopicInput identifies a topic to delete.
type DeleteTopicInput struct {
	TopicID string
	Actor   Actor
}

// ExecuteDeleteTopic removes a topic and its replies.
// PRE: Actor is the author or an admin
// POST: An admin deleting someone else's topic is audited as moderation
func ExecuteDeleteTopic(ctx context.Context, input DeleteTopicInput, deps ForumDeps) error {
	t, err := deps.ForumStore.GetTopic(ctx, input.TopicID)
	if err != nil {
		return err
	}
	if !t.CanEdit(input.Actor.ID, input.Actor.IsAdmin()) {
		return forum.ErrNotAuthor
	}
	if err := deps.ForumStore.DeleteTopic(ctx, t.ID); err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}
	if t.AuthorID != input.Actor.ID {
		deps.Metrics.Inc(metrics.ForumModerated)
		recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.auditActor(), audit.CategoryForum, audit.ActionDelete, nowOr(deps.Now)).
			WithResource("forum_topic", t.ID).
			WithDescription(fmt.Sprintf("deleted topic %q", t.Title)))
	}
	slog.Info("forum_event", "event", "topic_deleted", "topic_id", t.ID, "actor_id", input.Actor.ID)
	return nil
}

// ReplyInput carries a new reply.
type ReplyInput struct {
	TopicID string
	Body    string
	Actor   Actor
}

// ExecuteReply posts a reply to a topic.
// PRE: topic is neither locked nor hidden
// POST: Reply stored; topic ReplyCount and LastActivityAt bumped
func ExecuteReply(ctx context.Context, input ReplyInput, deps ForumDeps) (forum.Reply, error) {
	t, err := deps.ForumStore.GetTopic(ctx, input.TopicID)
	if err != nil {
		return forum.Reply{}, err
	}
	if err := t.AcceptsReplies(); err != nil {
		return forum.Reply{}, err
	}
	now := nowOr(deps.Now)
	r := forum.Reply{
		ID:        idOr(deps.GenerateID),
		TopicID:   t.ID,
		AuthorID:  input.Actor.ID,
		Body:      input.Body,
		CreatedAt: now,
	}
	if err := r.Validate(); err != nil {
		return forum.Reply{}, err
	}
	if err := deps.ForumStore.AddReply(ctx, r); err != nil {
		return forum.Reply{}, fmt.Errorf("add reply: %w", err)
	}
	deps.Metrics.Inc(metrics.ForumPost)
	slog.Info("forum_event", "event", "reply_posted", "reply_id", r.ID, "topic_id", t.ID, "author_id", r.AuthorID)
	return r, nil
}

// EditReplyInput carries a reply edit.
type EditReplyInput struct {
	ReplyID string
	Body    string
	Actor   Actor
}

// ExecuteEditReply changes a reply's body.
// PRE: Actor is the author or an admin; authors cannot edit moderated content
func ExecuteEditReply(ctx context.Context, input EditReplyInput, deps ForumDeps) (forum.Reply, error) {
	r, err := deps.ForumStore.GetReply(ctx, input.ReplyID)
	if err != nil {
		return forum.Reply{}, err
	}
	t, err := deps.ForumStore.GetTopic(ctx, r.TopicID)
	if err != nil {
		return forum.Reply{}, err
	}
	if err := r.CheckEdit(t, input.Actor.ID, input.Actor.IsAdmin()); err != nil {
		return forum.Reply{}, err
	}
	r.Body = input.Body
	r.UpdatedAt = nowOr(deps.Now)
	if err := r.Validate(); err != nil {
		return forum.Reply{}, err
	}
	if err := deps.ForumStore.SaveReply(ctx, r); err != nil {
		return forum.Reply{}, fmt.Errorf("save reply: %w", err)
	}
	slog.Info("forum_event", "event", "reply_edited", "reply_id", r.ID, "actor_id", input.Actor.ID)
	return r, nil
}

// DeleteReplyInput identifies a reply to delete.
type DeleteReplyInput struct {
	ReplyID string
	Actor   Actor
}

// ExecuteDeleteReply removes a reply.
// PRE: Actor is the author or an admin
// POST: topic ReplyCount decremented
func ExecuteDeleteReply(ctx context.Context, input DeleteReplyInput, deps ForumDeps) error {
	r, err := deps.ForumStore.GetReply(ctx, input.ReplyID)
	if err != nil {
		return err
	}
	if !r.CanEdit(input.Actor.ID, input.Actor.IsAdmin()) {
		return forum.ErrNotAuthor
	}
	if err := deps.ForumStore.DeleteReply(ctx, r.ID); err != nil {
		return fmt.Errorf("delete reply: %w", err)
	}
	if r.AuthorID != input.Actor.ID {
		deps.Metrics.Inc(metrics.ForumModerated)
		recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.auditActor(), audit.CategoryForum, audit.ActionDelete, nowOr(deps.Now)).
			WithResource("forum_reply", r.ID).
			WithDescription("deleted reply in topic " + r.TopicID))
	}
	slog.Info("forum_event", "event", "reply_deleted", "reply_id", r.ID, "actor_id", input.Actor.ID)
	return nil
}

// ModerateInput carries a moderation action on a topic or reply.
type ModerateInput struct {
	ID     string
	Action string // one of forum.TopicActions or forum.ReplyActions
	Actor  Actor
}

// ExecuteModerateTopic pins, locks or hides a topic.
// PRE: Actor is admin
// POST: Topic flag toggled; action audited
func ExecuteModerateTopic(ctx context.Context, input ModerateInput, deps ForumDeps) (forum.Topic, error) {
	if !input.Actor.IsAdmin() {
		return forum.Topic{}, ErrForbidden
	}
	t, err := deps.ForumStore.GetTopic(ctx, input.ID)
	if err != nil {
		return forum.Topic{}, err
	}
	now := nowOr(deps.Now)
	if err := t.Moderate(input.Action, now); err != nil {
		return forum.Topic{}, err
	}
	if err := deps.ForumStore.SaveTopic(ctx, t); err != nil {
		return forum.Topic{}, fmt.Errorf("save topic: %w", err)
	}
	deps.Metrics.Inc(metrics.ForumModerated)
	recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.auditActor(), audit.CategoryForum, audit.ActionModerate, now).
		WithResource("forum_topic", t.ID).
		WithDescription(fmt.Sprintf("%s topic %q", input.Action, t.Title)))
	slog.Info("forum_event", "event", "topic_moderated", "topic_id", t.ID, "action", input.Action, "admin_id", input.Actor.ID)
	return t, nil
}

// ExecuteModerateReply hides or unhides a reply.
// PRE: Actor is admin
// POST: Reply flag toggled; action audited
func ExecuteModerateReply(ctx context.Context, input ModerateInput, deps ForumDeps) (forum.Reply, error) {
	if !input.Actor.IsAdmin() {
		return forum.Reply{}, ErrForbidden
	}
	r, err := deps.ForumStore.GetReply(ctx, input.ID)
	if err != nil {
		return forum.Reply{}, err
	}
	now := nowOr(deps.Now)
	if err := r.Moderate(input.Action, now); err != nil {
		return forum.Reply{}, err
	}
	if err := deps.ForumStore.SaveReply(ctx, r); err != nil {
		return forum.Reply{}, fmt.Errorf("save reply: %w", err)
	}
	deps.Metrics.Inc(metrics.ForumModerated)
	recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.auditActor(), audit.CategoryForum, audit.ActionModerate, now).
		WithResource("forum_reply", r.ID).
		WithDescription(input.Action+" reply in topic "+r.TopicID))
	slog.Info("forum_event", "event", "reply_moderated", "reply_id", r.ID, "action", input.Action, "admin_id", input.Actor.ID)
	return r, nil
}
