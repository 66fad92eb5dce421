package orchestrators

import (
	"context"
	"errors"
	"testing"

	forumstore "refdesk/internal/adapters/storage/forum"
	"refdesk/internal/domain/audit"
	"refdesk/internal/domain/forum"
)

func (f *fixture) forumDeps() ForumDeps {
	return ForumDeps{
		ForumStore: f.forum,
		Audit:      f.audit,
		GenerateID: seqID("post"),
		Now:        fixedNow,
	}
}

func openTopic(t *testing.T, deps ForumDeps, actor Actor) forum.Topic {
	t.Helper()
	topic, err := ExecuteCreateTopic(context.Background(), CreateTopicInput{
		Category: forum.CategoryDiscussion,
		Title:    "Offside in futsal?",
		Body:     "There is **no** offside, right?",
		Actor:    actor,
	}, deps)
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}
	return topic
}

// TestExecuteCreateTopic tests category rules.
func TestExecuteCreateTopic(t *testing.T) {
	f := newFixture(t)
	deps := f.forumDeps()

	topic := openTopic(t, deps, refereeActor("r1"))
	if !topic.LastActivityAt.Equal(fixedTime) || topic.AuthorID != "r1" {
		t.Errorf("unexpected topic: %+v", topic)
	}

	_, err := ExecuteCreateTopic(context.Background(), CreateTopicInput{
		Category: forum.CategoryLearning, Title: "Law 12", Body: "Fouls", Actor: refereeActor("r1"),
	}, deps)
	if !errors.Is(err, forum.ErrLearningAdmin) {
		t.Errorf("expected ErrLearningAdmin, got %v", err)
	}
	if _, err := ExecuteCreateTopic(context.Background(), CreateTopicInput{
		Category: forum.CategoryLearning, Title: "Law 12", Body: "Fouls", Actor: adminActor,
	}, deps); err != nil {
		t.Errorf("admin learning topic: %v", err)
	}
	if _, err := ExecuteCreateTopic(context.Background(), CreateTopicInput{
		Category: forum.CategoryDiscussion, Title: " ", Body: "x", Actor: adminActor,
	}, deps); !errors.Is(err, forum.ErrEmptyTitle) {
		t.Errorf("expected ErrEmptyTitle, got %v", err)
	}
}

// TestExecuteReply tests replies and locked topics.
func TestExecuteReply(t *testing.T) {
	f := newFixture(t)
	deps := f.forumDeps()
	topic := openTopic(t, deps, refereeActor("r1"))

	r, err := ExecuteReply(context.Background(), ReplyInput{TopicID: topic.ID, Body: "Correct.", Actor: refereeActor("r2")}, deps)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	stored, _ := f.forum.GetTopic(context.Background(), topic.ID)
	if stored.ReplyCount != 1 {
		t.Errorf("expected reply count 1, got %d", stored.ReplyCount)
	}

	if _, err := ExecuteModerateTopic(context.Background(), ModerateInput{ID: topic.ID, Action: forum.ActionLock, Actor: adminActor}, deps); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := ExecuteReply(context.Background(), ReplyInput{TopicID: topic.ID, Body: "Late", Actor: refereeActor("r2")}, deps); !errors.Is(err, forum.ErrTopicLocked) {
		t.Errorf("expected ErrTopicLocked, got %v", err)
	}
	if _, err := ExecuteEditReply(context.Background(), EditReplyInput{ReplyID: r.ID, Body: "Edit", Actor: refereeActor("r2")}, deps); !errors.Is(err, forum.ErrModerated) {
		t.Errorf("expected ErrModerated on edit, got %v", err)
	}
	if _, err := ExecuteEditReply(context.Background(), EditReplyInput{ReplyID: r.ID, Body: "Admin edit", Actor: adminActor}, deps); err != nil {
		t.Errorf("admin edit in locked topic: %v", err)
	}
}

// TestExecuteEditTopic tests author-only edits.
func TestExecuteEditTopic(t *testing.T) {
	f := newFixture(t)
	deps := f.forumDeps()
	topic := openTopic(t, deps, refereeActor("r1"))

	if _, err := ExecuteEditTopic(context.Background(), EditTopicInput{
		TopicID: topic.ID, Title: "Hijack", Body: "x", Actor: refereeActor("r2"),
	}, deps); !errors.Is(err, forum.ErrNotAuthor) {
		t.Errorf("expected ErrNotAuthor, got %v", err)
	}
	edited, err := ExecuteEditTopic(context.Background(), EditTopicInput{
		TopicID: topic.ID, Title: "Offside in futsal", Body: "Answered.", Actor: refereeActor("r1"),
	}, deps)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.Title != "Offside in futsal" || edited.UpdatedAt.IsZero() {
		t.Errorf("unexpected topic: %+v", edited)
	}
}

// TestExecuteEditTopic_Moderated tests that authors cannot rewrite a locked
// or hidden topic while admins and author deletes still work.
func TestExecuteEditTopic_Moderated(t *testing.T) {
	for _, action := range []string{forum.ActionLock, forum.ActionHide} {
		t.Run(action, func(t *testing.T) {
			f := newFixture(t)
			deps := f.forumDeps()
			topic := openTopic(t, deps, refereeActor("r1"))
			if _, err := ExecuteModerateTopic(context.Background(), ModerateInput{ID: topic.ID, Action: action, Actor: adminActor}, deps); err != nil {
				t.Fatalf("%s: %v", action, err)
			}

			_, err := ExecuteEditTopic(context.Background(), EditTopicInput{
				TopicID: topic.ID, Title: "Offside in futsal?", Body: "rewritten after moderation", Actor: refereeActor("r1"),
			}, deps)
			if !errors.Is(err, forum.ErrModerated) {
				t.Fatalf("expected ErrModerated, got %v", err)
			}
			stored, _ := f.forum.GetTopic(context.Background(), topic.ID)
			if stored.Body != topic.Body {
				t.Errorf("body changed to %q", stored.Body)
			}

			if _, err := ExecuteEditTopic(context.Background(), EditTopicInput{
				TopicID: topic.ID, Title: "Offside in futsal?", Body: "Moderator note.", Actor: adminActor,
			}, deps); err != nil {
				t.Errorf("admin edit: %v", err)
			}
			if err := ExecuteDeleteTopic(context.Background(), DeleteTopicInput{TopicID: topic.ID, Actor: refereeActor("r1")}, deps); err != nil {
				t.Errorf("author delete: %v", err)
			}
		})
	}
}

// TestExecuteEditReply_Hidden tests that a hidden reply is frozen for its author.
func TestExecuteEditReply_Hidden(t *testing.T) {
	f := newFixture(t)
	deps := f.forumDeps()
	topic := openTopic(t, deps, refereeActor("r1"))
	r, err := ExecuteReply(context.Background(), ReplyInput{TopicID: topic.ID, Body: "spam", Actor: refereeActor("r2")}, deps)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if _, err := ExecuteModerateReply(context.Background(), ModerateInput{ID: r.ID, Action: forum.ActionHide, Actor: adminActor}, deps); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if _, err := ExecuteEditReply(context.Background(), EditReplyInput{ReplyID: r.ID, Body: "not spam", Actor: refereeActor("r2")}, deps); !errors.Is(err, forum.ErrModerated) {
		t.Errorf("expected ErrModerated, got %v", err)
	}
}

// TestExecuteModeration tests hide, delete and their audit trail.
func TestExecuteModeration(t *testing.T) {
	f := newFixture(t)
	deps := f.forumDeps()
	topic := openTopic(t, deps, refereeActor("r1"))
	r, err := ExecuteReply(context.Background(), ReplyInput{TopicID: topic.ID, Body: "spam", Actor: refereeActor("r2")}, deps)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}

	if _, err := ExecuteModerateReply(context.Background(), ModerateInput{ID: r.ID, Action: forum.ActionPin, Actor: adminActor}, deps); !errors.Is(err, forum.ErrInvalidAction) {
		t.Errorf("expected ErrInvalidAction, got %v", err)
	}
	if _, err := ExecuteModerateReply(context.Background(), ModerateInput{ID: r.ID, Action: forum.ActionHide, Actor: refereeActor("r1")}, deps); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	hidden, err := ExecuteModerateReply(context.Background(), ModerateInput{ID: r.ID, Action: forum.ActionHide, Actor: adminActor}, deps)
	if err != nil || !hidden.Hidden {
		t.Fatalf("hide: %+v %v", hidden, err)
	}
	visible, err := f.forum.ListReplies(context.Background(), topic.ID, false)
	if err != nil || len(visible) != 0 {
		t.Errorf("hidden reply should not be listed: %v %v", visible, err)
	}

	if err := ExecuteDeleteReply(context.Background(), DeleteReplyInput{ReplyID: r.ID, Actor: refereeActor("r1")}, deps); !errors.Is(err, forum.ErrNotAuthor) {
		t.Errorf("expected ErrNotAuthor, got %v", err)
	}
	if err := ExecuteDeleteTopic(context.Background(), DeleteTopicInput{TopicID: topic.ID, Actor: adminActor}, deps); err != nil {
		t.Fatalf("delete topic: %v", err)
	}
	if n, _ := f.forum.CountTopics(context.Background(), forumstore.TopicFilter{IncludeHidden: true}); n != 0 {
		t.Errorf("expected no topics left, got %d", n)
	}

	want := []audit.Action{audit.ActionModerate, audit.ActionDelete}
	got := f.audit.actions()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("audit actions = %v, want %v", got, want)
	}
}

// TestExecuteDeleteReply_Author tests that authors delete their own replies without an audit entry.
func TestExecuteDeleteReply_Author(t *testing.T) {
	f := newFixture(t)
	deps := f.forumDeps()
	topic := openTopic(t, deps, refereeActor("r1"))
	r, err := ExecuteReply(context.Background(), ReplyInput{TopicID: topic.ID, Body: "oops", Actor: refereeActor("r2")}, deps)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if err := ExecuteDeleteReply(context.Background(), DeleteReplyInput{ReplyID: r.ID, Actor: refereeActor("r2")}, deps); err != nil {
		t.Fatalf("delete: %v", err)
	}
	stored, _ := f.forum.GetTopic(context.Background(), topic.ID)
	if stored.ReplyCount != 0 {
		t.Errorf("expected reply count 0, got %d", stored.ReplyCount)
	}
	if len(f.audit.events) != 0 {
		t.Errorf("author deletes are not moderation, got %v", f.audit.actions())
	}
}
