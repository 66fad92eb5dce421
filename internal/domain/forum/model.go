package forum

import (
	"errors"
	"strings"
	"time"
)

// Topic categories
const (
	CategoryDiscussion = "discussion"
	CategoryLearning   = "learning"
)

// Moderation actions
const (
	ActionPin    = "pin"
	ActionUnpin  = "unpin"
	ActionLock   = "lock"
	ActionUnlock = "unlock"
	ActionHide   = "hide"
	ActionUnhide = "unhide"
)

// Max length constants for user-editable fields.
const (
	MaxTitleLength = 200
	MaxBodyLength  = 20000
)

// ValidCategories contains all valid topic categories.
var ValidCategories = []string{CategoryDiscussion, CategoryLearning}

// TopicActions are the moderation actions valid on a topic.
var TopicActions = []string{ActionPin, ActionUnpin, ActionLock, ActionUnlock, ActionHide, ActionUnhide}

// ReplyActions are the moderation actions valid on a reply.
var ReplyActions = []string{ActionHide, ActionUnhide}

// Domain errors
var (
	ErrEmptyTitle      = errors.New("topic title cannot be empty")
	ErrTitleTooLong    = errors.New("topic title cannot exceed 200 characters")
	ErrEmptyBody       = errors.New("post body cannot be empty")
	ErrBodyTooLong     = errors.New("post body cannot exceed 20000 characters")
	ErrInvalidCategory = errors.New("category must be one of: discussion, learning")
	ErrEmptyAuthor     = errors.New("post author is required")
	ErrEmptyTopicID    = errors.New("reply topic ID cannot be empty")
	ErrTopicLocked     = errors.New("topic is locked")
	ErrTopicHidden     = errors.New("topic is hidden")
	ErrModerated       = errors.New("post was locked or hidden by a moderator")
	ErrLearningAdmin   = errors.New("only admins can post learning material")
	ErrNotAuthor       = errors.New("only the author can change this post")
	ErrInvalidAction   = errors.New("unknown moderation action")
)

// Topic is a forum thread opener.
type Topic struct {
	ID             string
	Category       string
	Title          string
	Body           string // Markdown
	AuthorID       string
	AuthorName     string
	Pinned         bool
	Locked         bool
	Hidden         bool
	ReplyCount     int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastActivityAt time.Time
}

// Reply is a post in a topic.
type Reply struct {
	ID         string
	TopicID    string
	AuthorID   string
	AuthorName string
	Body       string // Markdown
	Hidden     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks if the Topic has valid data.
// PRE: Topic struct is populated
// POST: Returns nil if valid, error otherwise
func (t *Topic) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if len(t.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if err := validateBody(t.Body); err != nil {
		return err
	}
	if !contains(ValidCategories, t.Category) {
		return ErrInvalidCategory
	}
	if t.AuthorID == "" {
		return ErrEmptyAuthor
	}
	return nil
}

// Validate checks if the Reply has valid data.
func (r *Reply) Validate() error {
	if r.TopicID == "" {
		return ErrEmptyTopicID
	}
	if r.AuthorID == "" {
		return ErrEmptyAuthor
	}
	return validateBody(r.Body)
}

func validateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrEmptyBody
	}
	if len(body) > MaxBodyLength {
		return ErrBodyTooLong
	}
	return nil
}

// CanCreate reports whether an author may open a topic in category.
func CanCreate(category string, isAdmin bool) error {
	if !contains(ValidCategories, category) {
		return ErrInvalidCategory
	}
	if category == CategoryLearning && !isAdmin {
		return ErrLearningAdmin
	}
	return nil
}

// AcceptsReplies returns an error when the topic is closed to new replies.
func (t *Topic) AcceptsReplies() error {
	if t.Hidden {
		return ErrTopicHidden
	}
	if t.Locked {
		return ErrTopicLocked
	}
	return nil
}

// CanEdit reports whether the actor may edit or delete the topic.
func (t *Topic) CanEdit(accountID string, isAdmin bool) bool {
	return isAdmin || t.AuthorID == accountID
}

// CanEdit reports whether the actor may edit or delete the reply.
func (r *Reply) CanEdit(accountID string, isAdmin bool) bool {
	return isAdmin || r.AuthorID == accountID
}

// CheckEdit returns nil when the actor may change the topic's text.
// Authors lose that once a moderator locks or hides the topic; deleting
// their own topic is still allowed through CanEdit.
func (t *Topic) CheckEdit(accountID string, isAdmin bool) error {
	if !t.CanEdit(accountID, isAdmin) {
		return ErrNotAuthor
	}
	if !isAdmin && (t.Locked || t.Hidden) {
		return ErrModerated
	}
	return nil
}

// CheckEdit returns nil when the actor may change the reply's text inside
// topic. The same moderation rules as CheckEdit on Topic apply, plus the
// reply's own hidden flag.
func (r *Reply) CheckEdit(topic Topic, accountID string, isAdmin bool) error {
	if !r.CanEdit(accountID, isAdmin) {
		return ErrNotAuthor
	}
	if !isAdmin && (topic.Locked || topic.Hidden || r.Hidden) {
		return ErrModerated
	}
	return nil
}

// Moderate applies a moderation action to the topic.
// PRE: action is one of TopicActions
// POST: the matching flag is toggled; UpdatedAt set
func (t *Topic) Moderate(action string, now time.Time) error {
	switch action {
	case ActionPin:
		t.Pinned = true
	case ActionUnpin:
		t.Pinned = false
	case ActionLock:
		t.Locked = true
	case ActionUnlock:
		t.Locked = false
	case ActionHide:
		t.Hidden = true
	case ActionUnhide:
		t.Hidden = false
	default:
		return ErrInvalidAction
	}
	t.UpdatedAt = now
	return nil
}

// Moderate applies a moderation action to the reply.
func (r *Reply) Moderate(action string, now time.Time) error {
	switch action {
	case ActionHide:
		r.Hidden = true
	case ActionUnhide:
		r.Hidden = false
	default:
		return ErrInvalidAction
	}
	r.UpdatedAt = now
	return nil
}

// IsValidCategory reports whether c is a known category.
func IsValidCategory(c string) bool {
	return contains(ValidCategories, c)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
