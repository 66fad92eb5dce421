package event

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the wire and storage format for event dates.
const DateLayout = "2006-01-02"

// Event levels
const (
	LevelLocal    = "local"
	LevelRegional = "regional"
	LevelNational = "national"
)

// Event statuses
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Max length constants for user-editable fields.
const (
	MaxTitleLength       = 160
	MaxDescriptionLength = 4000
	MaxVenueLength       = 160
	MaxDurationDays      = 31
)

// ValidLevels contains all valid event levels.
var ValidLevels = []string{LevelLocal, LevelRegional, LevelNational}

// ValidStatuses contains all valid event statuses.
var ValidStatuses = []string{StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusCompleted}

// Domain errors
var (
	ErrEmptyTitle         = errors.New("event title cannot be empty")
	ErrTitleTooLong       = errors.New("event title cannot exceed 160 characters")
	ErrDescriptionTooLong = errors.New("event description cannot exceed 4000 characters")
	ErrEmptyVenue         = errors.New("event venue cannot be empty")
	ErrVenueTooLong       = errors.New("event venue cannot exceed 160 characters")
	ErrMissingDates       = errors.New("event start and end dates are required")
	ErrEndBeforeStart     = errors.New("event end date cannot be before start date")
	ErrTooLong            = errors.New("event cannot last more than 31 days")
	ErrInvalidLevel       = errors.New("event level must be one of: local, regional, national")
	ErrInvalidStatus      = errors.New("event status must be one of: pending, approved, rejected, cancelled, completed")
	ErrInvalidQuota       = errors.New("referee quota must be between 1 and 20")
	ErrEmptySubmitter     = errors.New("event submitter is required")
	ErrNotPending         = errors.New("event is not pending approval")
	ErrNotApproved        = errors.New("event is not approved")
	ErrNotCancellable     = errors.New("only pending or approved events can be cancelled")
	ErrNotFinished        = errors.New("event has not finished yet")
	ErrNotEditable        = errors.New("event can no longer be edited")
)

// MaxRefereeQuota bounds the number of primary referee slots.
const MaxRefereeQuota = 20

// Event is a futsal match day or tournament that needs referees.
type Event struct {
	ID           string
	Title        string
	Description  string
	Venue        string
	City         string
	StartDate    time.Time // date only, UTC midnight
	EndDate      time.Time // date only, UTC midnight, inclusive
	Level        string
	RefereeQuota int // primary referee slots
	Status       string
	SubmittedBy  string // AccountID of submitter
	DecidedBy    string
	DecidedAt    time.Time
	DecisionNote string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks if the Event has valid data.
// PRE: Event struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if len(e.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if len(e.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if strings.TrimSpace(e.Venue) == "" {
		return ErrEmptyVenue
	}
	if len(e.Venue) > MaxVenueLength {
		return ErrVenueTooLong
	}
	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		return ErrMissingDates
	}
	if e.EndDate.Before(e.StartDate) {
		return ErrEndBeforeStart
	}
	if len(e.Dates()) > MaxDurationDays {
		return ErrTooLong
	}
	if !contains(ValidLevels, e.Level) {
		return ErrInvalidLevel
	}
	if !contains(ValidStatuses, e.Status) {
		return ErrInvalidStatus
	}
	if e.RefereeQuota < 1 || e.RefereeQuota > MaxRefereeQuota {
		return ErrInvalidQuota
	}
	if e.SubmittedBy == "" {
		return ErrEmptySubmitter
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// Truncate returns t as a UTC calendar date.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateRange lists every calendar date from start to end inclusive, formatted
// with DateLayout. An inverted range yields nil.
func DateRange(start, end time.Time) []string {
	start, end = Truncate(start), Truncate(end)
	if end.Before(start) {
		return nil
	}
	var out []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(DateLayout))
	}
	return out
}

// Dates lists the calendar dates the event occupies.
func (e *Event) Dates() []string {
	return DateRange(e.StartDate, e.EndDate)
}

// Overlaps reports whether the two events share at least one date.
func (e *Event) Overlaps(other Event) bool {
	return !e.EndDate.Before(other.StartDate) && !other.EndDate.Before(e.StartDate)
}

// IsEditableBy reports whether the actor may change the event details.
// Submitters edit while pending; admins edit until the event is closed.
func (e *Event) IsEditableBy(accountID string, isAdmin bool) bool {
	if isAdmin {
		return e.Status == StatusPending || e.Status == StatusApproved
	}
	return e.Status == StatusPending && e.SubmittedBy == accountID
}

// AcceptsAssignments reports whether referees may be assigned.
func (e *Event) AcceptsAssignments() bool {
	return e.Status == StatusApproved
}

// BooksReferees reports whether assignments on this event occupy a referee's dates.
func (e *Event) BooksReferees() bool {
	return e.Status != StatusCancelled && e.Status != StatusRejected
}

// Approve moves a pending event to approved.
// PRE: Status is pending
// POST: Status is approved, decision fields set
func (e *Event) Approve(adminID, note string, now time.Time) error {
	if e.Status != StatusPending {
		return ErrNotPending
	}
	e.Status = StatusApproved
	e.setDecision(adminID, note, now)
	return nil
}

// Reject moves a pending event to rejected.
// PRE: Status is pending
// POST: Status is rejected, decision fields set
func (e *Event) Reject(adminID, note string, now time.Time) error {
	if e.Status != StatusPending {
		return ErrNotPending
	}
	e.Status = StatusRejected
	e.setDecision(adminID, note, now)
	return nil
}

// Cancel moves a pending or approved event to cancelled.
func (e *Event) Cancel(actorID, note string, now time.Time) error {
	if e.Status != StatusPending && e.Status != StatusApproved {
		return ErrNotCancellable
	}
	e.Status = StatusCancelled
	e.setDecision(actorID, note, now)
	return nil
}

// Complete closes an approved event once its last day has passed.
// PRE: Status is approved and EndDate <= today
// POST: Status is completed
func (e *Event) Complete(now time.Time) error {
	if e.Status != StatusApproved {
		return ErrNotApproved
	}
	if Truncate(now).Before(e.EndDate) {
		return ErrNotFinished
	}
	e.Status = StatusCompleted
	e.UpdatedAt = now
	return nil
}

func (e *Event) setDecision(actorID, note string, now time.Time) {
	e.DecidedBy = actorID
	e.DecidedAt = now
	e.DecisionNote = note
	e.UpdatedAt = now
}

// IsValidStatus reports whether s is a known event status.
func IsValidStatus(s string) bool {
	return contains(ValidStatuses, s)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
