package assignment

import (
	"errors"
	"time"
)

// Assignment roles
const (
	RolePrimary = "primary"
	RoleBackup  = "backup"
)

// Assignment statuses
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusDeclined  = "declined"
	StatusCancelled = "cancelled"
)

// MaxNoteLength bounds the free-text note.
const MaxNoteLength = 500

// ValidRoles contains all valid assignment roles.
var ValidRoles = []string{RolePrimary, RoleBackup}

// ValidStatuses contains all valid assignment statuses.
var ValidStatuses = []string{StatusPending, StatusConfirmed, StatusDeclined, StatusCancelled}

// BookingStatuses are the statuses that occupy a referee's dates.
var BookingStatuses = []string{StatusPending, StatusConfirmed}

// Domain errors
var (
	ErrEmptyEventID     = errors.New("assignment event ID cannot be empty")
	ErrEmptyRefereeID   = errors.New("assignment referee ID cannot be empty")
	ErrInvalidRole      = errors.New("assignment role must be one of: primary, backup")
	ErrInvalidStatus    = errors.New("assignment status must be one of: pending, confirmed, declined, cancelled")
	ErrNoteTooLong      = errors.New("assignment note cannot exceed 500 characters")
	ErrNotPending       = errors.New("assignment is not awaiting a response")
	ErrNotCancellable   = errors.New("only pending or confirmed assignments can be cancelled")
	ErrNotAssignee      = errors.New("only the assigned referee can respond")
	ErrInvalidResponse  = errors.New("response must be confirm or decline")
	ErrScheduleConflict = errors.New("referee is already booked on an overlapping event")
	ErrQuotaFull        = errors.New("all primary referee slots for this event are filled")
	ErrAlreadyAssigned  = errors.New("referee is already assigned to this event")
)

// Responses accepted by Respond.
const (
	ResponseConfirm = "confirm"
	ResponseDecline = "decline"
)

// Assignment places a referee on an event.
type Assignment struct {
	ID          string
	EventID     string
	RefereeID   string // AccountID of the referee
	Role        string
	Status      string
	AssignedBy  string
	Note        string
	CreatedAt   time.Time
	RespondedAt time.Time
	UpdatedAt   time.Time
}

// Validate checks if the Assignment has valid data.
// PRE: Assignment struct is populated
// POST: Returns nil if valid, error otherwise
func (a *Assignment) Validate() error {
	if a.EventID == "" {
		return ErrEmptyEventID
	}
	if a.RefereeID == "" {
		return ErrEmptyRefereeID
	}
	if !contains(ValidRoles, a.Role) {
		return ErrInvalidRole
	}
	if !contains(ValidStatuses, a.Status) {
		return ErrInvalidStatus
	}
	if len(a.Note) > MaxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

// IsBooking reports whether the assignment occupies the referee's dates.
func (a *Assignment) IsBooking() bool {
	return contains(BookingStatuses, a.Status)
}

// Respond records the referee's answer.
// PRE: Status is pending, refereeID matches RefereeID
// POST: Status is confirmed or declined, RespondedAt set
func (a *Assignment) Respond(refereeID, response string, now time.Time) error {
	if a.RefereeID != refereeID {
		return ErrNotAssignee
	}
	if a.Status != StatusPending {
		return ErrNotPending
	}
	switch response {
	case ResponseConfirm:
		a.Status = StatusConfirmed
	case ResponseDecline:
		a.Status = StatusDeclined
	default:
		return ErrInvalidResponse
	}
	a.RespondedAt = now
	a.UpdatedAt = now
	return nil
}

// Cancel withdraws the assignment.
// PRE: Status is pending or confirmed
// POST: Status is cancelled
func (a *Assignment) Cancel(now time.Time) error {
	if !a.IsBooking() {
		return ErrNotCancellable
	}
	a.Status = StatusCancelled
	a.UpdatedAt = now
	return nil
}

// IsValidStatus reports whether s is a known assignment status.
func IsValidStatus(s string) bool {
	return contains(ValidStatuses, s)
}

// IsValidRole reports whether r is a known assignment role.
func IsValidRole(r string) bool {
	return contains(ValidRoles, r)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
