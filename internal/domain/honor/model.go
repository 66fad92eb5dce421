package honor

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Honor statuses
const (
	StatusSubmitted = "submitted"
	StatusVerified  = "verified"
	StatusRejected  = "rejected"
	StatusPaid      = "paid"
)

// Verification decisions
const (
	DecisionVerify = "verify"
	DecisionReject = "reject"
)

// Max length constants for user-editable fields.
const (
	MaxNoteLength   = 500
	MaxReasonLength = 500
)

// ValidStatuses contains all valid honor statuses.
var ValidStatuses = []string{StatusSubmitted, StatusVerified, StatusRejected, StatusPaid}

// Domain errors
var (
	ErrEmptyEventID      = errors.New("honor event ID cannot be empty")
	ErrEmptyRefereeID    = errors.New("honor referee ID cannot be empty")
	ErrNonPositiveAmount = errors.New("honor amount must be greater than zero")
	ErrAmountTooLarge    = errors.New("honor amount exceeds the allowed maximum")
	ErrNoteTooLong       = errors.New("honor note cannot exceed 500 characters")
	ErrInvalidStatus     = errors.New("honor status must be one of: submitted, verified, rejected, paid")
	ErrNotSubmitted      = errors.New("honor is not awaiting verification")
	ErrNotVerified       = errors.New("honor has not been verified")
	ErrNotResubmittable  = errors.New("only rejected honors can be resubmitted")
	ErrEmptyReason       = errors.New("a rejection reason is required")
	ErrReasonTooLong     = errors.New("rejection reason cannot exceed 500 characters")
	ErrInvalidDecision   = errors.New("decision must be verify or reject")
	ErrNoConfirmedDuty   = errors.New("referee has no confirmed assignment on this event")
	ErrNotOwner          = errors.New("honor belongs to another referee")
)

// Honor is a referee's payment claim for officiating an event.
type Honor struct {
	ID              string
	EventID         string
	RefereeID       string
	Amount          int64 // rupiah
	Note            string
	ReceiptKey      string // blob key, empty when no receipt uploaded
	Status          string
	SubmittedAt     time.Time
	VerifiedBy      string
	VerifiedAt      time.Time
	RejectionReason string
	PaidAt          time.Time
}

// Validate checks if the Honor has valid data against the amount cap.
// PRE: Honor struct is populated, maxAmount > 0
// POST: Returns nil if valid, error otherwise
func (h *Honor) Validate(maxAmount int64) error {
	if h.EventID == "" {
		return ErrEmptyEventID
	}
	if h.RefereeID == "" {
		return ErrEmptyRefereeID
	}
	if h.Amount <= 0 {
		return ErrNonPositiveAmount
	}
	if h.Amount > maxAmount {
		return fmt.Errorf("%w (%s)", ErrAmountTooLarge, FormatRupiah(maxAmount))
	}
	if len(h.Note) > MaxNoteLength {
		return ErrNoteTooLong
	}
	if !contains(ValidStatuses, h.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// Verify accepts a submitted honor.
// PRE: Status is submitted
// POST: Status is verified, VerifiedBy/VerifiedAt set
func (h *Honor) Verify(adminID string, now time.Time) error {
	if h.Status != StatusSubmitted {
		return ErrNotSubmitted
	}
	h.Status = StatusVerified
	h.VerifiedBy = adminID
	h.VerifiedAt = now
	h.RejectionReason = ""
	return nil
}

// Reject refuses a submitted honor with a reason.
// PRE: Status is submitted, reason non-empty
// POST: Status is rejected
func (h *Honor) Reject(adminID, reason string, now time.Time) error {
	if h.Status != StatusSubmitted {
		return ErrNotSubmitted
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrEmptyReason
	}
	if len(reason) > MaxReasonLength {
		return ErrReasonTooLong
	}
	h.Status = StatusRejected
	h.VerifiedBy = adminID
	h.VerifiedAt = now
	h.RejectionReason = reason
	return nil
}

// MarkPaid records payment of a verified honor.
func (h *Honor) MarkPaid(now time.Time) error {
	if h.Status != StatusVerified {
		return ErrNotVerified
	}
	h.Status = StatusPaid
	h.PaidAt = now
	return nil
}

// Resubmit reopens a rejected honor with a new amount and note.
// PRE: Status is rejected
// POST: Status is submitted, verification fields cleared
func (h *Honor) Resubmit(amount int64, note string, now time.Time) error {
	if h.Status != StatusRejected {
		return ErrNotResubmittable
	}
	h.Amount = amount
	h.Note = note
	h.Status = StatusSubmitted
	h.SubmittedAt = now
	h.VerifiedBy = ""
	h.VerifiedAt = time.Time{}
	h.RejectionReason = ""
	return nil
}

// ReceiptKeyFor builds the blob key for a receipt file.
func ReceiptKeyFor(honorID, filename string) string {
	return "honors/" + honorID + "/" + filename
}

// FormatRupiah formats an amount with dot thousands separators, e.g. "Rp 1.500.000".
func FormatRupiah(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := fmt.Sprintf("%d", amount)
	var b strings.Builder
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-Rp " + b.String()
	}
	return "Rp " + b.String()
}

// IsValidStatus reports whether s is a known honor status.
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
