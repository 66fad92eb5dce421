package account

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Max length constants for user-editable fields.
const (
	MaxEmailLength    = 254
	MaxNameLength     = 120
	MinPasswordLength = 8
)

// Role constants
const (
	RoleAdmin     = "admin"
	RoleReferee   = "referee"
	RoleOrganizer = "organizer"
)

// Account status constants
const (
	StatusPendingApproval = "pending_approval"
	StatusActive          = "active"
	StatusRejected        = "rejected"
	StatusSuspended       = "suspended"
)

// Lockout policy
const (
	MaxFailedLogins = 5
	LockoutDuration = 15 * time.Minute
)

// ValidRoles contains all valid role values.
var ValidRoles = []string{RoleAdmin, RoleReferee, RoleOrganizer}

// ValidStatuses contains all valid status values.
var ValidStatuses = []string{StatusPendingApproval, StatusActive, StatusRejected, StatusSuspended}

// Domain errors
var (
	ErrEmptyEmail         = errors.New("email cannot be empty")
	ErrInvalidEmail       = errors.New("email must contain '@'")
	ErrEmailTooLong       = errors.New("email cannot exceed 254 characters")
	ErrEmptyName          = errors.New("full name cannot be empty")
	ErrNameTooLong        = errors.New("full name cannot exceed 120 characters")
	ErrInvalidRole        = errors.New("role must be one of: admin, referee, organizer")
	ErrInvalidStatus      = errors.New("status must be one of: pending_approval, active, rejected, suspended")
	ErrEmptyPassword      = errors.New("password cannot be empty")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrWrongPassword      = errors.New("incorrect password")
	ErrNotPendingApproval = errors.New("account is not pending approval")
	ErrNotActive          = errors.New("account is not active")
	ErrNotSuspended       = errors.New("account is not suspended")
)

// Account is a user of the federation system.
type Account struct {
	ID                     string
	Email                  string
	PasswordHash           string `json:"-"`
	Role                   string
	Status                 string
	FullName               string
	Phone                  string
	CreatedAt              time.Time
	DecidedBy              string // AccountID of the admin who approved or rejected
	DecidedAt              time.Time
	DecisionNote           string
	FailedLogins           int       `json:"-"`
	LockedUntil            time.Time `json:"-"`
	PasswordChangeRequired bool
}

// Validate checks if the Account has valid data.
// PRE: Account struct is populated
// POST: Returns nil if valid, error otherwise
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Email) == "" {
		return ErrEmptyEmail
	}
	if len(a.Email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if !strings.Contains(a.Email, "@") {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(a.FullName) == "" {
		return ErrEmptyName
	}
	if len(a.FullName) > MaxNameLength {
		return ErrNameTooLong
	}
	if !contains(ValidRoles, a.Role) {
		return ErrInvalidRole
	}
	if !contains(ValidStatuses, a.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// NormalizeEmail lower-cases and trims an email address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SetPassword hashes and stores a password using bcrypt.
// PRE: plaintext is non-empty and >= MinPasswordLength characters
// POST: PasswordHash is set to bcrypt hash
func (a *Account) SetPassword(plaintext string) error {
	if plaintext == "" {
		return ErrEmptyPassword
	}
	if len(plaintext) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
// INVARIANT: Account fields are not mutated
func (a *Account) CheckPassword(plaintext string) error {
	if a.PasswordHash == "" {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// IsLocked returns true if the account is locked out at now.
// INVARIANT: Account fields are not mutated
func (a *Account) IsLocked(now time.Time) bool {
	return !a.LockedUntil.IsZero() && now.Before(a.LockedUntil)
}

// RecordFailedLogin increments the failed login counter and locks the account
// after MaxFailedLogins failures.
// POST: FailedLogins incremented; LockedUntil set once the limit is reached
func (a *Account) RecordFailedLogin(now time.Time) {
	a.FailedLogins++
	if a.FailedLogins >= MaxFailedLogins {
		a.LockedUntil = now.Add(LockoutDuration)
	}
}

// ResetFailedLogins clears the failed login counter and lock.
func (a *Account) ResetFailedLogins() {
	a.FailedLogins = 0
	a.LockedUntil = time.Time{}
}

// IsAdmin returns true if the account has admin role.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsActive returns true if the account may sign in.
func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

// Approve moves a pending registration to active.
// PRE: Status is pending_approval, adminID is non-empty
// POST: Status is active, DecidedBy/DecidedAt set
func (a *Account) Approve(adminID string, now time.Time) error {
	if a.Status != StatusPendingApproval {
		return ErrNotPendingApproval
	}
	a.Status = StatusActive
	a.DecidedBy = adminID
	a.DecidedAt = now
	a.DecisionNote = ""
	return nil
}

// Reject moves a pending registration to rejected.
// PRE: Status is pending_approval
// POST: Status is rejected, DecisionNote holds the reason
func (a *Account) Reject(adminID, reason string, now time.Time) error {
	if a.Status != StatusPendingApproval {
		return ErrNotPendingApproval
	}
	a.Status = StatusRejected
	a.DecidedBy = adminID
	a.DecidedAt = now
	a.DecisionNote = reason
	return nil
}

// Suspend blocks an active account from signing in.
func (a *Account) Suspend() error {
	if a.Status != StatusActive {
		return ErrNotActive
	}
	a.Status = StatusSuspended
	return nil
}

// Reactivate restores a suspended account.
func (a *Account) Reactivate() error {
	if a.Status != StatusSuspended {
		return ErrNotSuspended
	}
	a.Status = StatusActive
	return nil
}

// IsValidRole reports whether role is a known role.
func IsValidRole(role string) bool {
	return contains(ValidRoles, role)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
