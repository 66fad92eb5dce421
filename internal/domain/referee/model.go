package referee

import (
	"errors"
	"strings"
	"time"
)

// License levels, lowest to highest.
const (
	LicenseC3       = "C3"
	LicenseC2       = "C2"
	LicenseC1       = "C1"
	LicenseB        = "B"
	LicenseA        = "A"
	LicenseNational = "national"
)

// ValidLicenseLevels contains all license levels in ascending order.
var ValidLicenseLevels = []string{LicenseC3, LicenseC2, LicenseC1, LicenseB, LicenseA, LicenseNational}

// Max length constants for user-editable fields.
const (
	MaxRegionLength  = 80
	MaxLicenseNumLen = 40
	MaxPhoneLength   = 30
)

// Domain errors
var (
	ErrEmptyAccountID      = errors.New("referee account ID is required")
	ErrEmptyName           = errors.New("referee name cannot be empty")
	ErrInvalidLicenseLevel = errors.New("license level must be one of: C3, C2, C1, B, A, national")
	ErrRegionTooLong       = errors.New("region cannot exceed 80 characters")
	ErrLicenseNumTooLong   = errors.New("license number cannot exceed 40 characters")
	ErrPhoneTooLong        = errors.New("phone cannot exceed 30 characters")
	ErrInactive            = errors.New("referee is not active")
)

// Profile is the referee-specific data attached to a referee account.
type Profile struct {
	AccountID     string
	FullName      string
	Email         string
	LicenseLevel  string
	LicenseNumber string
	Region        string
	Phone         string
	Active        bool
	UpdatedAt     time.Time
}

// Validate checks if the Profile has valid data.
// PRE: Profile struct is populated
// POST: Returns nil if valid, error otherwise
func (p *Profile) Validate() error {
	if p.AccountID == "" {
		return ErrEmptyAccountID
	}
	if strings.TrimSpace(p.FullName) == "" {
		return ErrEmptyName
	}
	if p.LicenseLevel != "" && LicenseRank(p.LicenseLevel) < 0 {
		return ErrInvalidLicenseLevel
	}
	if len(p.Region) > MaxRegionLength {
		return ErrRegionTooLong
	}
	if len(p.LicenseNumber) > MaxLicenseNumLen {
		return ErrLicenseNumTooLong
	}
	if len(p.Phone) > MaxPhoneLength {
		return ErrPhoneTooLong
	}
	return nil
}

// LicenseRank returns the ordinal of a license level, or -1 if unknown.
func LicenseRank(level string) int {
	for i, l := range ValidLicenseLevels {
		if strings.EqualFold(l, level) {
			return i
		}
	}
	return -1
}

// CanOfficiate reports whether the referee can be assigned to new events.
func (p *Profile) CanOfficiate() bool {
	return p.Active
}
