package referee_test

import (
	"errors"
	"strings"
	"testing"

	"refdesk/internal/domain/referee"
)

// TestProfile_Validate tests validation of referee profiles.
func TestProfile_Validate(t *testing.T) {
	base := func() referee.Profile {
		return referee.Profile{AccountID: "acc-1", FullName: "Siti Rahma", LicenseLevel: referee.LicenseC1, Region: "Jawa Barat", Active: true}
	}
	tests := []struct {
		name    string
		mutate  func(p *referee.Profile)
		wantErr error
	}{
		{name: "valid", mutate: func(p *referee.Profile) {}},
		{name: "no license yet", mutate: func(p *referee.Profile) { p.LicenseLevel = "" }},
		{name: "missing account", mutate: func(p *referee.Profile) { p.AccountID = "" }, wantErr: referee.ErrEmptyAccountID},
		{name: "missing name", mutate: func(p *referee.Profile) { p.FullName = " " }, wantErr: referee.ErrEmptyName},
		{name: "unknown license", mutate: func(p *referee.Profile) { p.LicenseLevel = "Z9" }, wantErr: referee.ErrInvalidLicenseLevel},
		{name: "long region", mutate: func(p *referee.Profile) { p.Region = strings.Repeat("x", 81) }, wantErr: referee.ErrRegionTooLong},
		{name: "long phone", mutate: func(p *referee.Profile) { p.Phone = strings.Repeat("9", 31) }, wantErr: referee.ErrPhoneTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(&p)
			if err := p.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestLicenseRank tests license ordering.
func TestLicenseRank(t *testing.T) {
	if referee.LicenseRank(referee.LicenseC3) >= referee.LicenseRank(referee.LicenseA) {
		t.Error("C3 should rank below A")
	}
	if referee.LicenseRank("c1") != referee.LicenseRank(referee.LicenseC1) {
		t.Error("rank lookup should be case-insensitive")
	}
	if referee.LicenseRank("bogus") != -1 {
		t.Error("unknown level should rank -1")
	}
}
