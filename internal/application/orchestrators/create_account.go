package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"refdesk/internal/adapters/email"
	"refdesk/internal/adapters/metrics"
	"refdesk/internal/adapters/storage/account"
	domainAccount "refdesk/internal/domain/account"
	"refdesk/internal/domain/referee"
)

// AccountStoreForRegister defines the store interface needed by Register.
type AccountStoreForRegister interface {
	GetByEmail(ctx context.Context, email string) (domainAccount.Account, error)
	Save(ctx context.Context, a domainAccount.Account) error
	List(ctx context.Context, filter account.ListFilter) ([]domainAccount.Account, error)
}

// RefereeProfileSaver persists referee profiles.
type RefereeProfileSaver interface {
	Save(ctx context.Context, p referee.Profile) error
}

// RegisterInput carries a self-registration request.
type RegisterInput struct {
	Email         string
	Password      string
	FullName      string
	Phone         string
	Role          string
	LicenseLevel  string
	LicenseNumber string
	Region        string
}

// RegisterDeps holds dependencies for Register.
type RegisterDeps struct {
	AccountStore AccountStoreForRegister
	RefereeStore RefereeProfileSaver
	Outbox       OutboxWriter
	Metrics      *metrics.Metrics
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteRegister creates an account awaiting admin approval.
// PRE: Role is referee or organizer; password >= 8 chars
// POST: Account saved with status pending_approval; referees get an inactive-until-approved profile; admins emailed
// INVARIANT: Email is unique (case-insensitive)
func ExecuteRegister(ctx context.Context, input RegisterInput, deps RegisterDeps) (domainAccount.Account, error) {
	if input.Role != domainAccount.RoleReferee && input.Role != domainAccount.RoleOrganizer {
		return domainAccount.Account{}, ErrSelfRegisterRole
	}
	emailAddr := domainAccount.NormalizeEmail(input.Email)
	if _, err := deps.AccountStore.GetByEmail(ctx, emailAddr); err == nil {
		return domainAccount.Account{}, ErrEmailAlreadyExists
	}

	now := nowOr(deps.Now)
	acct := domainAccount.Account{
		ID:        idOr(deps.GenerateID),
		Email:     emailAddr,
		Role:      input.Role,
		Status:    domainAccount.StatusPendingApproval,
		FullName:  strings.TrimSpace(input.FullName),
		Phone:     strings.TrimSpace(input.Phone),
		CreatedAt: now,
	}
	if err := acct.Validate(); err != nil {
		return domainAccount.Account{}, err
	}
	if err := acct.SetPassword(input.Password); err != nil {
		return domainAccount.Account{}, err
	}

	var profile referee.Profile
	if acct.Role == domainAccount.RoleReferee {
		profile = referee.Profile{
			AccountID:     acct.ID,
			FullName:      acct.FullName,
			LicenseLevel:  input.LicenseLevel,
			LicenseNumber: strings.TrimSpace(input.LicenseNumber),
			Region:        strings.TrimSpace(input.Region),
			Active:        true,
			UpdatedAt:     now,
		}
		if err := profile.Validate(); err != nil {
			return domainAccount.Account{}, err
		}
	}

	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return domainAccount.Account{}, fmt.Errorf("save account: %w", err)
	}
	if acct.Role == domainAccount.RoleReferee {
		if err := deps.RefereeStore.Save(ctx, profile); err != nil {
			return domainAccount.Account{}, fmt.Errorf("save referee profile: %w", err)
		}
	}

	deps.Metrics.Inc(metrics.RegistrationSubmitted)
	enqueueEmail(ctx, deps.Outbox, adminEmails(ctx, deps.AccountStore), email.TemplateRegistrationSubmitted,
		email.Data{Name: acct.FullName, Email: acct.Email, Role: acct.Role}, now)

	slog.Info("auth_event", "event", "account_registered", "account_id", acct.ID, "role", acct.Role)
	return acct, nil
}

// SeedAdminStore defines the store interface needed by SeedAdmin.
type SeedAdminStore interface {
	GetByEmail(ctx context.Context, email string) (domainAccount.Account, error)
	Save(ctx context.Context, a domainAccount.Account) error
	Count(ctx context.Context, filter account.ListFilter) (int, error)
}

// SeedAdminDeps holds dependencies for SeedAdmin.
type SeedAdminDeps struct {
	AccountStore SeedAdminStore
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteSeedAdmin creates the configured admin when no account exists yet.
// PRE: Database is migrated
// POST: An active admin that must change its password exists if the table was empty
func ExecuteSeedAdmin(ctx context.Context, emailAddr, password string, deps SeedAdminDeps) error {
	count, err := deps.AccountStore.Count(ctx, account.ListFilter{})
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if emailAddr == "" || password == "" {
		return errors.New("admin email and password are required to seed the first account")
	}

	acct := domainAccount.Account{
		ID:                     idOr(deps.GenerateID),
		Email:                  domainAccount.NormalizeEmail(emailAddr),
		Role:                   domainAccount.RoleAdmin,
		Status:                 domainAccount.StatusActive,
		FullName:               "Administrator",
		CreatedAt:              nowOr(deps.Now),
		PasswordChangeRequired: true,
	}
	if err := acct.Validate(); err != nil {
		return err
	}
	if err := acct.SetPassword(password); err != nil {
		return err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return err
	}

	slog.Info("auth_event", "event", "admin_seeded", "email", acct.Email)
	return nil
}
