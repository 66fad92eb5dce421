package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"refdesk/internal/adapters/auth"
	"refdesk/internal/adapters/storage/session"
	"refdesk/internal/adapters/storage/storagetest"
	"refdesk/internal/domain/account"
	"refdesk/internal/domain/audit"
	"refdesk/internal/domain/referee"

	"github.com/golang-jwt/jwt/v5"
)

// mockTokenIssuer implements TokenIssuer for testing.
type mockTokenIssuer struct {
	issued []string
}

func (m *mockTokenIssuer) Issue(accountID, email, role string) (string, auth.Claims, error) {
	m.issued = append(m.issued, accountID)
	claims := auth.Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ID:        "jti-" + accountID,
			ExpiresAt: jwt.NewNumericDate(fixedTime.Add(24 * time.Hour)),
		},
	}
	return "token-" + accountID, claims, nil
}

func (f *fixture) registerDeps() RegisterDeps {
	return RegisterDeps{
		AccountStore: f.accounts,
		RefereeStore: f.referees,
		Outbox:       f.outbox,
		GenerateID:   fixedID,
		Now:          fixedNow,
	}
}

// seedLogin stores an account with a known password.
func (f *fixture) seedLogin(t *testing.T, id, status string) account.Account {
	t.Helper()
	a := account.Account{
		ID:        id,
		Email:     id + "@login.id",
		Role:      account.RoleReferee,
		Status:    status,
		FullName:  "Login " + id,
		CreatedAt: fixedTime,
	}
	if err := a.SetPassword("peluit-panjang"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if err := f.accounts.Save(context.Background(), a); err != nil {
		t.Fatalf("save account: %v", err)
	}
	return a
}

// TestExecuteRegister_Referee tests that referee registrations get a profile and notify admins.
func TestExecuteRegister_Referee(t *testing.T) {
	f := newFixture(t)
	acct, err := ExecuteRegister(context.Background(), RegisterInput{
		Email:         "  Eko@Fed.OR.ID ",
		Password:      "peluit-panjang",
		FullName:      "Eko Prasetyo",
		Role:          account.RoleReferee,
		LicenseLevel:  "C2",
		LicenseNumber: "JB-010",
		Region:        "Cimahi",
	}, f.registerDeps())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acct.Email != "eko@fed.or.id" || acct.Status != account.StatusPendingApproval {
		t.Errorf("unexpected account: %+v", acct)
	}
	p, err := f.referees.GetByAccountID(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("expected referee profile: %v", err)
	}
	if p.LicenseLevel != "C2" || p.Region != "Cimahi" {
		t.Errorf("unexpected profile: %+v", p)
	}
	reqs := f.outbox.requests(t)
	if len(reqs) != 1 || reqs[0].To[0] != "admin@fed.or.id" {
		t.Errorf("expected admin notification, got %+v", reqs)
	}
}

// TestExecuteRegister_Rejections tests duplicate email and role rules.
func TestExecuteRegister_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{
			name:    "duplicate email",
			input:   RegisterInput{Email: "R1@fed.or.id", Password: "peluit-panjang", FullName: "Dup", Role: account.RoleReferee},
			wantErr: ErrEmailAlreadyExists,
		},
		{
			name:    "admin role",
			input:   RegisterInput{Email: "new@fed.or.id", Password: "peluit-panjang", FullName: "New", Role: account.RoleAdmin},
			wantErr: ErrSelfRegisterRole,
		},
		{
			name:    "short password",
			input:   RegisterInput{Email: "new@fed.or.id", Password: "short", FullName: "New", Role: account.RoleOrganizer},
			wantErr: account.ErrPasswordTooShort,
		},
		{
			name:    "bad license",
			input:   RegisterInput{Email: "new@fed.or.id", Password: "peluit-panjang", FullName: "New", Role: account.RoleReferee, LicenseLevel: "Z"},
			wantErr: referee.ErrInvalidLicenseLevel,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := ExecuteRegister(context.Background(), tt.input, f.registerDeps())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestExecuteSeedAdmin tests that the admin is seeded only into an empty table.
func TestExecuteSeedAdmin(t *testing.T) {
	f := newFixture(t)
	deps := SeedAdminDeps{AccountStore: f.accounts, GenerateID: fixedID, Now: fixedNow}
	if err := ExecuteSeedAdmin(context.Background(), "root@fed.or.id", "peluit-panjang", deps); err != nil {
		t.Fatalf("seed on populated table: %v", err)
	}
	if _, err := f.accounts.GetByEmail(context.Background(), "root@fed.or.id"); err == nil {
		t.Error("admin should not be seeded when accounts exist")
	}

	storagetest.Exec(t, f.db, `DELETE FROM referee_profile`, `DELETE FROM event`, `DELETE FROM account`)
	if err := ExecuteSeedAdmin(context.Background(), "Root@Fed.or.id", "peluit-panjang", deps); err != nil {
		t.Fatalf("seed: %v", err)
	}
	a, err := f.accounts.GetByEmail(context.Background(), "root@fed.or.id")
	if err != nil {
		t.Fatalf("expected seeded admin: %v", err)
	}
	if !a.IsAdmin() || !a.IsActive() || !a.PasswordChangeRequired {
		t.Errorf("unexpected seeded admin: %+v", a)
	}
}

// TestExecuteDecideRegistration tests approval, rejection and the admin check.
func TestExecuteDecideRegistration(t *testing.T) {
	f := newFixture(t)
	pending := f.seedLogin(t, "p1", account.StatusPendingApproval)

	if _, err := ExecuteDecideRegistration(context.Background(), DecideRegistrationInput{
		AccountID: pending.ID, Decision: DecisionApprove, Actor: organizerActor,
	}, f.accountAdminDeps()); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if _, err := ExecuteDecideRegistration(context.Background(), DecideRegistrationInput{
		AccountID: pending.ID, Decision: "maybe", Actor: adminActor,
	}, f.accountAdminDeps()); !errors.Is(err, ErrInvalidDecision) {
		t.Errorf("expected ErrInvalidDecision, got %v", err)
	}

	acct, err := ExecuteDecideRegistration(context.Background(), DecideRegistrationInput{
		AccountID: pending.ID, Decision: DecisionReject, Reason: " license expired ", Actor: adminActor,
	}, f.accountAdminDeps())
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if acct.Status != account.StatusRejected || acct.DecisionNote != "license expired" {
		t.Errorf("unexpected account: %+v", acct)
	}
	reqs := f.outbox.requests(t)
	if len(reqs) != 1 || reqs[0].Subject != "Your registration was rejected" {
		t.Errorf("unexpected email: %+v", reqs)
	}
	if got := f.audit.actions(); len(got) != 1 || got[0] != audit.ActionReject {
		t.Errorf("expected reject audit, got %v", got)
	}

	if _, err := ExecuteDecideRegistration(context.Background(), DecideRegistrationInput{
		AccountID: pending.ID, Decision: DecisionApprove, Actor: adminActor,
	}, f.accountAdminDeps()); !errors.Is(err, account.ErrNotPendingApproval) {
		t.Errorf("expected ErrNotPendingApproval, got %v", err)
	}
}

// TestExecuteSetAccountStatus tests suspend and reactivate.
func TestExecuteSetAccountStatus(t *testing.T) {
	f := newFixture(t)
	if _, err := ExecuteSetAccountStatus(context.Background(), SetAccountStatusInput{
		AccountID: "admin", Action: StatusActionSuspend, Actor: adminActor,
	}, f.accountAdminDeps()); !errors.Is(err, ErrSelfStatusChange) {
		t.Errorf("expected ErrSelfStatusChange, got %v", err)
	}

	acct, err := ExecuteSetAccountStatus(context.Background(), SetAccountStatusInput{
		AccountID: "r1", Action: StatusActionSuspend, Actor: adminActor,
	}, f.accountAdminDeps())
	if err != nil || acct.Status != account.StatusSuspended {
		t.Fatalf("suspend: %+v %v", acct, err)
	}
	acct, err = ExecuteSetAccountStatus(context.Background(), SetAccountStatusInput{
		AccountID: "r1", Action: StatusActionReactivate, Actor: adminActor,
	}, f.accountAdminDeps())
	if err != nil || acct.Status != account.StatusActive {
		t.Fatalf("reactivate: %+v %v", acct, err)
	}
}

// TestExecuteChangeRole tests that new referees receive a profile.
func TestExecuteChangeRole(t *testing.T) {
	f := newFixture(t)
	acct, err := ExecuteChangeRole(context.Background(), ChangeRoleInput{
		AccountID: "org", Role: account.RoleReferee, Actor: adminActor,
	}, f.accountAdminDeps())
	if err != nil {
		t.Fatalf("change role: %v", err)
	}
	if acct.Role != account.RoleReferee {
		t.Errorf("expected referee, got %s", acct.Role)
	}
	if _, err := f.referees.GetByAccountID(context.Background(), "org"); err != nil {
		t.Errorf("expected a referee profile: %v", err)
	}
	if _, err := ExecuteChangeRole(context.Background(), ChangeRoleInput{
		AccountID: "org", Role: "coach", Actor: adminActor,
	}, f.accountAdminDeps()); !errors.Is(err, account.ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}
}

// TestExecuteLogin tests the credential and status checks.
func TestExecuteLogin(t *testing.T) {
	f := newFixture(t)
	f.seedLogin(t, "ok", account.StatusActive)
	f.seedLogin(t, "wait", account.StatusPendingApproval)
	f.seedLogin(t, "off", account.StatusSuspended)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "valid", email: "OK@login.id", password: "peluit-panjang"},
		{name: "wrong password", email: "ok@login.id", password: "nope-nope", wantErr: ErrInvalidCredentials},
		{name: "unknown email", email: "ghost@login.id", password: "peluit-panjang", wantErr: ErrInvalidCredentials},
		{name: "empty", email: "", password: "", wantErr: ErrInvalidCredentials},
		{name: "pending", email: "wait@login.id", password: "peluit-panjang", wantErr: ErrAccountPending},
		{name: "suspended", email: "off@login.id", password: "peluit-panjang", wantErr: ErrAccountSuspended},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := &mockTokenIssuer{}
			res, err := ExecuteLogin(context.Background(), LoginInput{Email: tt.email, Password: tt.password}, LoginDeps{
				AccountStore: f.accounts,
				Tokens:       tokens,
				Audit:        f.audit,
				Now:          fixedNow,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && (res.Token != "token-ok" || res.Account.ID != "ok") {
				t.Errorf("unexpected result: %+v", res)
			}
			if tt.wantErr != nil && len(tokens.issued) != 0 {
				t.Error("no token should be issued on failure")
			}
		})
	}
}

// TestExecuteLogin_Lockout tests that repeated failures lock the account.
func TestExecuteLogin_Lockout(t *testing.T) {
	f := newFixture(t)
	f.seedLogin(t, "ok", account.StatusActive)
	deps := LoginDeps{AccountStore: f.accounts, Tokens: &mockTokenIssuer{}, Audit: f.audit, Now: fixedNow}

	for i := 0; i < account.MaxFailedLogins; i++ {
		if _, err := ExecuteLogin(context.Background(), LoginInput{Email: "ok@login.id", Password: "wrong-pass"}, deps); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
	if _, err := ExecuteLogin(context.Background(), LoginInput{Email: "ok@login.id", Password: "peluit-panjang"}, deps); !errors.Is(err, ErrAccountLocked) {
		t.Errorf("expected ErrAccountLocked, got %v", err)
	}

	deps.Now = func() time.Time { return fixedTime.Add(account.LockoutDuration + time.Minute) }
	if _, err := ExecuteLogin(context.Background(), LoginInput{Email: "ok@login.id", Password: "peluit-panjang"}, deps); err != nil {
		t.Errorf("login after lockout expiry: %v", err)
	}
	a, _ := f.accounts.GetByEmail(context.Background(), "ok@login.id")
	if a.FailedLogins != 0 {
		t.Errorf("expected failed logins reset, got %d", a.FailedLogins)
	}
}

// TestExecuteLogout tests that the token ID is revoked.
func TestExecuteLogout(t *testing.T) {
	f := newFixture(t)
	revocations := session.NewSQLiteStore(f.db)
	err := ExecuteLogout(context.Background(), LogoutInput{
		TokenID:   "jti-1",
		ExpiresAt: fixedTime.Add(time.Hour),
		Actor:     refereeActor("r1"),
	}, LogoutDeps{Revocations: revocations, Audit: f.audit, Now: fixedNow})
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	revoked, err := revocations.IsRevoked(context.Background(), "jti-1")
	if err != nil || !revoked {
		t.Errorf("expected jti-1 revoked, got %v %v", revoked, err)
	}
}

// TestExecuteChangePassword tests the current password check and flag reset.
func TestExecuteChangePassword(t *testing.T) {
	f := newFixture(t)
	a := f.seedLogin(t, "ok", account.StatusActive)
	a.PasswordChangeRequired = true
	if err := f.accounts.Save(context.Background(), a); err != nil {
		t.Fatalf("save: %v", err)
	}
	deps := ChangePasswordDeps{AccountStore: f.accounts}

	if err := ExecuteChangePassword(context.Background(), ChangePasswordInput{
		AccountID: "ok", CurrentPassword: "wrong-pass", NewPassword: "kartu-kuning",
	}, deps); !errors.Is(err, account.ErrWrongPassword) {
		t.Errorf("expected ErrWrongPassword, got %v", err)
	}
	if err := ExecuteChangePassword(context.Background(), ChangePasswordInput{
		AccountID: "ok", CurrentPassword: "peluit-panjang", NewPassword: "peluit-panjang",
	}, deps); !errors.Is(err, ErrNewPasswordSame) {
		t.Errorf("expected ErrNewPasswordSame, got %v", err)
	}
	if err := ExecuteChangePassword(context.Background(), ChangePasswordInput{
		AccountID: "ok", CurrentPassword: "peluit-panjang", NewPassword: "kartu-kuning",
	}, deps); err != nil {
		t.Fatalf("change password: %v", err)
	}
	got, _ := f.accounts.GetByID(context.Background(), "ok")
	if got.PasswordChangeRequired || got.CheckPassword("kartu-kuning") != nil {
		t.Errorf("password not updated: %+v", got)
	}
}

// TestExecuteUpdateRefereeProfile tests self edits and admin-only fields.
func TestExecuteUpdateRefereeProfile(t *testing.T) {
	f := newFixture(t)
	deps := UpdateRefereeProfileDeps{AccountStore: f.accounts, RefereeStore: f.referees, Audit: f.audit, Now: fixedNow}
	inactive := false

	p, err := ExecuteUpdateRefereeProfile(context.Background(), UpdateRefereeProfileInput{
		AccountID: "r1", FullName: ptr("Andi W."), Phone: ptr("0812"), Region: ptr("Cimahi"),
		LicenseLevel: ptr("A"), Active: &inactive, Actor: refereeActor("r1"),
	}, deps)
	if err != nil {
		t.Fatalf("self update: %v", err)
	}
	if p.FullName != "Andi W." || p.Region != "Cimahi" || p.LicenseLevel != "C1" || !p.Active {
		t.Errorf("referee must not change license or active flag: %+v", p)
	}

	p, err = ExecuteUpdateRefereeProfile(context.Background(), UpdateRefereeProfileInput{
		AccountID: "r1", LicenseLevel: ptr("A"), LicenseNumber: ptr("JB-001"), Active: &inactive, Actor: adminActor,
	}, deps)
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if p.LicenseLevel != "A" || p.Active {
		t.Errorf("admin update not applied: %+v", p)
	}
	if p.FullName != "Andi W." || p.Phone != "0812" || p.Region != "Cimahi" {
		t.Errorf("omitted fields changed: %+v", p)
	}
	if len(f.audit.events) != 1 {
		t.Errorf("expected admin edit audited, got %d events", len(f.audit.events))
	}

	if _, err := ExecuteUpdateRefereeProfile(context.Background(), UpdateRefereeProfileInput{
		AccountID: "r1", FullName: ptr("X"), Actor: refereeActor("r2"),
	}, deps); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

// TestExecuteUpdateRefereeProfile_ActiveOnly tests that toggling the active
// flag leaves license and contact fields as stored.
func TestExecuteUpdateRefereeProfile_ActiveOnly(t *testing.T) {
	f := newFixture(t)
	deps := UpdateRefereeProfileDeps{AccountStore: f.accounts, RefereeStore: f.referees, Audit: f.audit, Now: fixedNow}
	ctx := context.Background()

	before, err := f.referees.GetByAccountID(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	inactive := false
	p, err := ExecuteUpdateRefereeProfile(ctx, UpdateRefereeProfileInput{
		AccountID: "r1", Active: &inactive, Actor: adminActor,
	}, deps)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.Active {
		t.Error("expected profile deactivated")
	}
	if p.LicenseLevel != before.LicenseLevel || p.LicenseNumber != before.LicenseNumber ||
		p.Phone != before.Phone || p.Region != before.Region || p.FullName != before.FullName {
		t.Errorf("fields changed: before %+v after %+v", before, p)
	}

	p, err = ExecuteUpdateRefereeProfile(ctx, UpdateRefereeProfileInput{
		AccountID: "r1", Phone: ptr(""), Actor: refereeActor("r1"),
	}, deps)
	if err != nil {
		t.Fatalf("clear phone: %v", err)
	}
	if p.Phone != "" || p.Region != before.Region {
		t.Errorf("explicit empty phone should clear only phone: %+v", p)
	}
}

func ptr[T any](v T) *T { return &v }
