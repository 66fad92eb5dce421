package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"refdesk/internal/adapters/auth"
	"refdesk/internal/adapters/metrics"
	"refdesk/internal/domain/account"
	"refdesk/internal/domain/audit"
)

// AccountStoreForLogin defines the store interface needed by Login.
type AccountStoreForLogin interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(accountID, email, role string) (string, auth.Claims, error)
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Email    string
	Password string
	IP       string
}

// LoginResult carries the result of a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   account.Account
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	AccountStore AccountStoreForLogin
	Tokens       TokenIssuer
	Audit        AuditWriter
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

// ExecuteLogin validates credentials and issues a session token.
// PRE: Valid email and password provided
// POST: Returns a signed token on success, records the failure otherwise
// INVARIANT: Locked, pending, rejected and suspended accounts never receive a token
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	if input.Email == "" || input.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	now := nowOr(deps.Now)

	acct, err := deps.AccountStore.GetByEmail(ctx, account.NormalizeEmail(input.Email))
	if err != nil {
		deps.Metrics.Inc(metrics.LoginFailed)
		slog.Info("auth_event", "event", "login_failed", "reason", "unknown_email")
		return LoginResult{}, ErrInvalidCredentials
	}

	if acct.IsLocked(now) {
		slog.Info("auth_event", "event", "login_blocked", "account_id", acct.ID, "reason", "locked")
		return LoginResult{}, ErrAccountLocked
	}

	if err := acct.CheckPassword(input.Password); err != nil {
		acct.RecordFailedLogin(now)
		if saveErr := deps.AccountStore.Save(ctx, acct); saveErr != nil {
			slog.Error("auth_event", "event", "failed_login_save_error", "account_id", acct.ID, "error", saveErr)
		}
		deps.Metrics.Inc(metrics.LoginFailed)
		slog.Info("auth_event", "event", "login_failed", "account_id", acct.ID, "reason", "wrong_password", "failed_logins", acct.FailedLogins)
		if acct.IsLocked(now) {
			recordAudit(ctx, deps.Audit, audit.NewEvent(audit.Actor{ID: acct.ID, Email: acct.Email, Role: acct.Role, IP: input.IP},
				audit.CategorySecurity, audit.ActionLogin, now).
				WithSeverity(audit.SeverityWarning).
				WithResource("account", acct.ID).
				WithDescription("account locked after repeated failed logins"))
		}
		return LoginResult{}, ErrInvalidCredentials
	}

	switch acct.Status {
	case account.StatusPendingApproval:
		return LoginResult{}, ErrAccountPending
	case account.StatusRejected:
		return LoginResult{}, ErrAccountRejected
	case account.StatusSuspended:
		return LoginResult{}, ErrAccountSuspended
	}

	if acct.FailedLogins > 0 {
		acct.ResetFailedLogins()
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			slog.Error("auth_event", "event", "failed_login_reset_error", "account_id", acct.ID, "error", err)
		}
	}

	token, claims, err := deps.Tokens.Issue(acct.ID, acct.Email, acct.Role)
	if err != nil {
		return LoginResult{}, err
	}

	recordAudit(ctx, deps.Audit, audit.NewEvent(audit.Actor{ID: acct.ID, Email: acct.Email, Role: acct.Role, IP: input.IP},
		audit.CategorySecurity, audit.ActionLogin, now).WithResource("account", acct.ID))
	slog.Info("auth_event", "event", "login_success", "account_id", acct.ID, "role", acct.Role)

	return LoginResult{Token: token, ExpiresAt: claims.ExpiresAt.Time, Account: acct}, nil
}

// TokenRevoker records signed-out token IDs.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
}

// LogoutInput identifies the token being signed out.
type LogoutInput struct {
	TokenID   string
	ExpiresAt time.Time
	Actor     Actor
}

// LogoutDeps holds dependencies for Logout.
type LogoutDeps struct {
	Revocations TokenRevoker
	Audit       AuditWriter
	Now         func() time.Time
}

// ExecuteLogout revokes the token so it cannot be replayed before it expires.
// POST: TokenID is revoked until ExpiresAt
func ExecuteLogout(ctx context.Context, input LogoutInput, deps LogoutDeps) error {
	if input.TokenID == "" {
		return nil
	}
	if err := deps.Revocations.Revoke(ctx, input.TokenID, input.ExpiresAt); err != nil {
		return err
	}
	recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.auditActor(), audit.CategorySecurity, audit.ActionLogout, nowOr(deps.Now)).
		WithResource("account", input.Actor.ID))
	slog.Info("auth_event", "event", "logout", "account_id", input.Actor.ID)
	return nil
}
