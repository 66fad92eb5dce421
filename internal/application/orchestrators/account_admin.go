package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"refdesk/internal/adapters/email"
	"refdesk/internal/adapters/metrics"
	"refdesk/internal/domain/account"
	"refdesk/internal/domain/audit"
	"refdesk/internal/domain/referee"
)

// Account status actions.
const (
	StatusActionSuspend    = "suspend"
	StatusActionReactivate = "reactivate"
)

// Decisions accepted by approval workflows.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// AccountStoreForAdmin defines the store interface needed by admin account workflows.
type AccountStoreForAdmin interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// RefereeProfileStore reads and writes referee profiles.
type RefereeProfileStore interface {
	GetByAccountID(ctx context.Context, accountID string) (referee.Profile, error)
	Save(ctx context.Context, p referee.Profile) error
}

// DecideRegistrationInput carries an admin decision on a pending registration.
type DecideRegistrationInput struct {
	AccountID string
	Decision  string
	Reason    string
	Actor     Actor
}

// AccountAdminDeps holds dependencies for admin account workflows.
type AccountAdminDeps struct {
	AccountStore AccountStoreForAdmin
	RefereeStore RefereeProfileStore
	Outbox       OutboxWriter
	Audit        AuditWriter
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

// ExecuteDecideRegistration approves or rejects a pending registration.
// PRE: Actor is admin; account status is pending_approval
// POST: Account is active or rejected; user emailed; decision audited
func ExecuteDecideRegistration(ctx context.Context, input DecideRegistrationInput, deps AccountAdminDeps) (account.Account, error) {
	if !input.Actor.IsAdmin() {
		return account.Account{}, ErrForbidden
	}
	acct, err := deps.AccountStore.GetByID(ctx, input.AccountID)
	if err != nil {
		return account.Account{}, err
	}

	now := nowOr(deps.Now)
	reason := strings.TrimSpace(input.Reason)
	switch input.Decision {
	case DecisionApprove:
		err = acct.Approve(input.Actor.ID, now)
	case DecisionReject:
		err = acct.Reject(input.Actor.ID, reason, now)
	default:
		err = ErrInvalidDecision
	}
	if err != nil {
		return account.Account{}, err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return account.Account{}, fmt.Errorf("save account: %w", err)
	}

	approved := input.Decision == DecisionApprove
	deps.Metrics.Inc(metrics.RegistrationDecided)
	action := audit.ActionReject
	if approved {
		action = audit.ActionApprove
	}
	recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.auditActor(), audit.CategoryAccount, action, now).
		WithResource("account", acct.ID).
		WithDescription(fmt.Sprintf("registration of %s %s", acct.Email, decisionWord(approved))))
	enqueueEmail(ctx, deps.Outbox, []string{acct.Email}, email.TemplateRegistrationDecided,
		email.Data{Name: acct.FullName, Decision: decisionWord(approved), Note: reason}, now)

	slog.Info("account_event", "event", "registration_decided", "account_id", acct.ID, "decision", input.Decision, "admin_id", input.Actor.ID)
	return acct, nil
}

// SetAccountStatusInput carries a suspend or reactivate request.
type SetAccountStatusInput struct {
	AccountID string
	Action    string
	Actor     Actor
}

// ExecuteSetAccountStatus suspends or reactivates an account.
// PRE: Actor is admin and not the target account
// POST: Account status is suspended or active; change audited
func ExecuteSetAccountStatus(ctx context.Context, input SetAccountStatusInput, deps AccountAdminDeps) (account.Account, error) {
	if !input.Actor.IsAdmin() {
		return account.Account{}, ErrForbidden
	}
	if input.AccountID == input.Actor.ID {
		return account.Account{}, ErrSelfStatusChange
	}
	acct, err := deps.AccountStore.GetByID(ctx, input.AccountID)
	if err != nil {
		return account.Account{}, err
	}
	switch input.Action {
	case StatusActionSuspend:
		err = acct.Suspend()
	case StatusActionReactivate:
		err = acct.Reactivate()
	default:
		err = fmt.Errorf("%w: action must be suspend or reactivate", ErrInvalidDecision)
	}
	if err != nil {
		return account.Account{}, err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return account.Account{}, fmt.Errorf("save account: %w", err)
	}

	now := nowOr(deps.Now)
	recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.auditActor(), audit.CategoryAccount, audit.ActionUpdate, now).
		WithSeverity(audit.SeverityWarning).
		WithResource("account", acct.ID).
		WithDescription(fmt.Sprintf("account %s: %s", acct.Email, input.Action)))
	slog.Info("account_event", "event", "account_status_changed", "account_id", acct.ID, "status", acct.Status, "admin_id", input.Actor.ID)
	return acct, nil
}

// ChangeRoleInput carries an admin role change.
type ChangeRoleInput struct {
	AccountID string
	Role      string
	Actor     Actor
}

// ExecuteChangeRole assigns a new role. Accounts becoming referees get a profile
// if they have none.
// PRE: Actor is admin and not the target account; Role is valid
// POST: Account role updated; change audited
func ExecuteChangeRole(ctx context.Context, input ChangeRoleInput, deps AccountAdminDeps) (account.Account, error) {
	if !input.Actor.IsAdmin() {
		return account.Account{}, ErrForbidden
	}
	if input.AccountID == input.Actor.ID {
		return account.Account{}, ErrSelfStatusChange
	}
	if !account.IsValidRole(input.Role) {
		return account.Account{}, account.ErrInvalidRole
	}
	acct, err := deps.AccountStore.GetByID(ctx, input.AccountID)
	if err != nil {
		return account.Account{}, err
	}
	previous := acct.Role
	if previous == input.Role {
		return acct, nil
	}
	acct.Role = input.Role
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return account.Account{}, fmt.Errorf("save account: %w", err)
	}

	now := nowOr(deps.Now)
	if acct.Role == account.RoleReferee {
		if _, err := deps.RefereeStore.GetByAccountID(ctx, acct.ID); err != nil {
			p := referee.Profile{AccountID: acct.ID, FullName: acct.FullName, Active: true, UpdatedAt: now}
			if err := deps.RefereeStore.Save(ctx, p); err != nil {
				return account.Account{}, fmt.Errorf("save referee profile: %w", err)
			}
		}
	}

	recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.auditActor(), audit.CategoryAccount, audit.ActionUpdate, now).
		WithSeverity(audit.SeverityWarning).
		WithResource("account", acct.ID).
		WithDescription(fmt.Sprintf("role of %s changed from %s to %s", acct.Email, previous, acct.Role)))
	slog.Info("account_event", "event", "account_role_changed", "account_id", acct.ID, "from", previous, "to", acct.Role)
	return acct, nil
}
