package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"refdesk/internal/domain/account"
	"refdesk/internal/domain/audit"
	"refdesk/internal/domain/referee"
)

// UpdateRefereeProfileInput carries profile changes. Nil fields keep their
// stored value. License fields and the active flag are applied only when the
// actor is an admin.
type UpdateRefereeProfileInput struct {
	AccountID     string
	FullName      *string
	Phone         *string
	Region        *string
	LicenseLevel  *string
	LicenseNumber *string
	Active        *bool
	Actor         Actor
}

// UpdateRefereeProfileDeps holds dependencies for UpdateRefereeProfile.
type UpdateRefereeProfileDeps struct {
	AccountStore AccountStoreForAdmin
	RefereeStore RefereeProfileStore
	Audit        AuditWriter
	Now          func() time.Time
}

// ExecuteUpdateRefereeProfile updates a referee's own profile, or any profile for admins.
// PRE: Actor is the referee or an admin
// POST: Account name/phone and profile fields persisted; admin edits audited
func ExecuteUpdateRefereeProfile(ctx context.Context, input UpdateRefereeProfileInput, deps UpdateRefereeProfileDeps) (referee.Profile, error) {
	if input.Actor.ID != input.AccountID && !input.Actor.IsAdmin() {
		return referee.Profile{}, ErrForbidden
	}
	acct, err := deps.AccountStore.GetByID(ctx, input.AccountID)
	if err != nil {
		return referee.Profile{}, err
	}
	if acct.Role != account.RoleReferee {
		return referee.Profile{}, fmt.Errorf("referee profile not found for %s: %w", input.AccountID, errNotReferee)
	}
	profile, err := deps.RefereeStore.GetByAccountID(ctx, input.AccountID)
	if err != nil {
		return referee.Profile{}, err
	}

	now := nowOr(deps.Now)
	if input.FullName != nil {
		if name := strings.TrimSpace(*input.FullName); name != "" {
			acct.FullName = name
		}
	}
	if input.Phone != nil {
		acct.Phone = strings.TrimSpace(*input.Phone)
	}
	profile.FullName = acct.FullName
	profile.Phone = acct.Phone
	if input.Region != nil {
		profile.Region = strings.TrimSpace(*input.Region)
	}
	if input.Actor.IsAdmin() {
		if input.LicenseLevel != nil {
			profile.LicenseLevel = *input.LicenseLevel
		}
		if input.LicenseNumber != nil {
			profile.LicenseNumber = strings.TrimSpace(*input.LicenseNumber)
		}
		if input.Active != nil {
			profile.Active = *input.Active
		}
	}
	profile.UpdatedAt = now

	if err := acct.Validate(); err != nil {
		return referee.Profile{}, err
	}
	if err := profile.Validate(); err != nil {
		return referee.Profile{}, err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return referee.Profile{}, fmt.Errorf("save account: %w", err)
	}
	if err := deps.RefereeStore.Save(ctx, profile); err != nil {
		return referee.Profile{}, fmt.Errorf("save referee profile: %w", err)
	}

	if input.Actor.IsAdmin() && input.Actor.ID != input.AccountID {
		recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.auditActor(), audit.CategoryReferee, audit.ActionUpdate, now).
			WithResource("referee", profile.AccountID).
			WithDescription(fmt.Sprintf("profile updated: license=%s active=%t", profile.LicenseLevel, profile.Active)))
	}
	slog.Info("referee_event", "event", "profile_updated", "account_id", profile.AccountID, "actor_id", input.Actor.ID)
	return profile, nil
}
