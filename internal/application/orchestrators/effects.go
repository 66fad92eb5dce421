package orchestrators

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"refdesk/internal/adapters/email"
	"refdesk/internal/adapters/storage/account"
	domainAccount "refdesk/internal/domain/account"
	"refdesk/internal/domain/audit"
	"refdesk/internal/domain/outbox"
)

// Actor is the signed-in account performing an operation.
type Actor struct {
	ID    string
	Email string
	Role  string
	IP    string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == domainAccount.RoleAdmin }

func (a Actor) auditActor() audit.Actor {
	return audit.Actor{ID: a.ID, Email: a.Email, Role: a.Role, IP: a.IP}
}

// OutboxWriter queues outbound side effects.
type OutboxWriter interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// AuditWriter persists audit events.
type AuditWriter interface {
	Save(ctx context.Context, e audit.Event) error
}

// AdminDirectory lists accounts; used to address admin notifications.
type AdminDirectory interface {
	List(ctx context.Context, filter account.ListFilter) ([]domainAccount.Account, error)
}

func nowOr(now func() time.Time) time.Time {
	if now == nil {
		return time.Now().UTC()
	}
	return now()
}

func idOr(gen func() string) string {
	if gen == nil {
		return uuid.NewString()
	}
	return gen()
}

// enqueueEmail renders a notification and writes one outbox entry per
// distinct recipient, so no recipient sees another's address.
// Delivery problems never fail the triggering request; they are logged and
// left to the outbox worker or an admin retry.
func enqueueEmail(ctx context.Context, w OutboxWriter, to []string, template string, data email.Data, now time.Time) {
	if w == nil || len(to) == 0 {
		return
	}
	subject, html, err := email.Render(template, data)
	if err != nil {
		slog.Error("outbox_event", "event", "email_render_failed", "template", template, "error", err)
		return
	}
	seen := make(map[string]bool, len(to))
	for _, addr := range to {
		key := strings.ToLower(strings.TrimSpace(addr))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		payload, err := json.Marshal(email.SendRequest{To: []string{addr}, Subject: subject, HTML: html})
		if err != nil {
			slog.Error("outbox_event", "event", "email_encode_failed", "template", template, "error", err)
			return
		}
		entry := outbox.Entry{
			ID:          uuid.NewString(),
			ActionType:  outbox.ActionTypeEmail,
			Payload:     string(payload),
			Status:      outbox.StatusPending,
			MaxAttempts: outbox.DefaultMaxAttempts,
			CreatedAt:   now,
		}
		if err := w.Save(ctx, entry); err != nil {
			slog.Error("outbox_event", "event", "email_enqueue_failed", "template", template, "error", err)
			continue
		}
		slog.Info("outbox_event", "event", "email_queued", "entry_id", entry.ID, "template", template)
	}
}

// recordAudit persists an audit event, logging instead of failing on error.
func recordAudit(ctx context.Context, w AuditWriter, e audit.Event) {
	if w == nil {
		return
	}
	if err := w.Save(ctx, e); err != nil {
		slog.Error("audit_event", "event", "audit_save_failed", "action", e.Action, "resource_id", e.ResourceID, "error", err)
	}
}

// adminEmails returns the addresses of every active admin.
func adminEmails(ctx context.Context, dir AdminDirectory) []string {
	if dir == nil {
		return nil
	}
	admins, err := dir.List(ctx, account.ListFilter{Role: domainAccount.RoleAdmin, Status: domainAccount.StatusActive})
	if err != nil {
		slog.Error("outbox_event", "event", "admin_lookup_failed", "error", err)
		return nil
	}
	out := make([]string, 0, len(admins))
	for _, a := range admins {
		out = append(out, a.Email)
	}
	return out
}

func decisionWord(approve bool) string {
	if approve {
		return "approved"
	}
	return "rejected"
}
