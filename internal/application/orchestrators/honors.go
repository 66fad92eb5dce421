package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"refdesk/internal/adapters/blob"
	"refdesk/internal/adapters/email"
	"refdesk/internal/adapters/metrics"
	honorstore "refdesk/internal/adapters/storage/honor"
	"refdesk/internal/domain/account"
	"refdesk/internal/domain/audit"
	"refdesk/internal/domain/honor"
)

// ReceiptContentTypes are the accepted receipt upload types.
var ReceiptContentTypes = []string{"application/pdf", "image/jpeg", "image/png"}

// HonorStoreForWorkflow defines the honor store interface needed by honor workflows.
type HonorStoreForWorkflow interface {
	GetByID(ctx context.Context, id string) (honorstore.Detail, error)
	GetByEventAndReferee(ctx context.Context, eventID, refereeID string) (honor.Honor, error)
	Save(ctx context.Context, h honor.Honor) error
}

// DutyChecker reports confirmed assignments.
type DutyChecker interface {
	HasConfirmed(ctx context.Context, eventID, refereeID string) (bool, error)
}

// HonorDeps holds dependencies for honor workflows.
type HonorDeps struct {
	HonorStore      HonorStoreForWorkflow
	AssignmentStore DutyChecker
	EventStore      EventLookup
	AccountStore    AccountLookup
	Blobs           blob.Store
	Outbox          OutboxWriter
	Audit           AuditWriter
	Metrics         *metrics.Metrics
	MaxAmount       int64
	MaxUploadBytes  int64
	GenerateID      func() string
	Now             func() time.Time
}

// Receipt is an uploaded receipt file.
type Receipt struct {
	Filename    string
	ContentType string
	Size        int64 // declared size; -1 when unknown
	Body        io.Reader
}

// SubmitHonorInput carries a referee's honor claim.
type SubmitHonorInput struct {
	EventID string
	Amount  int64
	Note    string
	Receipt *Receipt
	Actor   Actor
}

// ExecuteSubmitHonor files an honor claim, or resubmits a rejected one.
// PRE: Actor is a referee with a confirmed assignment on the event
// POST: Honor submitted; receipt stored under honors/<id>/<file> when given
// INVARIANT: At most one honor per (event, referee); Amount in (0, MaxAmount]
func ExecuteSubmitHonor(ctx context.Context, input SubmitHonorInput, deps HonorDeps) (honor.Honor, error) {
	if input.Actor.Role != account.RoleReferee {
		return honor.Honor{}, ErrForbidden
	}
	e, err := deps.EventStore.GetByID(ctx, input.EventID)
	if err != nil {
		return honor.Honor{}, err
	}
	ok, err := deps.AssignmentStore.HasConfirmed(ctx, e.ID, input.Actor.ID)
	if err != nil {
		return honor.Honor{}, fmt.Errorf("check assignment: %w", err)
	}
	if !ok {
		return honor.Honor{}, honor.ErrNoConfirmedDuty
	}

	now := nowOr(deps.Now)
	note := strings.TrimSpace(input.Note)
	h, err := deps.HonorStore.GetByEventAndReferee(ctx, e.ID, input.Actor.ID)
	resubmit := err == nil
	switch {
	case resubmit:
		if err := h.Resubmit(input.Amount, note, now); err != nil {
			return honor.Honor{}, err
		}
	case errors.Is(err, sql.ErrNoRows):
		h = honor.Honor{
			ID:          idOr(deps.GenerateID),
			EventID:     e.ID,
			RefereeID:   input.Actor.ID,
			Amount:      input.Amount,
			Note:        note,
			Status:      honor.StatusSubmitted,
			SubmittedAt: now,
		}
	default:
		return honor.Honor{}, fmt.Errorf("lookup honor: %w", err)
	}
	if err := h.Validate(deps.MaxAmount); err != nil {
		return honor.Honor{}, err
	}

	if input.Receipt != nil {
		key, err := storeReceipt(ctx, deps, h.ID, *input.Receipt)
		if err != nil {
			return honor.Honor{}, err
		}
		if h.ReceiptKey != "" && h.ReceiptKey != key {
			if err := deps.Blobs.Delete(ctx, h.ReceiptKey); err != nil {
				slog.Warn("honor_event", "event", "old_receipt_delete_failed", "honor_id", h.ID, "key", h.ReceiptKey, "error", err)
			}
		}
		h.ReceiptKey = key
	}

	if err := deps.HonorStore.Save(ctx, h); err != nil {
		return honor.Honor{}, fmt.Errorf("save honor: %w", err)
	}
	deps.Metrics.Inc(metrics.HonorSubmitted)
	slog.Info("honor_event", "event", "honor_submitted", "honor_id", h.ID, "event_id", e.ID,
		"referee_id", h.RefereeID, "amount", h.Amount, "resubmitted", resubmit, "receipt", h.ReceiptKey != "")
	return h, nil
}

// storeReceipt validates and uploads a receipt, returning its blob key.
func storeReceipt(ctx context.Context, deps HonorDeps, honorID string, r Receipt) (string, error) {
	if deps.Blobs == nil {
		return "", errors.New("receipt storage is not configured")
	}
	ct := strings.ToLower(strings.TrimSpace(strings.Split(r.ContentType, ";")[0]))
	if !containsString(ReceiptContentTypes, ct) {
		return "", ErrReceiptType
	}
	limit := deps.MaxUploadBytes
	if limit > 0 && r.Size > limit {
		return "", ErrReceiptTooLarge
	}
	body := r.Body
	if limit > 0 {
		body = io.LimitReader(r.Body, limit+1)
	}

	key := honor.ReceiptKeyFor(honorID, blob.SafeFileName(r.Filename))
	info, err := deps.Blobs.Put(ctx, key, body, ct)
	if err != nil {
		return "", fmt.Errorf("store receipt: %w", err)
	}
	if limit > 0 && info.Size > limit {
		if err := deps.Blobs.Delete(ctx, key); err != nil {
			slog.Warn("honor_event", "event", "oversize_receipt_delete_failed", "key", key, "error", err)
		}
		return "", ErrReceiptTooLarge
	}
	return key, nil
}

// DecideHonorInput carries an admin's verification decision.
type DecideHonorInput struct {
	HonorID  string
	Decision string // honor.DecisionVerify or honor.DecisionReject
	Reason   string
	Actor    Actor
}

// ExecuteDecideHonor verifies or rejects a submitted honor.
// PRE: Actor is admin; honor submitted; rejection carries a reason
// POST: Honor verified or rejected; referee emailed; decision audited
func ExecuteDecideHonor(ctx context.Context, input DecideHonorInput, deps HonorDeps) (honor.Honor, error) {
	if !input.Actor.IsAdmin() {
		return honor.Honor{}, ErrForbidden
	}
	d, err := deps.HonorStore.GetByID(ctx, input.HonorID)
	if err != nil {
		return honor.Honor{}, err
	}
	h := d.Honor
	now := nowOr(deps.Now)

	var action audit.Action
	switch input.Decision {
	case honor.DecisionVerify:
		err = h.Verify(input.Actor.ID, now)
		action = audit.ActionApprove
	case honor.DecisionReject:
		err = h.Reject(input.Actor.ID, input.Reason, now)
		action = audit.ActionReject
	default:
		return honor.Honor{}, honor.ErrInvalidDecision
	}
	if err != nil {
		return honor.Honor{}, err
	}
	if err := deps.HonorStore.Save(ctx, h); err != nil {
		return honor.Honor{}, fmt.Errorf("save honor: %w", err)
	}

	deps.Metrics.Inc(metrics.HonorDecided)
	recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.auditActor(), audit.CategoryHonor, action, now).
		WithResource("honor", h.ID).
		WithDescription(fmt.Sprintf("%s honor of %s for %s on %q", h.Status, honor.FormatRupiah(h.Amount), d.RefereeName, d.EventTitle)))
	notifyReferee(ctx, deps, h.RefereeID, email.TemplateHonorDecided, email.Data{
		Name:     d.RefereeName,
		Title:    d.EventTitle,
		Amount:   honor.FormatRupiah(h.Amount),
		Decision: h.Status,
		Note:     h.RejectionReason,
	}, now)

	slog.Info("honor_event", "event", "honor_"+h.Status, "honor_id", h.ID, "admin_id", input.Actor.ID)
	return h, nil
}

// MarkHonorPaidInput identifies a verified honor to mark paid.
type MarkHonorPaidInput struct {
	HonorID string
	Actor   Actor
}

// ExecuteMarkHonorPaid records payment of a verified honor.
// PRE: Actor is admin; honor verified
// POST: Honor paid; referee emailed; payment audited
func ExecuteMarkHonorPaid(ctx context.Context, input MarkHonorPaidInput, deps HonorDeps) (honor.Honor, error) {
	if !input.Actor.IsAdmin() {
		return honor.Honor{}, ErrForbidden
	}
	d, err := deps.HonorStore.GetByID(ctx, input.HonorID)
	if err != nil {
		return honor.Honor{}, err
	}
	h := d.Honor
	now := nowOr(deps.Now)
	if err := h.MarkPaid(now); err != nil {
		return honor.Honor{}, err
	}
	if err := deps.HonorStore.Save(ctx, h); err != nil {
		return honor.Honor{}, fmt.Errorf("save honor: %w", err)
	}

	deps.Metrics.Inc(metrics.HonorPaid)
	recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.auditActor(), audit.CategoryHonor, audit.ActionUpdate, now).
		WithResource("honor", h.ID).
		WithDescription(fmt.Sprintf("paid %s to %s for %q", honor.FormatRupiah(h.Amount), d.RefereeName, d.EventTitle)))
	notifyReferee(ctx, deps, h.RefereeID, email.TemplateHonorPaid, email.Data{
		Name:   d.RefereeName,
		Title:  d.EventTitle,
		Amount: honor.FormatRupiah(h.Amount),
	}, now)

	slog.Info("honor_event", "event", "honor_paid", "honor_id", h.ID, "admin_id", input.Actor.ID)
	return h, nil
}

func notifyReferee(ctx context.Context, deps HonorDeps, refereeID, template string, data email.Data, now time.Time) {
	if deps.AccountStore == nil {
		return
	}
	acct, err := deps.AccountStore.GetByID(ctx, refereeID)
	if err != nil {
		slog.Error("honor_event", "event", "referee_lookup_failed", "referee_id", refereeID, "error", err)
		return
	}
	enqueueEmail(ctx, deps.Outbox, []string{acct.Email}, template, data, now)
}

// OpenReceiptInput identifies the honor whose receipt is downloaded.
type OpenReceiptInput struct {
	HonorID string
	Actor   Actor
}

// ExecuteOpenReceipt opens an honor's receipt for download. The caller closes the reader.
// PRE: Actor owns the honor or is admin
// POST: Returns the receipt stream and its metadata; admin downloads are audited
func ExecuteOpenReceipt(ctx context.Context, input OpenReceiptInput, deps HonorDeps) (io.ReadCloser, blob.Info, error) {
	d, err := deps.HonorStore.GetByID(ctx, input.HonorID)
	if err != nil {
		return nil, blob.Info{}, err
	}
	if d.Honor.RefereeID != input.Actor.ID && !input.Actor.IsAdmin() {
		return nil, blob.Info{}, honor.ErrNotOwner
	}
	if d.Honor.ReceiptKey == "" {
		return nil, blob.Info{}, ErrNoReceipt
	}
	rc, info, err := deps.Blobs.Get(ctx, d.Honor.ReceiptKey)
	if err != nil {
		return nil, blob.Info{}, err
	}
	if input.Actor.IsAdmin() {
		recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.auditActor(), audit.CategoryHonor, audit.ActionDownload, nowOr(deps.Now)).
			WithResource("honor", d.Honor.ID))
	}
	return rc, info, nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
