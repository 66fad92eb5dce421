package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"refdesk/internal/adapters/email"
	"refdesk/internal/adapters/metrics"
	"refdesk/internal/domain/audit"
	domain "refdesk/internal/domain/outbox"
)

// OutboxStoreForProcessor defines the outbox store interface needed by the processor.
type OutboxStoreForProcessor interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Save(ctx context.Context, e domain.Entry) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Entry, error)
	CountUndelivered(ctx context.Context) (int, error)
}

// ActionExecutor executes a specific type of external action.
type ActionExecutor interface {
	// Execute runs the external action with the given payload.
	// Returns the provider's ID for the delivered action and any error.
	Execute(ctx context.Context, payload string) (string, error)
}

// OutboxProcessor delivers queued outbox entries with exponential backoff.
type OutboxProcessor struct {
	store     OutboxStoreForProcessor
	executors map[string]ActionExecutor
	audit     AuditWriter
	metrics   *metrics.Metrics
	now       func() time.Time
	batchSize int
}

// OutboxOption configures an OutboxProcessor.
type OutboxOption func(*OutboxProcessor)

// WithOutboxClock overrides the processor's clock.
func WithOutboxClock(now func() time.Time) OutboxOption {
	return func(p *OutboxProcessor) { p.now = now }
}

// WithOutboxBatchSize sets how many entries one pass delivers.
func WithOutboxBatchSize(n int) OutboxOption {
	return func(p *OutboxProcessor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithOutboxAudit records admin retries and abandons.
func WithOutboxAudit(w AuditWriter) OutboxOption {
	return func(p *OutboxProcessor) { p.audit = w }
}

// NewOutboxProcessor creates a new outbox processor.
func NewOutboxProcessor(store OutboxStoreForProcessor, executors map[string]ActionExecutor, m *metrics.Metrics, opts ...OutboxOption) *OutboxProcessor {
	p := &OutboxProcessor{
		store:     store,
		executors: executors,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
		batchSize: 20,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessDue delivers every entry whose next attempt is due.
// PRE: Context is valid
// POST: Due entries are attempted once; failures are rescheduled or marked failed
func (p *OutboxProcessor) ProcessDue(ctx context.Context) (int, error) {
	now := p.now()
	entries, err := p.store.ListDue(ctx, now, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list due outbox entries: %w", err)
	}

	delivered := 0
	for _, entry := range entries {
		if !entry.IsDue(now) {
			continue
		}
		ok, err := p.attempt(ctx, &entry)
		if err != nil {
			slog.Error("outbox_event", "event", "outbox_save_failed", "entry_id", entry.ID, "error", err)
			continue
		}
		if ok {
			delivered++
		}
	}

	if n, err := p.store.CountUndelivered(ctx); err == nil {
		p.metrics.SetOutboxBacklog(n)
	}
	return delivered, nil
}

// attempt runs one delivery attempt and persists the outcome.
func (p *OutboxProcessor) attempt(ctx context.Context, entry *domain.Entry) (bool, error) {
	entry.MarkAttempt(p.now())

	executor, ok := p.executors[entry.ActionType]
	var (
		externalID string
		err        error
	)
	if !ok {
		err = fmt.Errorf("no executor registered for action type: %s", entry.ActionType)
	} else {
		externalID, err = executor.Execute(ctx, entry.Payload)
	}

	if err != nil {
		entry.MarkFailed(err)
		p.metrics.ObserveDelivery(false)
		slog.Warn("outbox_event", "event", "outbox_attempt_failed",
			"entry_id", entry.ID, "attempt", entry.Attempts, "status", entry.Status, "error", err.Error())
	} else {
		entry.MarkSuccess(externalID)
		p.metrics.ObserveDelivery(true)
		slog.Info("outbox_event", "event", "outbox_delivered",
			"entry_id", entry.ID, "action_type", entry.ActionType, "external_id", externalID, "attempt", entry.Attempts)
	}
	return err == nil, p.store.Save(ctx, *entry)
}

// Retry requeues a failed entry and attempts it immediately.
// PRE: entry status is failed
// POST: attempts reset; entry delivered or rescheduled; retry audited
func (p *OutboxProcessor) Retry(ctx context.Context, entryID string, actor Actor) (domain.Entry, error) {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return domain.Entry{}, err
	}
	now := p.now()
	if err := entry.ResetForRetry(now); err != nil {
		return domain.Entry{}, err
	}
	if _, err := p.attempt(ctx, &entry); err != nil {
		return domain.Entry{}, fmt.Errorf("save outbox entry: %w", err)
	}
	recordAudit(ctx, p.audit, audit.NewEvent(actor.auditActor(), audit.CategorySystem, audit.ActionUpdate, now).
		WithResource("outbox", entry.ID).
		WithDescription("retried outbox entry, now "+entry.Status))
	return entry, nil
}

// Abandon marks an entry as abandoned so it is never attempted again.
// PRE: entry is not done or already abandoned
// POST: Entry status set to abandoned; abandon audited
func (p *OutboxProcessor) Abandon(ctx context.Context, entryID string, actor Actor) (domain.Entry, error) {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return domain.Entry{}, err
	}
	if err := entry.MarkAbandoned(); err != nil {
		return domain.Entry{}, err
	}
	if err := p.store.Save(ctx, entry); err != nil {
		return domain.Entry{}, fmt.Errorf("save outbox entry: %w", err)
	}
	recordAudit(ctx, p.audit, audit.NewEvent(actor.auditActor(), audit.CategorySystem, audit.ActionCancel, p.now()).
		WithSeverity(audit.SeverityWarning).
		WithResource("outbox", entry.ID).
		WithDescription("abandoned outbox entry"))
	slog.Info("outbox_event", "event", "outbox_abandoned", "entry_id", entry.ID, "admin_id", actor.ID)
	return entry, nil
}

// Run processes due entries every interval until ctx is cancelled.
// PRE: interval > 0
// POST: Returns once ctx is done
func (p *OutboxProcessor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("outbox_event", "event", "outbox_worker_stopped")
			return
		case <-ticker.C:
			passCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			if _, err := p.ProcessDue(passCtx); err != nil {
				slog.Error("outbox_event", "event", "outbox_pass_failed", "error", err)
			}
			cancel()
		}
	}
}

// EmailExecutor sends outbox email payloads through a Sender.
type EmailExecutor struct {
	Sender email.Sender
}

// Execute sends an email from the payload.
// PRE: payload is the JSON encoding of email.SendRequest
// POST: email handed to the provider, returns its message ID
// INVARIANT: outbox entry status managed by caller
func (e *EmailExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var req email.SendRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", fmt.Errorf("unmarshal email payload: %w", err)
	}
	res, err := e.Sender.Send(ctx, req)
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}
