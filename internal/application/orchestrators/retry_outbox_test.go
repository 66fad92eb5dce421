package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"refdesk/internal/adapters/email"
	"refdesk/internal/adapters/metrics"
	outboxstore "refdesk/internal/adapters/storage/outbox"
	"refdesk/internal/adapters/storage/storagetest"
	"refdesk/internal/domain/audit"
	"refdesk/internal/domain/outbox"
)

// flakyExecutor fails while fail is set.
type flakyExecutor struct {
	fail  bool
	calls int
}

func (e *flakyExecutor) Execute(_ context.Context, _ string) (string, error) {
	e.calls++
	if e.fail {
		return "", errors.New("provider unavailable")
	}
	return "msg-ok", nil
}

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newOutboxStore(t *testing.T) *outboxstore.SQLiteStore {
	t.Helper()
	return outboxstore.NewSQLiteStore(storagetest.Open(t))
}

func queueEmail(t *testing.T, store *outboxstore.SQLiteStore, id, actionType string) {
	t.Helper()
	payload, _ := json.Marshal(email.SendRequest{To: []string{"r1@fed.or.id"}, Subject: "Penugasan", HTML: "<p>hi</p>"})
	e := outbox.Entry{
		ID:          id,
		ActionType:  actionType,
		Payload:     string(payload),
		Status:      outbox.StatusPending,
		MaxAttempts: outbox.DefaultMaxAttempts,
		CreatedAt:   fixedTime,
	}
	if err := store.Save(context.Background(), e); err != nil {
		t.Fatalf("queue entry: %v", err)
	}
}

// TestOutboxProcessor_Delivers tests delivery through the email executor.
func TestOutboxProcessor_Delivers(t *testing.T) {
	store := newOutboxStore(t)
	queueEmail(t, store, "ob-1", outbox.ActionTypeEmail)
	sender := email.NewNoopSender()
	p := NewOutboxProcessor(store, map[string]ActionExecutor{
		outbox.ActionTypeEmail: &EmailExecutor{Sender: sender},
	}, metrics.New(), WithOutboxClock(fixedNow))

	n, err := p.ProcessDue(context.Background())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if n != 1 {
		t.Fatalf("delivered = %d, want 1", n)
	}
	e, _ := store.GetByID(context.Background(), "ob-1")
	if e.Status != outbox.StatusDone || e.ExternalID != "noop-1" || e.Attempts != 1 {
		t.Errorf("unexpected entry: %+v", e)
	}
	if sent := sender.Sent(); len(sent) != 1 || sent[0].Subject != "Penugasan" {
		t.Errorf("unexpected sent mail: %+v", sent)
	}

	if n, _ := p.ProcessDue(context.Background()); n != 0 {
		t.Errorf("delivered entries must not be resent, got %d", n)
	}
}

// TestOutboxProcessor_Backoff tests rescheduling and the attempt cap.
func TestOutboxProcessor_Backoff(t *testing.T) {
	store := newOutboxStore(t)
	queueEmail(t, store, "ob-1", outbox.ActionTypeEmail)
	exec := &flakyExecutor{fail: true}
	clock := &testClock{t: fixedTime}
	p := NewOutboxProcessor(store, map[string]ActionExecutor{outbox.ActionTypeEmail: exec}, nil, WithOutboxClock(clock.now))

	if _, err := p.ProcessDue(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}
	e, _ := store.GetByID(context.Background(), "ob-1")
	if e.Status != outbox.StatusRetrying || e.Attempts != 1 {
		t.Fatalf("unexpected entry after first failure: %+v", e)
	}
	if want := fixedTime.Add(outbox.BaseDelay); !e.NextAttemptAt.Equal(want) {
		t.Errorf("next attempt = %v, want %v", e.NextAttemptAt, want)
	}

	clock.advance(10 * time.Second)
	_, _ = p.ProcessDue(context.Background())
	if exec.calls != 1 {
		t.Errorf("entry attempted before it was due: %d calls", exec.calls)
	}

	for i := 0; i < outbox.DefaultMaxAttempts; i++ {
		clock.advance(outbox.MaxDelay)
		_, _ = p.ProcessDue(context.Background())
	}
	e, _ = store.GetByID(context.Background(), "ob-1")
	if e.Status != outbox.StatusFailed || e.Attempts != outbox.DefaultMaxAttempts {
		t.Errorf("expected failed after %d attempts, got %+v", outbox.DefaultMaxAttempts, e)
	}
	if exec.calls != outbox.DefaultMaxAttempts {
		t.Errorf("calls = %d, want %d", exec.calls, outbox.DefaultMaxAttempts)
	}
	if e.ErrorMessage != "provider unavailable" {
		t.Errorf("unexpected error message %q", e.ErrorMessage)
	}
}

// TestOutboxProcessor_UnknownAction tests entries with no executor.
func TestOutboxProcessor_UnknownAction(t *testing.T) {
	store := newOutboxStore(t)
	queueEmail(t, store, "ob-1", "sms")
	p := NewOutboxProcessor(store, map[string]ActionExecutor{}, nil, WithOutboxClock(fixedNow))

	if n, _ := p.ProcessDue(context.Background()); n != 0 {
		t.Errorf("delivered = %d, want 0", n)
	}
	e, _ := store.GetByID(context.Background(), "ob-1")
	if e.Attempts != 1 || e.ErrorMessage == "" {
		t.Errorf("expected a recorded failure, got %+v", e)
	}
}

// TestOutboxProcessor_RetryAndAbandon tests the admin recovery actions.
func TestOutboxProcessor_RetryAndAbandon(t *testing.T) {
	store := newOutboxStore(t)
	queueEmail(t, store, "ob-1", outbox.ActionTypeEmail)
	queueEmail(t, store, "ob-2", outbox.ActionTypeEmail)
	exec := &flakyExecutor{fail: true}
	rec := &recordingAudit{}
	p := NewOutboxProcessor(store, map[string]ActionExecutor{outbox.ActionTypeEmail: exec}, nil,
		WithOutboxClock(fixedNow), WithOutboxAudit(rec))

	if _, err := p.Retry(context.Background(), "ob-1", adminActor); !errors.Is(err, outbox.ErrInvalidStatus) {
		t.Errorf("retrying a pending entry: expected ErrInvalidStatus, got %v", err)
	}

	failed, _ := store.GetByID(context.Background(), "ob-1")
	failed.Status = outbox.StatusFailed
	failed.Attempts = outbox.DefaultMaxAttempts
	if err := store.Save(context.Background(), failed); err != nil {
		t.Fatalf("save: %v", err)
	}

	exec.fail = false
	e, err := p.Retry(context.Background(), "ob-1", adminActor)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if e.Status != outbox.StatusDone || e.Attempts != 1 || e.ExternalID != "msg-ok" {
		t.Errorf("unexpected entry after retry: %+v", e)
	}

	abandoned, err := p.Abandon(context.Background(), "ob-2", adminActor)
	if err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if abandoned.Status != outbox.StatusAbandoned {
		t.Errorf("unexpected status %q", abandoned.Status)
	}
	if _, err := p.Abandon(context.Background(), "ob-1", adminActor); !errors.Is(err, outbox.ErrInvalidStatus) {
		t.Errorf("abandoning a delivered entry: expected ErrInvalidStatus, got %v", err)
	}
	if n, _ := p.ProcessDue(context.Background()); n != 0 {
		t.Errorf("abandoned entries must not be attempted, delivered %d", n)
	}

	want := []audit.Action{audit.ActionUpdate, audit.ActionCancel}
	got := rec.actions()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("audit actions = %v, want %v", got, want)
	}
}
