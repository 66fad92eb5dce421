package outbox_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"refdesk/internal/adapters/storage/outbox"
	"refdesk/internal/adapters/storage/storagetest"
	domain "refdesk/internal/domain/outbox"
)

// TestSQLiteStore_DueAndFailed tests scheduling queries.
func TestSQLiteStore_DueAndFailed(t *testing.T) {
	store := outbox.NewSQLiteStore(storagetest.Open(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []domain.Entry{
		{ID: "due", ActionType: domain.ActionTypeEmail, Payload: "{}", Status: domain.StatusPending, MaxAttempts: 5, CreatedAt: now.Add(-time.Hour)},
		{ID: "later", ActionType: domain.ActionTypeEmail, Payload: "{}", Status: domain.StatusRetrying, Attempts: 1, MaxAttempts: 5,
			NextAttemptAt: now.Add(time.Minute), CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "dead", ActionType: domain.ActionTypeEmail, Payload: "{}", Status: domain.StatusFailed, Attempts: 5, MaxAttempts: 5,
			LastAttemptedAt: now.Add(-time.Minute), ErrorMessage: "bounced", CreatedAt: now.Add(-3 * time.Hour)},
	}
	for _, e := range entries {
		if err := store.Save(ctx, e); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	due, err := store.ListDue(ctx, now, 10)
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(due) != 1 || due[0].ID != "due" {
		t.Errorf("ListDue = %+v", due)
	}
	due, _ = store.ListDue(ctx, now.Add(2*time.Minute), 10)
	if len(due) != 2 || due[0].ID != "later" {
		t.Errorf("expected oldest first after backoff: %+v", due)
	}

	failed, err := store.ListFailed(ctx, 10)
	if err != nil || len(failed) != 1 || failed[0].ErrorMessage != "bounced" {
		t.Errorf("ListFailed = %+v, %v", failed, err)
	}

	n, err := store.CountUndelivered(ctx)
	if err != nil || n != 2 {
		t.Errorf("CountUndelivered = %d, %v", n, err)
	}

	got, err := store.GetByID(ctx, "later")
	if err != nil || !got.NextAttemptAt.Equal(now.Add(time.Minute)) {
		t.Errorf("GetByID = %+v, %v", got, err)
	}
	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}
