package account_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"refdesk/internal/adapters/storage/account"
	"refdesk/internal/adapters/storage/storagetest"
	domain "refdesk/internal/domain/account"
)

func newAccount(id, email, role, status string, created time.Time) domain.Account {
	return domain.Account{
		ID:        id,
		Email:     email,
		Role:      role,
		Status:    status,
		FullName:  "Wasit " + id,
		CreatedAt: created,
	}
}

// TestSQLiteStore_SaveAndGet tests round-tripping an account.
func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := account.NewSQLiteStore(storagetest.Open(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	a := newAccount("a1", "Wasit@Fed.or.id", domain.RoleReferee, domain.StatusPendingApproval, now)
	a.LockedUntil = now.Add(time.Minute)
	a.PasswordChangeRequired = true
	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.GetByEmail(ctx, "  wasit@FED.or.id")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.Email != "wasit@fed.or.id" || !got.CreatedAt.Equal(now) || !got.LockedUntil.Equal(a.LockedUntil) || !got.PasswordChangeRequired {
		t.Errorf("unexpected account: %+v", got)
	}

	_ = got.Approve("admin", now)
	if err := store.Save(ctx, got); err != nil {
		t.Fatalf("Save update: %v", err)
	}
	got, err = store.GetByID(ctx, "a1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.StatusActive || got.DecidedBy != "admin" {
		t.Errorf("update not persisted: %+v", got)
	}
}

// TestSQLiteStore_NotFound tests that missing rows wrap sql.ErrNoRows.
func TestSQLiteStore_NotFound(t *testing.T) {
	store := account.NewSQLiteStore(storagetest.Open(t))
	if _, err := store.GetByID(context.Background(), "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

// TestSQLiteStore_ListAndCount tests filtering, search and status counts.
func TestSQLiteStore_ListAndCount(t *testing.T) {
	store := account.NewSQLiteStore(storagetest.Open(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	seed := []domain.Account{
		newAccount("r1", "r1@x.id", domain.RoleReferee, domain.StatusActive, base),
		newAccount("r2", "r2@x.id", domain.RoleReferee, domain.StatusPendingApproval, base.Add(time.Hour)),
		newAccount("o1", "o1@x.id", domain.RoleOrganizer, domain.StatusPendingApproval, base.Add(2*time.Hour)),
	}
	for _, a := range seed {
		if err := store.Save(ctx, a); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	pending, err := store.List(ctx, account.ListFilter{Status: domain.StatusPendingApproval})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "o1" {
		t.Errorf("expected newest pending first, got %+v", pending)
	}

	refs, _ := store.List(ctx, account.ListFilter{Role: domain.RoleReferee, Search: "r2"})
	if len(refs) != 1 || refs[0].ID != "r2" {
		t.Errorf("search mismatch: %+v", refs)
	}

	page, _ := store.List(ctx, account.ListFilter{Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].ID != "r2" {
		t.Errorf("pagination mismatch: %+v", page)
	}

	n, err := store.Count(ctx, account.ListFilter{Role: domain.RoleReferee})
	if err != nil || n != 2 {
		t.Errorf("Count = %d, %v", n, err)
	}

	byStatus, err := store.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if byStatus[domain.StatusPendingApproval] != 2 || byStatus[domain.StatusActive] != 1 {
		t.Errorf("CountByStatus = %v", byStatus)
	}
}
