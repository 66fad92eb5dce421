package event_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"refdesk/internal/adapters/storage/event"
	"refdesk/internal/adapters/storage/storagetest"
	domain "refdesk/internal/domain/event"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func newEvent(t *testing.T, id, status, start, end string) domain.Event {
	return domain.Event{
		ID:           id,
		Title:        "Turnamen " + id,
		Venue:        "GOR",
		City:         "Bandung",
		StartDate:    date(t, start),
		EndDate:      date(t, end),
		Level:        domain.LevelLocal,
		RefereeQuota: 2,
		Status:       status,
		SubmittedBy:  "org",
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func openStore(t *testing.T) *event.SQLiteStore {
	db := storagetest.Open(t)
	storagetest.Exec(t, db,
		`INSERT INTO account (id, email, role, status, full_name, created_at) VALUES
		 ('org', 'org@x.id', 'organizer', 'active', 'Org', '2026-01-01T00:00:00Z'),
		 ('org2', 'org2@x.id', 'organizer', 'active', 'Org Two', '2026-01-01T00:00:00Z')`)
	return event.NewSQLiteStore(db)
}

// TestSQLiteStore_SaveAndGet tests round-tripping an event with dates.
func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	e := newEvent(t, "e1", domain.StatusPending, "2026-06-01", "2026-06-03")
	if err := store.Save(ctx, e); err != nil {
		t.Fatalf("Save: %v", err)
	}
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	_ = e.Approve("admin", "ok", now)
	if err := store.Save(ctx, e); err != nil {
		t.Fatalf("Save update: %v", err)
	}

	got, err := store.GetByID(ctx, "e1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.StartDate.Equal(e.StartDate) || !got.EndDate.Equal(e.EndDate) {
		t.Errorf("dates = %v..%v", got.StartDate, got.EndDate)
	}
	if got.Status != domain.StatusApproved || got.DecisionNote != "ok" || !got.DecidedAt.Equal(now) {
		t.Errorf("decision not persisted: %+v", got)
	}

	if _, err := store.GetByID(ctx, "nope"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

// TestSQLiteStore_ListFilters tests status, owner and date-overlap filters.
func TestSQLiteStore_ListFilters(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	mine := newEvent(t, "e3", domain.StatusPending, "2026-07-01", "2026-07-01")
	mine.SubmittedBy = "org2"
	for _, e := range []domain.Event{
		newEvent(t, "e1", domain.StatusApproved, "2026-06-01", "2026-06-03"),
		newEvent(t, "e2", domain.StatusApproved, "2026-06-10", "2026-06-10"),
		mine,
	} {
		if err := store.Save(ctx, e); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	approved, err := store.List(ctx, event.ListFilter{Status: domain.StatusApproved})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(approved) != 2 || approved[0].ID != "e1" {
		t.Errorf("expected e1,e2 ordered by start: %+v", approved)
	}

	overlap, _ := store.List(ctx, event.ListFilter{From: date(t, "2026-06-03"), To: date(t, "2026-06-09")})
	if len(overlap) != 1 || overlap[0].ID != "e1" {
		t.Errorf("overlap filter mismatch: %+v", overlap)
	}

	ended, _ := store.List(ctx, event.ListFilter{Status: domain.StatusApproved, EndedBefore: date(t, "2026-06-10")})
	if len(ended) != 1 || ended[0].ID != "e1" {
		t.Errorf("ended filter mismatch: %+v", ended)
	}

	owned, _ := store.Count(ctx, event.ListFilter{SubmittedBy: "org2"})
	if owned != 1 {
		t.Errorf("owned count = %d", owned)
	}

	byStatus, err := store.CountByStatus(ctx, "")
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if byStatus[domain.StatusApproved] != 2 || byStatus[domain.StatusPending] != 1 {
		t.Errorf("CountByStatus = %v", byStatus)
	}

	months, err := store.CountByMonth(ctx, date(t, "2026-01-01"))
	if err != nil {
		t.Fatalf("CountByMonth: %v", err)
	}
	if months["2026-06"] != 2 || months["2026-07"] != 1 {
		t.Errorf("CountByMonth = %v", months)
	}
}
