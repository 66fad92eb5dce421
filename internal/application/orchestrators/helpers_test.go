package orchestrators

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"refdesk/internal/adapters/email"
	"refdesk/internal/adapters/metrics"
	accountstore "refdesk/internal/adapters/storage/account"
	assignmentstore "refdesk/internal/adapters/storage/assignment"
	eventstore "refdesk/internal/adapters/storage/event"
	forumstore "refdesk/internal/adapters/storage/forum"
	honorstore "refdesk/internal/adapters/storage/honor"
	refereestore "refdesk/internal/adapters/storage/referee"
	"refdesk/internal/adapters/storage/storagetest"
	"refdesk/internal/domain/account"
	"refdesk/internal/domain/audit"
	"refdesk/internal/domain/outbox"
)

var fixedTime = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

func fixedID() string { return "test-id-001" }

// seqID returns a generator yielding prefix-1, prefix-2, ...
func seqID(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

var (
	adminActor     = Actor{ID: "admin", Email: "admin@fed.or.id", Role: account.RoleAdmin, IP: "10.0.0.1"}
	organizerActor = Actor{ID: "org", Email: "org@club.id", Role: account.RoleOrganizer}
)

func refereeActor(id string) Actor {
	return Actor{ID: id, Email: id + "@fed.or.id", Role: account.RoleReferee}
}

// recordingOutbox implements OutboxWriter in memory.
type recordingOutbox struct {
	mu      sync.Mutex
	entries []outbox.Entry
}

func (r *recordingOutbox) Save(_ context.Context, e outbox.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

// requests decodes every queued email.
func (r *recordingOutbox) requests(t *testing.T) []email.SendRequest {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]email.SendRequest, 0, len(r.entries))
	for _, e := range r.entries {
		var req email.SendRequest
		if err := json.Unmarshal([]byte(e.Payload), &req); err != nil {
			t.Fatalf("decode outbox payload: %v", err)
		}
		out = append(out, req)
	}
	return out
}

// recordingAudit implements AuditWriter in memory.
type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAudit) Save(_ context.Context, e audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingAudit) actions() []audit.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.Action, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Action)
	}
	return out
}

// fixture wires the SQLite stores over one in-memory database.
type fixture struct {
	db          *sql.DB
	accounts    *accountstore.SQLiteStore
	referees    *refereestore.SQLiteStore
	events      *eventstore.SQLiteStore
	assignments *assignmentstore.SQLiteStore
	honors      *honorstore.SQLiteStore
	forum       *forumstore.SQLiteStore
	outbox      *recordingOutbox
	audit       *recordingAudit
}

// newFixture seeds an admin, an organizer, referees r1 and r2, a suspended
// referee r3 and an inactive referee r4, plus events:
//
//	cup     approved 2026-06-10..12 quota 2
//	league  approved 2026-06-12..13 quota 1 (overlaps cup on the 12th)
//	final   approved 2026-06-20       quota 1
//	draft   pending  2026-07-01       quota 1, submitted by org
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storagetest.Open(t)
	storagetest.Exec(t, db,
		`INSERT INTO account (id, email, role, status, full_name, created_at) VALUES
		 ('admin', 'admin@fed.or.id', 'admin', 'active', 'Admin Federasi', '2026-01-01T00:00:00Z'),
		 ('org', 'org@club.id', 'organizer', 'active', 'Klub Garuda', '2026-01-01T00:00:00Z'),
		 ('r1', 'r1@fed.or.id', 'referee', 'active', 'Andi Wijaya', '2026-01-01T00:00:00Z'),
		 ('r2', 'r2@fed.or.id', 'referee', 'active', 'Budi Santoso', '2026-01-01T00:00:00Z'),
		 ('r3', 'r3@fed.or.id', 'referee', 'suspended', 'Citra Lestari', '2026-01-01T00:00:00Z'),
		 ('r4', 'r4@fed.or.id', 'referee', 'active', 'Dewi Anggraini', '2026-01-01T00:00:00Z')`,
		`INSERT INTO referee_profile (account_id, license_level, license_number, region, active, updated_at) VALUES
		 ('r1', 'C1', 'JB-001', 'Bandung', 1, '2026-01-01T00:00:00Z'),
		 ('r2', 'B', 'JB-002', 'Bandung', 1, '2026-01-01T00:00:00Z'),
		 ('r3', 'C2', 'JB-003', 'Bogor', 1, '2026-01-01T00:00:00Z'),
		 ('r4', 'C3', 'JB-004', 'Bekasi', 0, '2026-01-01T00:00:00Z')`,
		`INSERT INTO event (id, title, venue, city, start_date, end_date, level, referee_quota, status, submitted_by, created_at) VALUES
		 ('cup', 'Piala Walikota', 'GOR Pajajaran', 'Bandung', '2026-06-10', '2026-06-12', 'regional', 2, 'approved', 'org', '2026-01-01T00:00:00Z'),
		 ('league', 'Liga Pelajar', 'GOR Saparua', 'Bandung', '2026-06-12', '2026-06-13', 'local', 1, 'approved', 'org', '2026-01-01T00:00:00Z'),
		 ('final', 'Final Liga', 'GOR C-Tra', 'Bandung', '2026-06-20', '2026-06-20', 'local', 1, 'approved', 'admin', '2026-01-01T00:00:00Z'),
		 ('draft', 'Turnamen Antar Kampus', 'GOR ITB', 'Bandung', '2026-07-01', '2026-07-01', 'local', 1, 'pending', 'org', '2026-01-01T00:00:00Z')`)

	return &fixture{
		db:          db,
		accounts:    accountstore.NewSQLiteStore(db),
		referees:    refereestore.NewSQLiteStore(db),
		events:      eventstore.NewSQLiteStore(db),
		assignments: assignmentstore.NewSQLiteStore(db),
		honors:      honorstore.NewSQLiteStore(db),
		forum:       forumstore.NewSQLiteStore(db),
		outbox:      &recordingOutbox{},
		audit:       &recordingAudit{},
	}
}

func (f *fixture) eventDeps() EventDeps {
	return EventDeps{
		EventStore:      f.events,
		AccountStore:    f.accounts,
		AssignmentStore: f.assignments,
		Outbox:          f.outbox,
		Audit:           f.audit,
		GenerateID:      seqID("event"),
		Now:             fixedNow,
	}
}

func (f *fixture) assignmentDeps() AssignmentDeps {
	return AssignmentDeps{
		EventStore:      f.events,
		RefereeStore:    f.referees,
		AccountStore:    f.accounts,
		AssignmentStore: f.assignments,
		Outbox:          f.outbox,
		Audit:           f.audit,
		GenerateID:      seqID("asg"),
		Now:             fixedNow,
	}
}

func (f *fixture) accountAdminDeps() AccountAdminDeps {
	return AccountAdminDeps{
		AccountStore: f.accounts,
		RefereeStore: f.referees,
		Outbox:       f.outbox,
		Audit:        f.audit,
		Now:          fixedNow,
	}
}

// assign books referee onto eventID as primary and fails the test on error.
func (f *fixture) assign(t *testing.T, eventID, refereeID string) string {
	t.Helper()
	a, err := ExecuteAssignReferee(context.Background(), AssignRefereeInput{
		EventID:   eventID,
		RefereeID: refereeID,
		Actor:     adminActor,
	}, f.assignmentDeps())
	if err != nil {
		t.Fatalf("assign %s to %s: %v", refereeID, eventID, err)
	}
	return a.ID
}

// workflowCount reads one workflow counter from the registry.
func workflowCount(t *testing.T, m *metrics.Metrics, kind string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "refdesk_workflow_events_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "kind" && label.GetValue() == kind {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
