package projections

import (
	"database/sql"
	"net/url"
	"testing"
	"time"

	accountstore "refdesk/internal/adapters/storage/account"
	assignmentstore "refdesk/internal/adapters/storage/assignment"
	auditstore "refdesk/internal/adapters/storage/audit"
	eventstore "refdesk/internal/adapters/storage/event"
	forumstore "refdesk/internal/adapters/storage/forum"
	honorstore "refdesk/internal/adapters/storage/honor"
	outboxstore "refdesk/internal/adapters/storage/outbox"
	refereestore "refdesk/internal/adapters/storage/referee"
	"refdesk/internal/adapters/storage/storagetest"
	"refdesk/internal/application/listutil"
	"refdesk/internal/domain/account"
)

var viewNow = time.Date(2026, 6, 5, 8, 0, 0, 0, time.UTC)

var (
	adminViewer     = Viewer{ID: "admin", Role: account.RoleAdmin}
	organizerViewer = Viewer{ID: "org", Role: account.RoleOrganizer}
)

func refereeViewer(id string) Viewer { return Viewer{ID: id, Role: account.RoleReferee} }

type fixture struct {
	db          *sql.DB
	accounts    *accountstore.SQLiteStore
	referees    *refereestore.SQLiteStore
	events      *eventstore.SQLiteStore
	assignments *assignmentstore.SQLiteStore
	honors      *honorstore.SQLiteStore
	forum       *forumstore.SQLiteStore
	audit       *auditstore.SQLiteStore
	outbox      *outboxstore.SQLiteStore
}

// newFixture seeds a small federation:
//
//	cup     approved  2026-06-10..12  r1 primary confirmed, r2 backup declined
//	league  approved  2026-06-12..13  r2 primary pending
//	final   approved  2026-06-20
//	draft   pending   2026-07-01
//	gone    cancelled 2026-06-11      r2 primary confirmed (no longer books)
//	old     completed 2026-03-01      r1 primary confirmed, honor paid
//
// r1 also has a submitted honor on cup. r3's profile is inactive and pend is
// still awaiting approval.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storagetest.Open(t)
	storagetest.Exec(t, db,
		`INSERT INTO account (id, email, role, status, full_name, created_at) VALUES
		 ('admin', 'admin@fed.or.id', 'admin', 'active', 'Admin Federasi', '2026-01-01T00:00:00Z'),
		 ('org', 'org@club.id', 'organizer', 'active', 'Klub Garuda', '2026-01-01T00:00:00Z'),
		 ('org2', 'org2@club.id', 'organizer', 'active', 'Klub Elang', '2026-01-01T00:00:00Z'),
		 ('r1', 'r1@fed.or.id', 'referee', 'active', 'Andi Wijaya', '2026-01-01T00:00:00Z'),
		 ('r2', 'r2@fed.or.id', 'referee', 'active', 'Budi Santoso', '2026-01-01T00:00:00Z'),
		 ('r3', 'r3@fed.or.id', 'referee', 'active', 'Citra Lestari', '2026-01-01T00:00:00Z'),
		 ('pend', 'pend@fed.or.id', 'referee', 'pending_approval', 'Eko Prasetyo', '2026-05-30T00:00:00Z')`,
		`INSERT INTO referee_profile (account_id, license_level, license_number, region, active, updated_at) VALUES
		 ('r1', 'C1', 'JB-001', 'Bandung', 1, '2026-01-01T00:00:00Z'),
		 ('r2', 'B', 'JB-002', 'Bandung', 1, '2026-01-01T00:00:00Z'),
		 ('r3', 'C2', 'JB-003', 'Bogor', 0, '2026-01-01T00:00:00Z'),
		 ('pend', 'C3', '', 'Depok', 1, '2026-05-30T00:00:00Z')`,
		`INSERT INTO event (id, title, venue, city, start_date, end_date, level, referee_quota, status, submitted_by, created_at) VALUES
		 ('cup', 'Piala Walikota', 'GOR Pajajaran', 'Bandung', '2026-06-10', '2026-06-12', 'regional', 2, 'approved', 'org', '2026-01-01T00:00:00Z'),
		 ('league', 'Liga Pelajar', 'GOR Saparua', 'Bandung', '2026-06-12', '2026-06-13', 'local', 1, 'approved', 'org', '2026-01-01T00:00:00Z'),
		 ('final', 'Final Liga', 'GOR C-Tra', 'Bandung', '2026-06-20', '2026-06-20', 'local', 1, 'approved', 'admin', '2026-01-01T00:00:00Z'),
		 ('draft', 'Turnamen Antar Kampus', 'GOR ITB', 'Bandung', '2026-07-01', '2026-07-01', 'local', 1, 'pending', 'org', '2026-01-01T00:00:00Z'),
		 ('gone', 'Laga Persahabatan', 'GOR Lodaya', 'Bandung', '2026-06-11', '2026-06-11', 'local', 1, 'cancelled', 'org', '2026-01-01T00:00:00Z'),
		 ('old', 'Liga Musim Semi', 'GOR Arcamanik', 'Bandung', '2026-03-01', '2026-03-01', 'local', 1, 'completed', 'org2', '2026-01-01T00:00:00Z')`,
		`INSERT INTO assignment (id, event_id, referee_id, role, status, assigned_by, created_at) VALUES
		 ('a1', 'cup', 'r1', 'primary', 'confirmed', 'admin', '2026-05-01T00:00:00Z'),
		 ('a2', 'league', 'r2', 'primary', 'pending', 'admin', '2026-05-01T00:00:00Z'),
		 ('a3', 'gone', 'r2', 'primary', 'confirmed', 'admin', '2026-05-01T00:00:00Z'),
		 ('a4', 'old', 'r1', 'primary', 'confirmed', 'admin', '2026-02-01T00:00:00Z'),
		 ('a5', 'cup', 'r2', 'backup', 'declined', 'admin', '2026-05-01T00:00:00Z')`,
		`INSERT INTO honor (id, event_id, referee_id, amount, status, submitted_at, paid_at) VALUES
		 ('h1', 'old', 'r1', 500000, 'paid', '2026-03-02T00:00:00Z', '2026-03-10T00:00:00Z'),
		 ('h2', 'cup', 'r1', 750000, 'submitted', '2026-06-13T00:00:00Z', NULL)`,
		`INSERT INTO forum_topic (id, category, title, body, author_id, pinned, hidden, reply_count, created_at, last_activity_at) VALUES
		 ('t1', 'learning', 'Hukum 12', 'Fouls and **misconduct**', 'admin', 1, 0, 0, '2026-05-01T00:00:00Z', '2026-05-01T00:00:00Z'),
		 ('t2', 'discussion', 'Spam', 'buy now', 'r1', 0, 1, 0, '2026-05-02T00:00:00Z', '2026-05-02T00:00:00Z'),
		 ('t3', 'discussion', 'Offside?', '<script>alert(1)</script> is there **offside**?', 'r2', 0, 0, 2, '2026-05-03T00:00:00Z', '2026-05-04T00:00:00Z')`,
		`INSERT INTO forum_reply (id, topic_id, author_id, body, hidden, created_at) VALUES
		 ('p1', 't3', 'r1', 'No, there is ~~no~~ offside.', 0, '2026-05-03T10:00:00Z'),
		 ('p2', 't3', 'r1', 'hidden reply', 1, '2026-05-04T00:00:00Z')`)

	return &fixture{
		db:          db,
		accounts:    accountstore.NewSQLiteStore(db),
		referees:    refereestore.NewSQLiteStore(db),
		events:      eventstore.NewSQLiteStore(db),
		assignments: assignmentstore.NewSQLiteStore(db),
		honors:      honorstore.NewSQLiteStore(db),
		forum:       forumstore.NewSQLiteStore(db),
		audit:       auditstore.NewSQLiteStore(db),
		outbox:      outboxstore.NewSQLiteStore(db),
	}
}

func listParams(q url.Values, filterKeys []string) listutil.ListParams {
	return listutil.ParseListParams(q, filterKeys)
}

func (f *fixture) exec(t *testing.T, stmts ...string) {
	t.Helper()
	storagetest.Exec(t, f.db, stmts...)
}
