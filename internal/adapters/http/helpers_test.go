package web

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"refdesk/internal/adapters/auth"
	"refdesk/internal/adapters/blob"
	"refdesk/internal/adapters/email"
	"refdesk/internal/adapters/http/middleware"
	"refdesk/internal/adapters/metrics"
	accountStore "refdesk/internal/adapters/storage/account"
	assignmentStore "refdesk/internal/adapters/storage/assignment"
	auditStore "refdesk/internal/adapters/storage/audit"
	eventStore "refdesk/internal/adapters/storage/event"
	forumStore "refdesk/internal/adapters/storage/forum"
	honorStore "refdesk/internal/adapters/storage/honor"
	outboxStore "refdesk/internal/adapters/storage/outbox"
	refereeStore "refdesk/internal/adapters/storage/referee"
	sessionStore "refdesk/internal/adapters/storage/session"
	"refdesk/internal/adapters/storage/storagetest"
	"refdesk/internal/application/orchestrators"
	"refdesk/internal/domain/outbox"
)

var testNow = time.Date(2026, 6, 5, 8, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

const testUploadLimit = 1 << 10

type testEnv struct {
	handler http.Handler
	tokens  *auth.TokenManager
	db      *sql.DB
	metrics *metrics.Metrics
	sender  *email.NoopSender
}

// newTestEnv serves the full middleware chain over a migrated in-memory
// database seeded with:
//
//	admin  active admin
//	org    active organizer
//	r1     active referee, C1, Bandung
//	r2     active referee, B, Bandung
//	done   completed event 2026-05-01, r1 confirmed primary
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := storagetest.Open(t)
	storagetest.Exec(t, db,
		`INSERT INTO account (id, email, role, status, full_name, created_at) VALUES
		 ('admin', 'admin@fed.or.id', 'admin', 'active', 'Admin Federasi', '2026-01-01T00:00:00Z'),
		 ('org', 'org@club.id', 'organizer', 'active', 'Klub Garuda', '2026-01-01T00:00:00Z'),
		 ('r1', 'r1@fed.or.id', 'referee', 'active', 'Andi Wijaya', '2026-01-01T00:00:00Z'),
		 ('r2', 'r2@fed.or.id', 'referee', 'active', 'Budi Santoso', '2026-01-01T00:00:00Z')`,
		`INSERT INTO referee_profile (account_id, license_level, license_number, region, active, updated_at) VALUES
		 ('r1', 'C1', 'JB-001', 'Bandung', 1, '2026-01-01T00:00:00Z'),
		 ('r2', 'B', 'JB-002', 'Bandung', 1, '2026-01-01T00:00:00Z')`,
		`INSERT INTO event (id, title, venue, city, start_date, end_date, level, referee_quota, status, submitted_by, created_at) VALUES
		 ('done', 'Liga Musim Semi', 'GOR Arcamanik', 'Bandung', '2026-05-01', '2026-05-01', 'local', 1, 'completed', 'org', '2026-01-01T00:00:00Z')`,
		`INSERT INTO assignment (id, event_id, referee_id, role, status, assigned_by, created_at) VALUES
		 ('a-done', 'done', 'r1', 'primary', 'confirmed', 'admin', '2026-04-01T00:00:00Z')`)

	base, err := auth.NewTokenManager("test-secret-with-enough-entropy!", time.Hour)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	tokens := base.WithClock(testClock)
	blobs, err := blob.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	m := metrics.New()
	sender := email.NewNoopSender()

	s := &Stores{
		Accounts:    accountStore.NewSQLiteStore(db),
		Referees:    refereeStore.NewSQLiteStore(db),
		Events:      eventStore.NewSQLiteStore(db),
		Assignments: assignmentStore.NewSQLiteStore(db),
		Honors:      honorStore.NewSQLiteStore(db),
		Forum:       forumStore.NewSQLiteStore(db),
		Audit:       auditStore.NewSQLiteStore(db),
		Outbox:      outboxStore.NewSQLiteStore(db),
		Sessions:    sessionStore.NewSQLiteStore(db),
	}
	processor := orchestrators.NewOutboxProcessor(s.Outbox,
		map[string]orchestrators.ActionExecutor{outbox.ActionTypeEmail: &orchestrators.EmailExecutor{Sender: sender}},
		m, orchestrators.WithOutboxClock(testClock), orchestrators.WithOutboxAudit(s.Audit))

	h := NewMux(s, Options{
		Tokens:         tokens,
		Blobs:          blobs,
		Processor:      processor,
		Metrics:        m,
		DB:             db,
		Limiter:        middleware.NewRateLimiter(10_000, time.Second),
		CSRFKey:        []byte(strings.Repeat("k", 32)),
		HonorMaxAmount: 1_000_000,
		MaxUploadBytes: testUploadLimit,
		Now:            testClock,
	})
	return &testEnv{handler: h, tokens: tokens, db: db, metrics: m, sender: sender}
}

// token issues a bearer token for a seeded account.
func (e *testEnv) token(t *testing.T, id, role string) string {
	t.Helper()
	tok, _, err := e.tokens.Issue(id, id+"@fed.or.id", role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

// do sends a JSON request, authenticated with token when it is non-empty.
func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.serve(req)
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("got %d, want %d. Body: %s", rec.Code, want, rec.Body.String())
	}
}
