package web

import (
	"context"
	"net/http"
	"time"

	"refdesk/internal/adapters/auth"
	"refdesk/internal/adapters/blob"
	"refdesk/internal/adapters/http/middleware"
	"refdesk/internal/adapters/i18n"
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
	"refdesk/internal/application/orchestrators"
)

// Stores holds all storage dependencies.
type Stores struct {
	Accounts    accountStore.Store
	Referees    refereeStore.Store
	Events      eventStore.Store
	Assignments assignmentStore.Store
	Honors      honorStore.Store
	Forum       forumStore.Store
	Audit       auditStore.Store
	Outbox      outboxStore.Store
	Sessions    sessionStore.RevocationStore
}

// Pinger reports database liveness for /healthz.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options carries everything the handlers need besides the stores.
type Options struct {
	Tokens         *auth.TokenManager
	Blobs          blob.Store
	Processor      *orchestrators.OutboxProcessor
	Metrics        *metrics.Metrics
	Translator     *i18n.Translator // nil uses i18n.Default()
	DB             Pinger
	Limiter        *middleware.RateLimiter
	CSRFKey        []byte // 32 bytes
	SecureCookies  bool
	TrustedOrigins []string
	HonorMaxAmount int64
	MaxUploadBytes int64
	SlowRequest    time.Duration
	Now            func() time.Time // nil uses time.Now
}

// Default request limits.
const (
	DefaultRateLimit      = 20
	DefaultMaxUploadBytes = 5 << 20
	DefaultHonorMaxAmount = 2_000_000
)

// Global stores instance (set by NewMux)
var stores *Stores

// Global options (set by NewMux)
var opts Options

var translator *i18n.Translator

// NewMux wires HTTP handlers and the middleware chain.
// PRE: s has every store set; o.Tokens and o.CSRFKey are set
func NewMux(s *Stores, o Options) http.Handler {
	stores = s
	if o.Translator == nil {
		o.Translator = i18n.Default()
	}
	if o.Limiter == nil {
		o.Limiter = middleware.NewRateLimiter(DefaultRateLimit, time.Second)
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if o.HonorMaxAmount <= 0 {
		o.HonorMaxAmount = DefaultHonorMaxAmount
	}
	opts = o
	translator = o.Translator

	mux := http.NewServeMux()
	registerRoutes(mux)

	// Outer to inner: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(o.CSRFKey, o.SecureCookies, o.TrustedOrigins),
		middleware.Auth(o.Tokens, s.Sessions, s.Accounts),
		middleware.RateLimit(o.Limiter),
		middleware.Timing(o.Metrics, o.SlowRequest),
	)
}

func now() time.Time {
	if opts.Now != nil {
		return opts.Now()
	}
	return time.Now().UTC()
}

// handleHealth handles GET /healthz
func handleHealth(w http.ResponseWriter, r *http.Request) {
	if opts.DB != nil {
		if err := opts.DB.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
