package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"refdesk/internal/adapters/auth"
	domainAccount "refdesk/internal/domain/account"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const sessionContextKey contextKey = "session"

// SessionCookieName holds the signed session token for browser clients.
const SessionCookieName = "refdesk_session"

// Session is the authenticated identity carried by a verified token.
type Session struct {
	AccountID string
	Email     string
	Role      string
	TokenID   string
	ExpiresAt time.Time
	Bearer    bool // token came from the Authorization header, not the cookie
}

// IsAdmin reports whether the session belongs to an admin.
func (s Session) IsAdmin() bool {
	return s.Role == domainAccount.RoleAdmin
}

// HasRole reports whether the session holds one of roles. Admins pass every
// role check.
func (s Session) HasRole(roles ...string) bool {
	if s.IsAdmin() {
		return true
	}
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}

// TokenParser verifies a signed session token.
type TokenParser interface {
	Parse(token string) (auth.Claims, error)
}

// RevocationChecker reports whether a token ID was signed out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AccountLookup loads the stored account behind a token.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (domainAccount.Account, error)
}

// Auth returns middleware that verifies the bearer token or session cookie
// and puts the session in the request context. Role and email come from the
// stored account, and accounts that are no longer active get no session.
// It does NOT block unauthenticated requests; handlers decide that.
func Auth(tokens TokenParser, revocations RevocationChecker, accounts AccountLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, bearer := tokenFromRequest(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				slog.Debug("auth_event", "event", "token_rejected", "path", r.URL.Path, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			revoked, err := revocations.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				slog.Warn("auth_event", "event", "revocation_check_failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if revoked {
				next.ServeHTTP(w, r)
				return
			}
			acct, err := accounts.GetByID(r.Context(), claims.AccountID())
			if err != nil {
				slog.Warn("auth_event", "event", "account_lookup_failed", "account_id", claims.AccountID(), "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !acct.IsActive() {
				slog.Info("auth_event", "event", "inactive_account_token", "account_id", acct.ID, "status", acct.Status)
				next.ServeHTTP(w, r)
				return
			}
			sess := Session{
				AccountID: acct.ID,
				Email:     acct.Email,
				Role:      acct.Role,
				TokenID:   claims.ID,
				Bearer:    bearer,
			}
			if claims.ExpiresAt != nil {
				sess.ExpiresAt = claims.ExpiresAt.Time
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sess)))
		})
	}
}

func tokenFromRequest(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token), true
		}
	}
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value, false
	}
	return "", false
}

// GetSessionFromContext extracts the session from the request context.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(Session)
	return session, ok
}

// ContextWithSession returns a context with the given session set.
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		Expires:  expiresAt,
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
