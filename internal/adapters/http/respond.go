package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"refdesk/internal/adapters/http/middleware"
	"refdesk/internal/adapters/i18n"
	"refdesk/internal/application/orchestrators"
	"refdesk/internal/application/projections"
)

var (
	errNotAuthenticated = errors.New("not authenticated")
	errInvalidJSON      = errors.New("invalid JSON body")
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusByKey maps message keys to HTTP statuses; unknown keys are 400.
var statusByKey = map[string]int{
	i18n.KeyNotFound:          http.StatusNotFound,
	i18n.KeyUnauthorized:      http.StatusUnauthorized,
	i18n.KeyBadCredentials:    http.StatusUnauthorized,
	i18n.KeyForbidden:         http.StatusForbidden,
	i18n.KeyAccountPending:    http.StatusForbidden,
	i18n.KeyAccountRejected:   http.StatusForbidden,
	i18n.KeyAccountSuspended:  http.StatusForbidden,
	i18n.KeyLearningAdmin:     http.StatusForbidden,
	i18n.KeyAccountLocked:     http.StatusTooManyRequests,
	i18n.KeyDuplicate:         http.StatusConflict,
	i18n.KeyEmailTaken:        http.StatusConflict,
	i18n.KeyInvalidTransition: http.StatusConflict,
	i18n.KeyScheduleConflict:  http.StatusConflict,
	i18n.KeyQuotaFull:         http.StatusConflict,
	i18n.KeyAlreadyAssigned:   http.StatusConflict,
	i18n.KeyTopicLocked:       http.StatusConflict,
	i18n.KeyModerated:         http.StatusConflict,
	i18n.KeyEventNotApproved:  http.StatusConflict,
	i18n.KeyEventNotFinished:  http.StatusConflict,
	i18n.KeyRefereeInactive:   http.StatusConflict,
	i18n.KeyNoConfirmedDuty:   http.StatusConflict,
	i18n.KeyReceiptTooLarge:   http.StatusRequestEntityTooLarge,
	i18n.KeyInternal:          http.StatusInternalServerError,
}

func statusFor(key string) int {
	if s, ok := statusByKey[key]; ok {
		return s
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response_encode_failed", "error", err)
	}
}

// writeError maps err to a status and a localized message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	key := translator.Key(err)
	status := statusFor(key)
	if status == http.StatusInternalServerError {
		internalError(w, r, err)
		return
	}
	tag, _ := i18n.ResolveTag(r)
	writeJSON(w, status, errorBody{Error: err.Error(), Message: translator.Message(tag, err)})
}

// writeStatus responds with an explicit status, localizing key.
func writeStatus(w http.ResponseWriter, r *http.Request, status int, key string, err error) {
	tag, _ := i18n.ResolveTag(r)
	writeJSON(w, status, errorBody{Error: err.Error(), Message: translator.Text(tag, key)})
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal_error", "path", r.URL.Path, "error", err)
	tag, _ := i18n.ResolveTag(r)
	writeJSON(w, http.StatusInternalServerError, errorBody{
		Error:   "internal server error",
		Message: translator.Text(tag, i18n.KeyInternal),
	})
}

func badRequest(w http.ResponseWriter, r *http.Request, err error) {
	writeStatus(w, r, http.StatusBadRequest, i18n.KeyValidation, err)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(errInvalidJSON, err)
	}
	return nil
}

// requireSession returns the caller's session or writes 401.
func requireSession(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		slog.Warn("auth_denied", "path", r.URL.Path, "reason", "no session")
		writeStatus(w, r, http.StatusUnauthorized, i18n.KeyUnauthorized, errNotAuthenticated)
		return middleware.Session{}, false
	}
	return sess, true
}

// requireRole returns the session when it holds one of roles; admins always pass.
func requireRole(w http.ResponseWriter, r *http.Request, roles ...string) (middleware.Session, bool) {
	sess, ok := requireSession(w, r)
	if !ok {
		return sess, false
	}
	if !sess.HasRole(roles...) {
		slog.Warn("auth_denied", "path", r.URL.Path, "account_id", sess.AccountID, "role", sess.Role, "required", roles)
		writeStatus(w, r, http.StatusForbidden, i18n.KeyForbidden, orchestrators.ErrForbidden)
		return middleware.Session{}, false
	}
	return sess, true
}

// requireAdmin checks the session for admin role and returns the session.
func requireAdmin(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	return requireRole(w, r)
}

func actorFrom(r *http.Request, sess middleware.Session) orchestrators.Actor {
	return orchestrators.Actor{ID: sess.AccountID, Email: sess.Email, Role: sess.Role, IP: clientIP(r)}
}

func viewerFrom(sess middleware.Session) projections.Viewer {
	return projections.Viewer{ID: sess.AccountID, Role: sess.Role}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func queryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}
