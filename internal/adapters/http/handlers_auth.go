package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/csrf"

	"refdesk/internal/adapters/http/middleware"
	"refdesk/internal/adapters/i18n"
	"refdesk/internal/application/orchestrators"
	domainAccount "refdesk/internal/domain/account"
	"refdesk/internal/domain/referee"
)

// handleRegister handles POST /api/register
func handleRegister(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email         string
		Password      string
		FullName      string
		Phone         string
		Role          string
		LicenseLevel  string
		LicenseNumber string
		Region        string
	}
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, r, err)
		return
	}

	acct, err := orchestrators.ExecuteRegister(r.Context(), orchestrators.RegisterInput{
		Email:         input.Email,
		Password:      input.Password,
		FullName:      input.FullName,
		Phone:         input.Phone,
		Role:          input.Role,
		LicenseLevel:  input.LicenseLevel,
		LicenseNumber: input.LicenseNumber,
		Region:        input.Region,
	}, orchestrators.RegisterDeps{
		AccountStore: stores.Accounts,
		RefereeStore: stores.Referees,
		Outbox:       stores.Outbox,
		Metrics:      opts.Metrics,
		Now:          now,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, acct)
}

// loginResponse is returned by POST /api/login.
type loginResponse struct {
	Token     string
	ExpiresAt time.Time
	Account   domainAccount.Account
}

// handleLogin handles POST /api/login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string
		Password string
	}
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, r, err)
		return
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:    input.Email,
		Password: input.Password,
		IP:       clientIP(r),
	}, orchestrators.LoginDeps{
		AccountStore: stores.Accounts,
		Tokens:       opts.Tokens,
		Audit:        stores.Audit,
		Metrics:      opts.Metrics,
		Now:          now,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.SetSessionCookie(w, result.Token, result.ExpiresAt, opts.SecureCookies)
	writeJSON(w, http.StatusOK, loginResponse{Token: result.Token, ExpiresAt: result.ExpiresAt, Account: result.Account})
}

// handleLogout handles POST /api/logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	err := orchestrators.ExecuteLogout(r.Context(), orchestrators.LogoutInput{
		TokenID:   sess.TokenID,
		ExpiresAt: sess.ExpiresAt,
		Actor:     actorFrom(r, sess),
	}, orchestrators.LogoutDeps{
		Revocations: stores.Sessions,
		Audit:       stores.Audit,
		Now:         now,
	})
	if err != nil {
		internalError(w, r, err)
		return
	}
	middleware.ClearSessionCookie(w, opts.SecureCookies)
	w.WriteHeader(http.StatusNoContent)
}

// meResponse is the signed-in account with its referee profile, if any.
type meResponse struct {
	Account domainAccount.Account
	Profile *referee.Profile `json:",omitempty"`
	Lang    string
}

// handleMe handles GET /api/me
func handleMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	acct, err := stores.Accounts.GetByID(r.Context(), sess.AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := meResponse{Account: acct}
	if acct.Role == domainAccount.RoleReferee {
		p, err := stores.Referees.GetByAccountID(r.Context(), acct.ID)
		if err != nil {
			slog.Warn("referee_event", "event", "profile_missing", "account_id", acct.ID, "error", err)
		} else {
			resp.Profile = &p
		}
	}
	tag, fromQuery := i18n.ResolveTag(r)
	if fromQuery {
		i18n.SetLanguageCookie(w, tag)
	}
	resp.Lang = tag.String()
	writeJSON(w, http.StatusOK, resp)
}

// handleChangePassword handles POST /api/me/password
func handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var input struct {
		CurrentPassword string
		NewPassword     string
	}
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, r, err)
		return
	}
	err := orchestrators.ExecuteChangePassword(r.Context(), orchestrators.ChangePasswordInput{
		AccountID:       sess.AccountID,
		CurrentPassword: input.CurrentPassword,
		NewPassword:     input.NewPassword,
	}, orchestrators.ChangePasswordDeps{AccountStore: stores.Accounts})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCSRFToken handles GET /api/csrf for cookie-session clients that post forms.
func handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	token := csrf.Token(r)
	w.Header().Set(middleware.CSRFHeader, token)
	writeJSON(w, http.StatusOK, map[string]string{"Token": token})
}
