package web

import (
	"net/http"

	"refdesk/internal/application/listutil"
	"refdesk/internal/application/orchestrators"
	"refdesk/internal/application/projections"
)

func accountAdminDeps() orchestrators.AccountAdminDeps {
	return orchestrators.AccountAdminDeps{
		AccountStore: stores.Accounts,
		RefereeStore: stores.Referees,
		Outbox:       stores.Outbox,
		Audit:        stores.Audit,
		Metrics:      opts.Metrics,
		Now:          now,
	}
}

// handleListAccounts handles GET /api/admin/accounts?status=&role=&q=
func handleListAccounts(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	page, err := projections.QueryGetAccountList(r.Context(), projections.ListQuery{
		Viewer: viewerFrom(sess),
		Params: listutil.ParseListParams(r.URL.Query(), projections.AccountListFilterKeys),
	}, stores.Accounts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleDecideRegistration handles POST /api/admin/accounts/{id}/decision
func handleDecideRegistration(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var input struct {
		Decision string
		Reason   string
	}
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, r, err)
		return
	}
	acct, err := orchestrators.ExecuteDecideRegistration(r.Context(), orchestrators.DecideRegistrationInput{
		AccountID: r.PathValue("id"),
		Decision:  input.Decision,
		Reason:    input.Reason,
		Actor:     actorFrom(r, sess),
	}, accountAdminDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// handleSetAccountStatus handles POST /api/admin/accounts/{id}/status
func handleSetAccountStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var input struct {
		Action string
	}
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, r, err)
		return
	}
	acct, err := orchestrators.ExecuteSetAccountStatus(r.Context(), orchestrators.SetAccountStatusInput{
		AccountID: r.PathValue("id"),
		Action:    input.Action,
		Actor:     actorFrom(r, sess),
	}, accountAdminDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// handleChangeRole handles POST /api/admin/accounts/{id}/role
func handleChangeRole(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var input struct {
		Role string
	}
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, r, err)
		return
	}
	acct, err := orchestrators.ExecuteChangeRole(r.Context(), orchestrators.ChangeRoleInput{
		AccountID: r.PathValue("id"),
		Role:      input.Role,
		Actor:     actorFrom(r, sess),
	}, accountAdminDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}
