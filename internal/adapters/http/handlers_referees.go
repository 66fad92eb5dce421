package web

import (
	"net/http"

	"refdesk/internal/application/listutil"
	"refdesk/internal/application/orchestrators"
	"refdesk/internal/application/projections"
	domainAccount "refdesk/internal/domain/account"
)

// profileInput is the body of profile updates. Omitted fields are left
// unchanged. License fields and Active are only applied for admins.
type profileInput struct {
	FullName      *string
	Phone         *string
	Region        *string
	LicenseLevel  *string
	LicenseNumber *string
	Active        *bool
}

func updateProfile(w http.ResponseWriter, r *http.Request, accountID string, actor orchestrators.Actor) {
	var input profileInput
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, r, err)
		return
	}
	profile, err := orchestrators.ExecuteUpdateRefereeProfile(r.Context(), orchestrators.UpdateRefereeProfileInput{
		AccountID:     accountID,
		FullName:      input.FullName,
		Phone:         input.Phone,
		Region:        input.Region,
		LicenseLevel:  input.LicenseLevel,
		LicenseNumber: input.LicenseNumber,
		Active:        input.Active,
		Actor:         actor,
	}, orchestrators.UpdateRefereeProfileDeps{
		AccountStore: stores.Accounts,
		RefereeStore: stores.Referees,
		Audit:        stores.Audit,
		Now:          now,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// handleGetOwnProfile handles GET /api/referees/me
func handleGetOwnProfile(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireRole(w, r, domainAccount.RoleReferee)
	if !ok {
		return
	}
	profile, err := stores.Referees.GetByAccountID(r.Context(), sess.AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// handleUpdateOwnProfile handles PUT /api/referees/me
func handleUpdateOwnProfile(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireRole(w, r, domainAccount.RoleReferee)
	if !ok {
		return
	}
	updateProfile(w, r, sess.AccountID, actorFrom(r, sess))
}

// handleListReferees handles GET /api/referees?license_level=&region=&active=&q=
func handleListReferees(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	page, err := projections.QueryGetRefereeList(r.Context(), projections.ListQuery{
		Viewer: viewerFrom(sess),
		Params: listutil.ParseListParams(r.URL.Query(), projections.RefereeListFilterKeys),
	}, stores.Referees)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleUpdateReferee handles PUT /api/referees/{id}. Only fields present in
// the body change.
func handleUpdateReferee(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	updateProfile(w, r, r.PathValue("id"), actorFrom(r, sess))
}
