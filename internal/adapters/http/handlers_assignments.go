package web

import (
	"net/http"

	"refdesk/internal/application/listutil"
	"refdesk/internal/application/orchestrators"
	"refdesk/internal/application/projections"
	domainAccount "refdesk/internal/domain/account"
)

// handleListAssignments handles GET /api/assignments?event_id=&referee_id=&status=
// Referees only see their own assignments.
func handleListAssignments(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	page, err := projections.QueryGetAssignmentList(r.Context(), projections.ListQuery{
		Viewer: viewerFrom(sess),
		Params: listutil.ParseListParams(r.URL.Query(), projections.AssignmentListFilterKeys),
	}, stores.Assignments)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleRespondAssignment handles POST /api/assignments/{id}/response
func handleRespondAssignment(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireRole(w, r, domainAccount.RoleReferee)
	if !ok {
		return
	}
	var input struct {
		Response string
	}
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, r, err)
		return
	}
	a, err := orchestrators.ExecuteRespondAssignment(r.Context(), orchestrators.RespondAssignmentInput{
		AssignmentID: r.PathValue("id"),
		Response:     input.Response,
		Actor:        actorFrom(r, sess),
	}, assignmentDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleCancelAssignment handles POST /api/assignments/{id}/cancel
func handleCancelAssignment(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	a, err := orchestrators.ExecuteCancelAssignment(r.Context(), orchestrators.CancelAssignmentInput{
		AssignmentID: r.PathValue("id"),
		Actor:        actorFrom(r, sess),
	}, assignmentDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
