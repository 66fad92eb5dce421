package web

import (
	"net/http"

	"refdesk/internal/application/listutil"
	"refdesk/internal/application/orchestrators"
	"refdesk/internal/application/projections"
	domainAccount "refdesk/internal/domain/account"
)

func eventDeps() orchestrators.EventDeps {
	return orchestrators.EventDeps{
		EventStore:      stores.Events,
		AccountStore:    stores.Accounts,
		AssignmentStore: stores.Assignments,
		Outbox:          stores.Outbox,
		Audit:           stores.Audit,
		Metrics:         opts.Metrics,
		Now:             now,
	}
}

func assignmentDeps() orchestrators.AssignmentDeps {
	return orchestrators.AssignmentDeps{
		EventStore:      stores.Events,
		RefereeStore:    stores.Referees,
		AccountStore:    stores.Accounts,
		AssignmentStore: stores.Assignments,
		Outbox:          stores.Outbox,
		Audit:           stores.Audit,
		Metrics:         opts.Metrics,
		Now:             now,
	}
}

// handleListEvents handles GET /api/events?status=&level=&from=&to=&q=
func handleListEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	page, err := projections.QueryGetEventList(r.Context(), projections.GetEventListQuery{
		Viewer: viewerFrom(sess),
		Params: listutil.ParseListParams(r.URL.Query(), projections.EventListFilterKeys),
	}, projections.GetEventListDeps{EventStore: stores.Events})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleSubmitEvent handles POST /api/events
func handleSubmitEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireRole(w, r, domainAccount.RoleOrganizer)
	if !ok {
		return
	}
	var input orchestrators.EventInput
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, r, err)
		return
	}
	e, err := orchestrators.ExecuteSubmitEvent(r.Context(), orchestrators.SubmitEventInput{
		Event: input,
		Actor: actorFrom(r, sess),
	}, eventDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// handleGetEvent handles GET /api/events/{id}
func handleGetEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	detail, err := projections.QueryGetEventDetail(r.Context(), projections.GetEventDetailQuery{
		Viewer:  viewerFrom(sess),
		EventID: r.PathValue("id"),
	}, projections.GetEventDetailDeps{EventStore: stores.Events, AssignmentStore: stores.Assignments})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleEditEvent handles PUT /api/events/{id}
func handleEditEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireRole(w, r, domainAccount.RoleOrganizer)
	if !ok {
		return
	}
	var input orchestrators.EventInput
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, r, err)
		return
	}
	e, err := orchestrators.ExecuteEditEvent(r.Context(), orchestrators.EditEventInput{
		EventID: r.PathValue("id"),
		Event:   input,
		Actor:   actorFrom(r, sess),
	}, eventDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleDecideEvent handles POST /api/events/{id}/decision
func handleDecideEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var input struct {
		Decision string
		Note     string
	}
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, r, err)
		return
	}
	e, err := orchestrators.ExecuteDecideEvent(r.Context(), orchestrators.DecideEventInput{
		EventID:  r.PathValue("id"),
		Decision: input.Decision,
		Note:     input.Note,
		Actor:    actorFrom(r, sess),
	}, eventDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleCancelEvent handles POST /api/events/{id}/cancel
func handleCancelEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireRole(w, r, domainAccount.RoleOrganizer)
	if !ok {
		return
	}
	var input struct {
		Note string
	}
	if r.ContentLength != 0 {
		if err := strictDecode(r, &input); err != nil {
			badRequest(w, r, err)
			return
		}
	}
	e, err := orchestrators.ExecuteCancelEvent(r.Context(), orchestrators.CancelEventInput{
		EventID: r.PathValue("id"),
		Note:    input.Note,
		Actor:   actorFrom(r, sess),
	}, eventDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleCompleteEvent handles POST /api/events/{id}/complete
func handleCompleteEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	e, err := orchestrators.ExecuteCompleteEvent(r.Context(), orchestrators.CompleteEventInput{
		EventID: r.PathValue("id"),
		Actor:   actorFrom(r, sess),
	}, eventDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleAvailableReferees handles GET /api/events/{id}/available-referees
func handleAvailableReferees(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	result, err := projections.QueryGetAvailableReferees(r.Context(), projections.GetAvailableRefereesQuery{
		Viewer:  viewerFrom(sess),
		EventID: r.PathValue("id"),
	}, projections.GetAvailableRefereesDeps{
		EventStore:      stores.Events,
		RefereeStore:    stores.Referees,
		AssignmentStore: stores.Assignments,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleEventAssignments handles GET /api/events/{id}/assignments
func handleEventAssignments(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	detail, err := projections.QueryGetEventDetail(r.Context(), projections.GetEventDetailQuery{
		Viewer:  viewerFrom(sess),
		EventID: r.PathValue("id"),
	}, projections.GetEventDetailDeps{EventStore: stores.Events, AssignmentStore: stores.Assignments})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail.Assignments)
}

// handleAssignReferee handles POST /api/events/{id}/assignments
func handleAssignReferee(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var input struct {
		RefereeID string
		Role      string
		Note      string
	}
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, r, err)
		return
	}
	a, err := orchestrators.ExecuteAssignReferee(r.Context(), orchestrators.AssignRefereeInput{
		EventID:   r.PathValue("id"),
		RefereeID: input.RefereeID,
		Role:      input.Role,
		Note:      input.Note,
		Actor:     actorFrom(r, sess),
	}, assignmentDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}
