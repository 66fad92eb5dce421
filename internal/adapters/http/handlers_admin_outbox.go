package web

import (
	"errors"
	"net/http"

	"refdesk/internal/application/projections"
	"refdesk/internal/domain/outbox"
)

// Outbox entry actions.
const (
	outboxActionRetry   = "retry"
	outboxActionAbandon = "abandon"
)

var errUnknownOutboxAction = errors.New("action must be retry or abandon")

// handleAdminOutbox handles GET /api/admin/outbox: failed entries and the
// undelivered backlog.
func handleAdminOutbox(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	overview, err := projections.QueryGetOutboxOverview(r.Context(), viewerFrom(sess), stores.Outbox)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// handleAdminOutboxAction handles POST /api/admin/outbox/{id}/retry and
// POST /api/admin/outbox/{id}/abandon
func handleAdminOutboxAction(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var (
		entry outbox.Entry
		err   error
	)
	switch r.PathValue("action") {
	case outboxActionRetry:
		entry, err = opts.Processor.Retry(r.Context(), r.PathValue("id"), actorFrom(r, sess))
	case outboxActionAbandon:
		entry, err = opts.Processor.Abandon(r.Context(), r.PathValue("id"), actorFrom(r, sess))
	default:
		badRequest(w, r, errUnknownOutboxAction)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
