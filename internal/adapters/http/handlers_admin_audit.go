package web

import (
	"net/http"

	"refdesk/internal/application/listutil"
	"refdesk/internal/application/projections"
)

// handleAdminAudit handles GET /api/admin/audit
// Filters: category, action, actor_id, resource_id, from and to (YYYY-MM-DD).
// PRE: User must be authenticated as admin
func handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	page, err := projections.QueryGetAuditLog(r.Context(), projections.ListQuery{
		Viewer: viewerFrom(sess),
		Params: listutil.ParseListParams(r.URL.Query(), projections.AuditListFilterKeys),
	}, stores.Audit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
