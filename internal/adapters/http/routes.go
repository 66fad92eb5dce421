package web

import (
	"net/http"

	"refdesk/internal/adapters/http/middleware"
)

// handle registers h under pattern and labels the request for metrics.
func handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		middleware.SetRoute(r, pattern)
		h(w, r)
	})
}

func registerRoutes(mux *http.ServeMux) {
	// Auth
	handle(mux, "POST /api/register", handleRegister)
	handle(mux, "POST /api/login", handleLogin)
	handle(mux, "POST /api/logout", handleLogout)
	handle(mux, "GET /api/me", handleMe)
	handle(mux, "POST /api/me/password", handleChangePassword)
	handle(mux, "GET /api/csrf", handleCSRFToken)

	// Accounts
	handle(mux, "GET /api/admin/accounts", handleListAccounts)
	handle(mux, "POST /api/admin/accounts/{id}/decision", handleDecideRegistration)
	handle(mux, "POST /api/admin/accounts/{id}/status", handleSetAccountStatus)
	handle(mux, "POST /api/admin/accounts/{id}/role", handleChangeRole)

	// Referees
	handle(mux, "GET /api/referees/me", handleGetOwnProfile)
	handle(mux, "PUT /api/referees/me", handleUpdateOwnProfile)
	handle(mux, "GET /api/referees", handleListReferees)
	handle(mux, "PUT /api/referees/{id}", handleUpdateReferee)

	// Events
	handle(mux, "GET /api/events", handleListEvents)
	handle(mux, "POST /api/events", handleSubmitEvent)
	handle(mux, "GET /api/events/{id}", handleGetEvent)
	handle(mux, "PUT /api/events/{id}", handleEditEvent)
	handle(mux, "POST /api/events/{id}/decision", handleDecideEvent)
	handle(mux, "POST /api/events/{id}/cancel", handleCancelEvent)
	handle(mux, "POST /api/events/{id}/complete", handleCompleteEvent)
	handle(mux, "GET /api/events/{id}/available-referees", handleAvailableReferees)
	handle(mux, "GET /api/events/{id}/assignments", handleEventAssignments)
	handle(mux, "POST /api/events/{id}/assignments", handleAssignReferee)

	// Assignments
	handle(mux, "GET /api/assignments", handleListAssignments)
	handle(mux, "POST /api/assignments/{id}/response", handleRespondAssignment)
	handle(mux, "POST /api/assignments/{id}/cancel", handleCancelAssignment)

	// Honors
	handle(mux, "GET /api/honors", handleListHonors)
	handle(mux, "POST /api/honors", handleSubmitHonor)
	handle(mux, "POST /api/honors/{id}/decision", handleDecideHonor)
	handle(mux, "POST /api/honors/{id}/paid", handleMarkHonorPaid)
	handle(mux, "GET /api/honors/{id}/receipt", handleDownloadReceipt)

	// Forum
	handle(mux, "GET /api/forum/topics", handleListTopics)
	handle(mux, "POST /api/forum/topics", handleCreateTopic)
	handle(mux, "GET /api/forum/topics/{id}", handleGetThread)
	handle(mux, "PUT /api/forum/topics/{id}", handleEditTopic)
	handle(mux, "DELETE /api/forum/topics/{id}", handleDeleteTopic)
	handle(mux, "POST /api/forum/topics/{id}/replies", handleCreateReply)
	handle(mux, "POST /api/forum/topics/{id}/moderate", handleModerateTopic)
	handle(mux, "PUT /api/forum/replies/{id}", handleEditReply)
	handle(mux, "DELETE /api/forum/replies/{id}", handleDeleteReply)
	handle(mux, "POST /api/forum/replies/{id}/moderate", handleModerateReply)

	// Analytics and data transfer
	handle(mux, "GET /api/dashboard", handleDashboard)
	handle(mux, "GET /api/admin/export/{kind}", handleExport)
	handle(mux, "POST /api/admin/import/{kind}", handleImport)

	// Admin operations
	handle(mux, "GET /api/admin/outbox", handleAdminOutbox)
	handle(mux, "POST /api/admin/outbox/{id}/{action}", handleAdminOutboxAction)
	handle(mux, "GET /api/admin/audit", handleAdminAudit)

	// Ops
	handle(mux, "GET /healthz", handleHealth)
	handle(mux, "GET /metrics", opts.Metrics.Handler().ServeHTTP)
}
