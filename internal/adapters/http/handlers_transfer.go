package web

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"refdesk/internal/adapters/i18n"
	"refdesk/internal/adapters/transfer"
	"refdesk/internal/application/orchestrators"
	"refdesk/internal/application/projections"
)

// importFileField is the multipart field carrying an import file.
const importFileField = "File"

// exportFilterKeys are passed through to the export projection.
var exportFilterKeys = []string{"status", "event_id", "referee_id"}

// handleDashboard handles GET /api/dashboard
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	result, err := projections.QueryGetDashboard(r.Context(), projections.GetDashboardQuery{
		Viewer: viewerFrom(sess),
		Now:    now(),
	}, projections.GetDashboardDeps{
		AccountStore:    stores.Accounts,
		RefereeStore:    stores.Referees,
		EventStore:      stores.Events,
		AssignmentStore: stores.Assignments,
		HonorStore:      stores.Honors,
		OutboxStore:     stores.Outbox,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func formatParam(r *http.Request) string {
	return strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
}

// handleExport handles GET /api/admin/export/{kind}?format=csv|json
func handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	format := formatParam(r)
	if format == "" {
		format = transfer.FormatCSV
	}
	if format != transfer.FormatCSV && format != transfer.FormatJSON {
		writeError(w, r, transfer.ErrUnknownFormat)
		return
	}

	filters := map[string]string{}
	for _, k := range exportFilterKeys {
		if v := strings.TrimSpace(r.URL.Query().Get(k)); v != "" {
			filters[k] = v
		}
	}
	kind := r.PathValue("kind")
	table, err := projections.QueryExport(r.Context(), projections.ExportQuery{
		Viewer:  viewerFrom(sess),
		Kind:    kind,
		Filters: filters,
	}, projections.ExportDeps{
		EventStore:      stores.Events,
		RefereeStore:    stores.Referees,
		AssignmentStore: stores.Assignments,
		HonorStore:      stores.Honors,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("%s-%s.%s", kind, now().Format("20060102"), format)
	w.Header().Set("Content-Type", transfer.ContentType(format))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	if err := transfer.Write(w, format, table); err != nil {
		slog.Warn("transfer_event", "event", "export_write_failed", "kind", kind, "error", err)
		return
	}
	slog.Info("transfer_event", "event", "exported", "kind", kind, "format", format, "rows", len(table.Rows), "actor_id", sess.AccountID)
}

// handleImport handles POST /api/admin/import/{kind}?format=&dry_run=
// The file arrives either as the multipart field File or as the raw body.
func handleImport(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, opts.MaxUploadBytes+multipartOverhead)
	format := formatParam(r)

	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(multipartOverhead); err != nil {
			importReadError(w, r, err)
			return
		}
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				slog.Warn("multipart_cleanup_failed", "error", err)
			}
		}()
		file, header, err := r.FormFile(importFileField)
		if err != nil {
			badRequest(w, r, err)
			return
		}
		defer file.Close()
		body = file
		if format == "" {
			format = formatFromName(header.Filename)
		}
	}
	if format == "" {
		format = transfer.FormatCSV
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			format = transfer.FormatJSON
		}
	}

	result, err := orchestrators.ExecuteImport(r.Context(), orchestrators.ImportInput{
		Kind:   r.PathValue("kind"),
		Format: format,
		Reader: body,
		DryRun: queryBool(r, "dry_run"),
		Actor:  actorFrom(r, sess),
	}, orchestrators.ImportDeps{
		EventStore:   stores.Events,
		AccountStore: stores.Accounts,
		RefereeStore: stores.Referees,
		Audit:        stores.Audit,
		Metrics:      opts.Metrics,
		Now:          now,
	})
	if err != nil {
		importReadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func importReadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeStatus(w, r, http.StatusRequestEntityTooLarge, i18n.KeyValidation, err)
		return
	}
	writeError(w, r, err)
}

func formatFromName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return transfer.FormatJSON
	case ".csv":
		return transfer.FormatCSV
	}
	return ""
}
