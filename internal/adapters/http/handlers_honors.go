package web

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"refdesk/internal/application/listutil"
	"refdesk/internal/application/orchestrators"
	"refdesk/internal/application/projections"
	domainAccount "refdesk/internal/domain/account"
)

// receiptField is the multipart field carrying the receipt file.
const receiptField = "Receipt"

// multipartOverhead allows for form fields and part headers on top of the file.
const multipartOverhead = 1 << 20

func honorDeps() orchestrators.HonorDeps {
	return orchestrators.HonorDeps{
		HonorStore:      stores.Honors,
		AssignmentStore: stores.Assignments,
		EventStore:      stores.Events,
		AccountStore:    stores.Accounts,
		Blobs:           opts.Blobs,
		Outbox:          stores.Outbox,
		Audit:           stores.Audit,
		Metrics:         opts.Metrics,
		MaxAmount:       opts.HonorMaxAmount,
		MaxUploadBytes:  opts.MaxUploadBytes,
		Now:             now,
	}
}

// handleListHonors handles GET /api/honors?event_id=&referee_id=&status=
func handleListHonors(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireRole(w, r, domainAccount.RoleReferee)
	if !ok {
		return
	}
	page, err := projections.QueryGetHonorList(r.Context(), projections.ListQuery{
		Viewer: viewerFrom(sess),
		Params: listutil.ParseListParams(r.URL.Query(), projections.HonorListFilterKeys),
	}, stores.Honors)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleSubmitHonor handles POST /api/honors. The body is either JSON
// (no receipt) or multipart/form-data with EventID, Amount, Note and an
// optional Receipt file.
func handleSubmitHonor(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireRole(w, r, domainAccount.RoleReferee)
	if !ok {
		return
	}
	input := orchestrators.SubmitHonorInput{Actor: actorFrom(r, sess)}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, opts.MaxUploadBytes+multipartOverhead)
		if err := r.ParseMultipartForm(multipartOverhead); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, r, orchestrators.ErrReceiptTooLarge)
				return
			}
			badRequest(w, r, err)
			return
		}
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				slog.Warn("multipart_cleanup_failed", "error", err)
			}
		}()
		amount, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("Amount")), 10, 64)
		if err != nil {
			badRequest(w, r, fmt.Errorf("amount must be a whole number: %w", err))
			return
		}
		input.EventID = r.FormValue("EventID")
		input.Amount = amount
		input.Note = r.FormValue("Note")

		file, header, err := r.FormFile(receiptField)
		switch {
		case err == nil:
			defer file.Close()
			input.Receipt = &orchestrators.Receipt{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				Body:        file,
			}
		case errors.Is(err, http.ErrMissingFile):
		default:
			badRequest(w, r, err)
			return
		}
	} else {
		var body struct {
			EventID string
			Amount  int64
			Note    string
		}
		if err := strictDecode(r, &body); err != nil {
			badRequest(w, r, err)
			return
		}
		input.EventID, input.Amount, input.Note = body.EventID, body.Amount, body.Note
	}

	h, err := orchestrators.ExecuteSubmitHonor(r.Context(), input, honorDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

// handleDecideHonor handles POST /api/honors/{id}/decision
func handleDecideHonor(w http.ResponseWriter, r *http.Request) {
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
	h, err := orchestrators.ExecuteDecideHonor(r.Context(), orchestrators.DecideHonorInput{
		HonorID:  r.PathValue("id"),
		Decision: input.Decision,
		Reason:   input.Reason,
		Actor:    actorFrom(r, sess),
	}, honorDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// handleMarkHonorPaid handles POST /api/honors/{id}/paid
func handleMarkHonorPaid(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	h, err := orchestrators.ExecuteMarkHonorPaid(r.Context(), orchestrators.MarkHonorPaidInput{
		HonorID: r.PathValue("id"),
		Actor:   actorFrom(r, sess),
	}, honorDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// handleDownloadReceipt handles GET /api/honors/{id}/receipt
func handleDownloadReceipt(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireRole(w, r, domainAccount.RoleReferee)
	if !ok {
		return
	}
	rc, info, err := orchestrators.ExecuteOpenReceipt(r.Context(), orchestrators.OpenReceiptInput{
		HonorID: r.PathValue("id"),
		Actor:   actorFrom(r, sess),
	}, honorDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(info.Key)}))
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("honor_event", "event", "receipt_stream_failed", "key", info.Key, "error", err)
	}
}
