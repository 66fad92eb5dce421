package projections

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"refdesk/internal/adapters/storage/assignment"
	"refdesk/internal/adapters/storage/event"
	"refdesk/internal/adapters/storage/honor"
	"refdesk/internal/adapters/storage/referee"
	"refdesk/internal/adapters/transfer"
	domainEvent "refdesk/internal/domain/event"
)

// Export column sets. The leading event and referee columns match what the
// importer accepts so an export can be edited and fed back in.
var (
	EventExportColumns = []string{"title", "description", "venue", "city", "start_date", "end_date", "level",
		"referee_quota", "id", "status", "submitted_by", "decided_by", "created_at"}
	RefereeExportColumns = []string{"email", "full_name", "phone", "region", "license_level", "license_number",
		"active", "account_id", "updated_at"}
	AssignmentExportColumns = []string{"id", "event_id", "event_title", "event_start", "event_end", "referee_id",
		"referee_name", "role", "status", "assigned_by", "created_at", "responded_at"}
	HonorExportColumns = []string{"id", "event_id", "event_title", "event_start", "referee_id", "referee_name",
		"amount", "status", "note", "has_receipt", "submitted_at", "verified_by", "verified_at",
		"rejection_reason", "paid_at"}
)

// ExportQuery selects what to export.
type ExportQuery struct {
	Viewer  Viewer
	Kind    string
	Filters map[string]string // status, event_id, referee_id where the kind supports them
}

// ExportDeps holds dependencies for QueryExport.
type ExportDeps struct {
	EventStore      EventStore
	RefereeStore    RefereeStore
	AssignmentStore AssignmentStore
	HonorStore      HonorStore
}

// QueryExport builds a table of every record of one kind.
// PRE: Viewer is admin
// POST: Table.Header is the kind's export column set; rows follow the store's list order
func QueryExport(ctx context.Context, query ExportQuery, deps ExportDeps) (transfer.Table, error) {
	if !query.Viewer.IsAdmin() {
		return transfer.Table{}, ErrForbidden
	}
	f := query.Filters
	switch query.Kind {
	case transfer.KindEvents:
		return exportEvents(ctx, f, deps.EventStore)
	case transfer.KindReferees:
		return exportReferees(ctx, f, deps.RefereeStore)
	case transfer.KindAssignments:
		return exportAssignments(ctx, f, deps.AssignmentStore)
	case transfer.KindHonors:
		return exportHonors(ctx, f, deps.HonorStore)
	default:
		return transfer.Table{}, fmt.Errorf("%w: %q", transfer.ErrUnknownKind, query.Kind)
	}
}

func exportEvents(ctx context.Context, f map[string]string, store EventStore) (transfer.Table, error) {
	events, err := store.List(ctx, event.ListFilter{Status: f["status"], Level: f["level"]})
	if err != nil {
		return transfer.Table{}, fmt.Errorf("list events: %w", err)
	}
	t := transfer.Table{Header: EventExportColumns, Rows: make([][]string, 0, len(events))}
	for _, e := range events {
		t.Rows = append(t.Rows, []string{
			e.Title, e.Description, e.Venue, e.City,
			day(e.StartDate), day(e.EndDate), e.Level, strconv.Itoa(e.RefereeQuota),
			e.ID, e.Status, e.SubmittedBy, e.DecidedBy, stamp(e.CreatedAt),
		})
	}
	return t, nil
}

func exportReferees(ctx context.Context, f map[string]string, store RefereeStore) (transfer.Table, error) {
	profiles, err := store.List(ctx, referee.ListFilter{LicenseLevel: f["license_level"], Region: f["region"]})
	if err != nil {
		return transfer.Table{}, fmt.Errorf("list referees: %w", err)
	}
	t := transfer.Table{Header: RefereeExportColumns, Rows: make([][]string, 0, len(profiles))}
	for _, p := range profiles {
		t.Rows = append(t.Rows, []string{
			p.Email, p.FullName, p.Phone, p.Region, p.LicenseLevel, p.LicenseNumber,
			strconv.FormatBool(p.Active), p.AccountID, stamp(p.UpdatedAt),
		})
	}
	return t, nil
}

func exportAssignments(ctx context.Context, f map[string]string, store AssignmentStore) (transfer.Table, error) {
	details, err := store.List(ctx, assignment.ListFilter{
		EventID:   f["event_id"],
		RefereeID: f["referee_id"],
		Status:    f["status"],
	})
	if err != nil {
		return transfer.Table{}, fmt.Errorf("list assignments: %w", err)
	}
	t := transfer.Table{Header: AssignmentExportColumns, Rows: make([][]string, 0, len(details))}
	for _, d := range details {
		a := d.Assignment
		t.Rows = append(t.Rows, []string{
			a.ID, a.EventID, d.Event.Title, day(d.Event.StartDate), day(d.Event.EndDate),
			a.RefereeID, d.RefereeName, a.Role, a.Status, a.AssignedBy,
			stamp(a.CreatedAt), stamp(a.RespondedAt),
		})
	}
	return t, nil
}

func exportHonors(ctx context.Context, f map[string]string, store HonorStore) (transfer.Table, error) {
	details, err := store.List(ctx, honor.ListFilter{
		EventID:   f["event_id"],
		RefereeID: f["referee_id"],
		Status:    f["status"],
	})
	if err != nil {
		return transfer.Table{}, fmt.Errorf("list honors: %w", err)
	}
	t := transfer.Table{Header: HonorExportColumns, Rows: make([][]string, 0, len(details))}
	for _, d := range details {
		h := d.Honor
		t.Rows = append(t.Rows, []string{
			h.ID, h.EventID, d.EventTitle, d.EventStart, h.RefereeID, d.RefereeName,
			strconv.FormatInt(h.Amount, 10), h.Status, h.Note, strconv.FormatBool(h.ReceiptKey != ""),
			stamp(h.SubmittedAt), h.VerifiedBy, stamp(h.VerifiedAt), h.RejectionReason, stamp(h.PaidAt),
		})
	}
	return t, nil
}

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(domainEvent.DateLayout)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
