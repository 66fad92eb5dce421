package orchestrators

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"refdesk/internal/adapters/metrics"
	"refdesk/internal/adapters/transfer"
	domainAccount "refdesk/internal/domain/account"
	"refdesk/internal/domain/audit"
	"refdesk/internal/domain/event"
	"refdesk/internal/domain/referee"
)

// Import and export kinds.
const (
	KindEvents      = transfer.KindEvents
	KindReferees    = transfer.KindReferees
	KindAssignments = transfer.KindAssignments
	KindHonors      = transfer.KindHonors
)

// Columns accepted by each import kind.
var (
	EventImportColumns   = []string{"title", "description", "venue", "city", "start_date", "end_date", "level", "referee_quota"}
	RefereeImportColumns = []string{"email", "full_name", "phone", "region", "license_level", "license_number", "active"}
)

// ImportInput carries an uploaded import file and its options.
type ImportInput struct {
	Kind   string // KindEvents or KindReferees
	Format string // transfer.FormatCSV or transfer.FormatJSON
	Reader io.Reader
	DryRun bool
	Actor  Actor
}

// ImportRowError describes a validation or processing error for a single row.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult holds aggregate counts and per-row errors from an import run.
type ImportResult struct {
	Kind    string           `json:"kind"`
	DryRun  bool             `json:"dry_run"`
	Total   int              `json:"total"`
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Errors  []ImportRowError `json:"errors"`
	Unknown []string         `json:"unknown_columns"`
}

// EventSaver persists events.
type EventSaver interface {
	Save(ctx context.Context, e event.Event) error
}

// AccountStoreForImport looks accounts up by email and saves name changes.
type AccountStoreForImport interface {
	GetByEmail(ctx context.Context, email string) (domainAccount.Account, error)
	Save(ctx context.Context, a domainAccount.Account) error
}

// ImportDeps holds dependencies for the import orchestrator.
type ImportDeps struct {
	EventStore   EventSaver
	AccountStore AccountStoreForImport
	RefereeStore RefereeProfileStore
	Audit        AuditWriter
	Metrics      *metrics.Metrics
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteImport creates approved events or updates referee profiles from a CSV or JSON file.
// PRE: Actor is admin; Kind is events or referees
// POST: Valid rows are written unless DryRun; invalid rows are reported by row number
// INVARIANT: A failing row never prevents later rows from importing
func ExecuteImport(ctx context.Context, input ImportInput, deps ImportDeps) (ImportResult, error) {
	if !input.Actor.IsAdmin() {
		return ImportResult{}, ErrForbidden
	}
	var (
		known []string
		apply func(context.Context, transfer.Record, *ImportResult, time.Time) error
	)
	switch input.Kind {
	case KindEvents:
		known = EventImportColumns
		apply = func(ctx context.Context, r transfer.Record, res *ImportResult, now time.Time) error {
			return importEvent(ctx, r, res, input, deps, now)
		}
	case KindReferees:
		known = RefereeImportColumns
		apply = func(ctx context.Context, r transfer.Record, res *ImportResult, now time.Time) error {
			return importReferee(ctx, r, res, input, deps, now)
		}
	default:
		return ImportResult{}, fmt.Errorf("%w: %q", ErrUnknownKind, input.Kind)
	}
	if input.Format != transfer.FormatCSV && input.Format != transfer.FormatJSON {
		return ImportResult{}, ErrUnknownFormat
	}

	header, records, err := transfer.Read(input.Reader, input.Format)
	if err != nil {
		return ImportResult{}, err
	}
	if len(records) == 0 {
		return ImportResult{}, ErrEmptyImport
	}

	now := nowOr(deps.Now)
	result := ImportResult{
		Kind:    input.Kind,
		DryRun:  input.DryRun,
		Unknown: transfer.Unknown(header, known...),
		Errors:  []ImportRowError{},
	}
	for _, r := range records {
		result.Total++
		if err := apply(ctx, r, &result, now); err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: r.Line, Message: err.Error()})
		}
	}

	if !input.DryRun {
		deps.Metrics.Add(metrics.RowsImported, result.Created+result.Updated)
		recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.auditActor(), audit.CategoryTransfer, audit.ActionImport, now).
			WithResource("import", input.Kind).
			WithDescription(fmt.Sprintf("imported %s: %d created, %d updated, %d errors",
				input.Kind, result.Created, result.Updated, len(result.Errors))))
	}
	slog.Info("transfer_event", "event", "import_finished",
		"kind", input.Kind,
		"admin_id", input.Actor.ID,
		"dry_run", input.DryRun,
		"total", result.Total,
		"created", result.Created,
		"updated", result.Updated,
		"errors", len(result.Errors),
		"unknown_columns", len(result.Unknown),
	)
	return result, nil
}

func importEvent(ctx context.Context, r transfer.Record, res *ImportResult, input ImportInput, deps ImportDeps, now time.Time) error {
	in := EventInput{
		Title:       r.Get("title"),
		Description: r.Get("description"),
		Venue:       r.Get("venue"),
		City:        r.Get("city"),
		StartDate:   r.Get("start_date"),
		EndDate:     r.Get("end_date"),
		Level:       r.Get("level"),
	}
	if in.Level == "" {
		in.Level = event.LevelLocal
	}
	in.RefereeQuota = 1
	if q := r.Get("referee_quota"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			return event.ErrInvalidQuota
		}
		in.RefereeQuota = n
	}

	e := event.Event{
		ID:           idOr(deps.GenerateID),
		Status:       event.StatusApproved,
		SubmittedBy:  input.Actor.ID,
		DecidedBy:    input.Actor.ID,
		DecidedAt:    now,
		DecisionNote: "imported",
		CreatedAt:    now,
	}
	if err := in.apply(&e); err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if !input.DryRun {
		if err := deps.EventStore.Save(ctx, e); err != nil {
			slog.Error("transfer_event", "event", "import_save_failed", "kind", KindEvents, "row", r.Line, "error", err)
			return fmt.Errorf("save failed: %w", err)
		}
	}
	res.Created++
	return nil
}

func importReferee(ctx context.Context, r transfer.Record, res *ImportResult, input ImportInput, deps ImportDeps, now time.Time) error {
	addr := domainAccount.NormalizeEmail(r.Get("email"))
	if addr == "" {
		return domainAccount.ErrEmptyEmail
	}
	acct, err := deps.AccountStore.GetByEmail(ctx, addr)
	if err != nil {
		return err
	}
	if acct.Role != domainAccount.RoleReferee {
		return fmt.Errorf("%s: %w", addr, errNotReferee)
	}
	p, err := deps.RefereeStore.GetByAccountID(ctx, acct.ID)
	if err != nil {
		return err
	}

	set := func(col string, dst *string) {
		if v := r.Get(col); v != "" {
			*dst = v
		}
	}
	set("full_name", &p.FullName)
	set("phone", &p.Phone)
	set("region", &p.Region)
	set("license_level", &p.LicenseLevel)
	set("license_number", &p.LicenseNumber)
	if v := r.Get("active"); v != "" {
		active, err := transfer.ParseBool(v)
		if err != nil {
			return fmt.Errorf("active: %w", err)
		}
		p.Active = active
	}
	if rank := referee.LicenseRank(p.LicenseLevel); rank >= 0 {
		p.LicenseLevel = referee.ValidLicenseLevels[rank]
	}
	p.UpdatedAt = now
	if err := p.Validate(); err != nil {
		return err
	}
	accountChanged := acct.FullName != p.FullName || acct.Phone != p.Phone
	acct.FullName, acct.Phone = p.FullName, p.Phone
	if err := acct.Validate(); err != nil {
		return err
	}
	if !input.DryRun {
		if accountChanged {
			if err := deps.AccountStore.Save(ctx, acct); err != nil {
				slog.Error("transfer_event", "event", "import_save_failed", "kind", KindReferees, "row", r.Line, "error", err)
				return fmt.Errorf("save failed: %w", err)
			}
		}
		if err := deps.RefereeStore.Save(ctx, p); err != nil {
			slog.Error("transfer_event", "event", "import_save_failed", "kind", KindReferees, "row", r.Line, "error", err)
			return fmt.Errorf("save failed: %w", err)
		}
	}
	res.Updated++
	return nil
}
