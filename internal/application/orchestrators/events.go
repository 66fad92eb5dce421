package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"refdesk/internal/adapters/email"
	"refdesk/internal/adapters/metrics"
	"refdesk/internal/adapters/storage/account"
	assignmentstore "refdesk/internal/adapters/storage/assignment"
	domainAccount "refdesk/internal/domain/account"
	"refdesk/internal/domain/assignment"
	"refdesk/internal/domain/audit"
	"refdesk/internal/domain/event"
)

// EventStoreForWorkflow defines the event store interface needed by event workflows.
type EventStoreForWorkflow interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
	Save(ctx context.Context, e event.Event) error
}

// AccountLookup reads accounts for notification addressing.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (domainAccount.Account, error)
	List(ctx context.Context, filter account.ListFilter) ([]domainAccount.Account, error)
}

// AssignmentStoreForEvents defines the assignment operations event workflows need.
type AssignmentStoreForEvents interface {
	List(ctx context.Context, filter assignmentstore.ListFilter) ([]assignmentstore.Detail, error)
	CancelEvent(ctx context.Context, e event.Event) ([]assignmentstore.Detail, error)
}

// EventDeps holds dependencies for event workflows.
type EventDeps struct {
	EventStore      EventStoreForWorkflow
	AccountStore    AccountLookup
	AssignmentStore AssignmentStoreForEvents
	Outbox          OutboxWriter
	Audit           AuditWriter
	Metrics         *metrics.Metrics
	GenerateID      func() string
	Now             func() time.Time
}

// EventInput carries the editable fields of an event. Dates are YYYY-MM-DD.
type EventInput struct {
	Title        string
	Description  string
	Venue        string
	City         string
	StartDate    string
	EndDate      string
	Level        string
	RefereeQuota int
}

func (in EventInput) apply(e *event.Event) error {
	e.Title = strings.TrimSpace(in.Title)
	e.Description = strings.TrimSpace(in.Description)
	e.Venue = strings.TrimSpace(in.Venue)
	e.City = strings.TrimSpace(in.City)
	e.Level = in.Level
	e.RefereeQuota = in.RefereeQuota
	e.StartDate, e.EndDate = time.Time{}, time.Time{}
	if in.StartDate != "" {
		d, err := event.ParseDate(in.StartDate)
		if err != nil {
			return fmt.Errorf("%w: start date %q", event.ErrMissingDates, in.StartDate)
		}
		e.StartDate = d
	}
	if in.EndDate != "" {
		d, err := event.ParseDate(in.EndDate)
		if err != nil {
			return fmt.Errorf("%w: end date %q", event.ErrMissingDates, in.EndDate)
		}
		e.EndDate = d
	}
	return nil
}

func eventMailData(e event.Event) email.Data {
	return email.Data{
		Title: e.Title,
		Venue: e.Venue,
		Start: e.StartDate.Format(event.DateLayout),
		End:   e.EndDate.Format(event.DateLayout),
	}
}

// SubmitEventInput carries a new event submission.
type SubmitEventInput struct {
	Event EventInput
	Actor Actor
}

// ExecuteSubmitEvent records a new event awaiting approval and notifies admins.
// PRE: Actor is an organizer or admin
// POST: Event saved with status pending; admins emailed
func ExecuteSubmitEvent(ctx context.Context, input SubmitEventInput, deps EventDeps) (event.Event, error) {
	if input.Actor.Role != domainAccount.RoleOrganizer && !input.Actor.IsAdmin() {
		return event.Event{}, ErrForbidden
	}
	now := nowOr(deps.Now)
	e := event.Event{
		ID:          idOr(deps.GenerateID),
		Status:      event.StatusPending,
		SubmittedBy: input.Actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := input.Event.apply(&e); err != nil {
		return event.Event{}, err
	}
	if err := e.Validate(); err != nil {
		return event.Event{}, err
	}
	if err := deps.EventStore.Save(ctx, e); err != nil {
		return event.Event{}, fmt.Errorf("save event: %w", err)
	}

	deps.Metrics.Inc(metrics.EventSubmitted)
	data := eventMailData(e)
	data.Submitter = input.Actor.Email
	enqueueEmail(ctx, deps.Outbox, adminEmails(ctx, deps.AccountStore), email.TemplateEventSubmitted, data, now)

	slog.Info("event_event", "event", "event_submitted", "event_id", e.ID, "submitted_by", e.SubmittedBy)
	return e, nil
}

// EditEventInput carries changes to an existing event.
type EditEventInput struct {
	EventID string
	Event   EventInput
	Actor   Actor
}

// ExecuteEditEvent updates event details.
// PRE: Submitter while pending, or admin while pending/approved
// POST: Event saved with new details
// INVARIANT: Dates of an event with active assignments never change; quota never drops below assigned primaries
func ExecuteEditEvent(ctx context.Context, input EditEventInput, deps EventDeps) (event.Event, error) {
	e, err := deps.EventStore.GetByID(ctx, input.EventID)
	if err != nil {
		return event.Event{}, err
	}
	if !e.IsEditableBy(input.Actor.ID, input.Actor.IsAdmin()) {
		if e.SubmittedBy != input.Actor.ID && !input.Actor.IsAdmin() {
			return event.Event{}, ErrForbidden
		}
		return event.Event{}, event.ErrNotEditable
	}

	before := e
	if err := input.Event.apply(&e); err != nil {
		return event.Event{}, err
	}
	if err := e.Validate(); err != nil {
		return event.Event{}, err
	}

	if e.Status == event.StatusApproved {
		active, err := activeAssignments(ctx, deps.AssignmentStore, e.ID)
		if err != nil {
			return event.Event{}, err
		}
		if len(active) > 0 && (!e.StartDate.Equal(before.StartDate) || !e.EndDate.Equal(before.EndDate)) {
			return event.Event{}, ErrDatesLocked
		}
		primaries := 0
		for _, d := range active {
			if d.Assignment.Role == assignment.RolePrimary {
				primaries++
			}
		}
		if e.RefereeQuota < primaries {
			return event.Event{}, ErrQuotaBelowAssigned
		}
	}

	now := nowOr(deps.Now)
	e.UpdatedAt = now
	if err := deps.EventStore.Save(ctx, e); err != nil {
		return event.Event{}, fmt.Errorf("save event: %w", err)
	}
	if input.Actor.IsAdmin() && input.Actor.ID != e.SubmittedBy {
		recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.auditActor(), audit.CategoryEvent, audit.ActionUpdate, now).
			WithResource("event", e.ID).WithDescription("event details edited: " + e.Title))
	}
	slog.Info("event_event", "event", "event_edited", "event_id", e.ID, "actor_id", input.Actor.ID)
	return e, nil
}

func activeAssignments(ctx context.Context, store AssignmentStoreForEvents, eventID string) ([]assignmentstore.Detail, error) {
	all, err := store.List(ctx, assignmentstore.ListFilter{EventID: eventID})
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	var out []assignmentstore.Detail
	for _, d := range all {
		if d.Assignment.IsBooking() {
			out = append(out, d)
		}
	}
	return out, nil
}

// DecideEventInput carries an admin decision on a pending event.
type DecideEventInput struct {
	EventID  string
	Decision string
	Note     string
	Actor    Actor
}

// ExecuteDecideEvent approves or rejects a pending event.
// PRE: Actor is admin; event is pending
// POST: Event approved or rejected; submitter emailed; decision audited
func ExecuteDecideEvent(ctx context.Context, input DecideEventInput, deps EventDeps) (event.Event, error) {
	if !input.Actor.IsAdmin() {
		return event.Event{}, ErrForbidden
	}
	e, err := deps.EventStore.GetByID(ctx, input.EventID)
	if err != nil {
		return event.Event{}, err
	}
	now := nowOr(deps.Now)
	note := strings.TrimSpace(input.Note)
	switch input.Decision {
	case DecisionApprove:
		err = e.Approve(input.Actor.ID, note, now)
	case DecisionReject:
		err = e.Reject(input.Actor.ID, note, now)
	default:
		err = ErrInvalidDecision
	}
	if err != nil {
		return event.Event{}, err
	}
	if err := deps.EventStore.Save(ctx, e); err != nil {
		return event.Event{}, fmt.Errorf("save event: %w", err)
	}

	approved := input.Decision == DecisionApprove
	deps.Metrics.Inc(metrics.EventDecided)
	action := audit.ActionReject
	if approved {
		action = audit.ActionApprove
	}
	recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.auditActor(), audit.CategoryEvent, action, now).
		WithResource("event", e.ID).
		WithDescription(fmt.Sprintf("event %q %s", e.Title, decisionWord(approved))))

	if submitter, err := deps.AccountStore.GetByID(ctx, e.SubmittedBy); err == nil {
		data := eventMailData(e)
		data.Decision = decisionWord(approved)
		data.Note = note
		enqueueEmail(ctx, deps.Outbox, []string{submitter.Email}, email.TemplateEventDecided, data, now)
	}

	slog.Info("event_event", "event", "event_decided", "event_id", e.ID, "decision", input.Decision, "admin_id", input.Actor.ID)
	return e, nil
}

// CancelEventInput carries an event cancellation.
type CancelEventInput struct {
	EventID string
	Note    string
	Actor   Actor
}

// ExecuteCancelEvent cancels an event and every active assignment on it.
// PRE: Admin, or the submitter while the event is pending
// POST: Event cancelled; assignments cancelled; assigned referees emailed
func ExecuteCancelEvent(ctx context.Context, input CancelEventInput, deps EventDeps) (event.Event, error) {
	e, err := deps.EventStore.GetByID(ctx, input.EventID)
	if err != nil {
		return event.Event{}, err
	}
	if !input.Actor.IsAdmin() && !(e.SubmittedBy == input.Actor.ID && e.Status == event.StatusPending) {
		return event.Event{}, ErrForbidden
	}
	now := nowOr(deps.Now)
	note := strings.TrimSpace(input.Note)
	if err := e.Cancel(input.Actor.ID, note, now); err != nil {
		return event.Event{}, err
	}
	cancelled, err := deps.AssignmentStore.CancelEvent(ctx, e)
	if err != nil {
		return event.Event{}, fmt.Errorf("cancel event: %w", err)
	}

	deps.Metrics.Inc(metrics.EventCancelled)
	recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.auditActor(), audit.CategoryEvent, audit.ActionCancel, now).
		WithSeverity(audit.SeverityWarning).
		WithResource("event", e.ID).
		WithDescription(fmt.Sprintf("event %q cancelled, %d assignments released", e.Title, len(cancelled))))

	data := eventMailData(e)
	data.Note = note
	var to []string
	for _, d := range cancelled {
		to = append(to, d.RefereeEmail)
	}
	enqueueEmail(ctx, deps.Outbox, to, email.TemplateEventCancelled, data, now)

	slog.Info("event_event", "event", "event_cancelled", "event_id", e.ID, "assignments_cancelled", len(cancelled))
	return e, nil
}

// CompleteEventInput identifies an event to close.
type CompleteEventInput struct {
	EventID string
	Actor   Actor
}

// ExecuteCompleteEvent marks an approved event as completed once it has ended.
// PRE: Actor is admin; event approved; EndDate <= today
// POST: Event completed
func ExecuteCompleteEvent(ctx context.Context, input CompleteEventInput, deps EventDeps) (event.Event, error) {
	if !input.Actor.IsAdmin() {
		return event.Event{}, ErrForbidden
	}
	e, err := deps.EventStore.GetByID(ctx, input.EventID)
	if err != nil {
		return event.Event{}, err
	}
	now := nowOr(deps.Now)
	if err := e.Complete(now); err != nil {
		return event.Event{}, err
	}
	if err := deps.EventStore.Save(ctx, e); err != nil {
		return event.Event{}, fmt.Errorf("save event: %w", err)
	}
	recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.auditActor(), audit.CategoryEvent, audit.ActionUpdate, now).
		WithResource("event", e.ID).WithDescription(fmt.Sprintf("event %q completed", e.Title)))
	slog.Info("event_event", "event", "event_completed", "event_id", e.ID)
	return e, nil
}
