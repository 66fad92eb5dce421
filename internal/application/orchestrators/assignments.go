package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"refdesk/internal/adapters/email"
	"refdesk/internal/adapters/metrics"
	assignmentstore "refdesk/internal/adapters/storage/assignment"
	"refdesk/internal/domain/assignment"
	"refdesk/internal/domain/audit"
	"refdesk/internal/domain/event"
	"refdesk/internal/domain/referee"
)

// AssignmentStoreForWorkflow defines the assignment store interface needed by assignment workflows.
type AssignmentStoreForWorkflow interface {
	GetByID(ctx context.Context, id string) (assignmentstore.Detail, error)
	Create(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error)
	Save(ctx context.Context, a assignment.Assignment) error
	ListBookings(ctx context.Context, from, to time.Time) ([]assignment.Booking, error)
}

// RefereeLookup reads referee profiles.
type RefereeLookup interface {
	GetByAccountID(ctx context.Context, accountID string) (referee.Profile, error)
}

// EventLookup reads events.
type EventLookup interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
}

// AssignmentDeps holds dependencies for assignment workflows.
type AssignmentDeps struct {
	EventStore      EventLookup
	RefereeStore    RefereeLookup
	AccountStore    AccountLookup
	AssignmentStore AssignmentStoreForWorkflow
	Outbox          OutboxWriter
	Audit           AuditWriter
	Metrics         *metrics.Metrics
	GenerateID      func() string
	Now             func() time.Time
}

// AssignRefereeInput carries an assignment request.
type AssignRefereeInput struct {
	EventID   string
	RefereeID string
	Role      string
	Note      string
	Actor     Actor
}

// ExecuteAssignReferee books a referee onto an approved event.
// PRE: Actor is admin; event approved; referee profile and account active
// POST: Assignment pending; referee emailed
// INVARIANT: A referee is never booked on two events sharing a date; primaries never exceed RefereeQuota
func ExecuteAssignReferee(ctx context.Context, input AssignRefereeInput, deps AssignmentDeps) (assignment.Assignment, error) {
	if !input.Actor.IsAdmin() {
		return assignment.Assignment{}, ErrForbidden
	}
	e, err := deps.EventStore.GetByID(ctx, input.EventID)
	if err != nil {
		return assignment.Assignment{}, err
	}
	if !e.AcceptsAssignments() {
		return assignment.Assignment{}, event.ErrNotApproved
	}

	profile, err := deps.RefereeStore.GetByAccountID(ctx, input.RefereeID)
	if err != nil {
		return assignment.Assignment{}, err
	}
	acct, err := deps.AccountStore.GetByID(ctx, input.RefereeID)
	if err != nil {
		return assignment.Assignment{}, err
	}
	if !profile.CanOfficiate() || !acct.IsActive() {
		return assignment.Assignment{}, ErrRefereeUnavailable
	}

	// Early check for a descriptive error; Create re-checks under the write lock.
	bookings, err := deps.AssignmentStore.ListBookings(ctx, e.StartDate, e.EndDate)
	if err != nil {
		return assignment.Assignment{}, fmt.Errorf("list bookings: %w", err)
	}
	if avail := assignment.Check(e, []string{input.RefereeID}, bookings); len(avail.Available) == 0 {
		deps.Metrics.Inc(metrics.AssignmentConflict)
		return assignment.Assignment{}, describeConflict(avail.Busy[input.RefereeID])
	}

	now := nowOr(deps.Now)
	role := input.Role
	if role == "" {
		role = assignment.RolePrimary
	}
	a := assignment.Assignment{
		ID:         idOr(deps.GenerateID),
		EventID:    e.ID,
		RefereeID:  input.RefereeID,
		Role:       role,
		Status:     assignment.StatusPending,
		AssignedBy: input.Actor.ID,
		Note:       strings.TrimSpace(input.Note),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := a.Validate(); err != nil {
		return assignment.Assignment{}, err
	}
	a, err = deps.AssignmentStore.Create(ctx, a)
	if err != nil {
		if errors.Is(err, assignment.ErrScheduleConflict) {
			deps.Metrics.Inc(metrics.AssignmentConflict)
		}
		return assignment.Assignment{}, err
	}

	deps.Metrics.Inc(metrics.AssignmentCreated)
	recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.auditActor(), audit.CategoryAssignment, audit.ActionCreate, now).
		WithResource("assignment", a.ID).
		WithDescription(fmt.Sprintf("%s assigned as %s to %q", profile.FullName, a.Role, e.Title)))
	data := eventMailData(e)
	data.Role = a.Role
	enqueueEmail(ctx, deps.Outbox, []string{acct.Email}, email.TemplateAssignmentCreated, data, now)

	slog.Info("assignment_event", "event", "referee_assigned", "assignment_id", a.ID, "event_id", e.ID, "referee_id", a.RefereeID, "role", a.Role)
	return a, nil
}

func describeConflict(conflicts []assignment.Conflict) error {
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].EventID < conflicts[j].EventID })
	parts := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		parts = append(parts, fmt.Sprintf("%s (%s)", c.EventTitle, strings.Join(c.Dates, ", ")))
	}
	return fmt.Errorf("%w: %s", assignment.ErrScheduleConflict, strings.Join(parts, "; "))
}

// RespondAssignmentInput carries a referee's answer to an assignment.
type RespondAssignmentInput struct {
	AssignmentID string
	Response     string
	Actor        Actor
}

// ExecuteRespondAssignment records a confirm or decline from the assigned referee.
// PRE: Actor is the assigned referee; assignment pending
// POST: Assignment confirmed or declined; a decline frees the referee's dates
func ExecuteRespondAssignment(ctx context.Context, input RespondAssignmentInput, deps AssignmentDeps) (assignment.Assignment, error) {
	d, err := deps.AssignmentStore.GetByID(ctx, input.AssignmentID)
	if err != nil {
		return assignment.Assignment{}, err
	}
	a := d.Assignment
	now := nowOr(deps.Now)
	if err := a.Respond(input.Actor.ID, input.Response, now); err != nil {
		return assignment.Assignment{}, err
	}
	if err := deps.AssignmentStore.Save(ctx, a); err != nil {
		return assignment.Assignment{}, fmt.Errorf("save assignment: %w", err)
	}
	deps.Metrics.Inc(metrics.AssignmentResponded)
	slog.Info("assignment_event", "event", "assignment_"+a.Status, "assignment_id", a.ID, "event_id", a.EventID, "referee_id", a.RefereeID)
	return a, nil
}

// CancelAssignmentInput identifies an assignment to cancel.
type CancelAssignmentInput struct {
	AssignmentID string
	Actor        Actor
}

// ExecuteCancelAssignment cancels a pending or confirmed assignment.
// PRE: Actor is admin
// POST: Assignment cancelled; referee emailed; change audited
func ExecuteCancelAssignment(ctx context.Context, input CancelAssignmentInput, deps AssignmentDeps) (assignment.Assignment, error) {
	if !input.Actor.IsAdmin() {
		return assignment.Assignment{}, ErrForbidden
	}
	d, err := deps.AssignmentStore.GetByID(ctx, input.AssignmentID)
	if err != nil {
		return assignment.Assignment{}, err
	}
	a := d.Assignment
	now := nowOr(deps.Now)
	if err := a.Cancel(now); err != nil {
		return assignment.Assignment{}, err
	}
	if err := deps.AssignmentStore.Save(ctx, a); err != nil {
		return assignment.Assignment{}, fmt.Errorf("save assignment: %w", err)
	}

	recordAudit(ctx, deps.Audit, audit.NewEvent(input.Actor.auditActor(), audit.CategoryAssignment, audit.ActionCancel, now).
		WithResource("assignment", a.ID).
		WithDescription(fmt.Sprintf("assignment of %s to %q cancelled", d.RefereeName, d.Event.Title)))
	enqueueEmail(ctx, deps.Outbox, []string{d.RefereeEmail}, email.TemplateAssignmentCancelled, eventMailData(d.Event), now)

	slog.Info("assignment_event", "event", "assignment_cancelled", "assignment_id", a.ID, "admin_id", input.Actor.ID)
	return a, nil
}
