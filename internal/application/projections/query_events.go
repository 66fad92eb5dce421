package projections

import (
	"context"
	"fmt"

	"refdesk/internal/adapters/storage/assignment"
	"refdesk/internal/adapters/storage/event"
	"refdesk/internal/adapters/storage/referee"
	"refdesk/internal/application/listutil"
	domainAccount "refdesk/internal/domain/account"
	domainAssignment "refdesk/internal/domain/assignment"
	domainEvent "refdesk/internal/domain/event"
	domainReferee "refdesk/internal/domain/referee"
)

// EventListFilterKeys are the query parameters accepted by the event list.
var EventListFilterKeys = []string{"status", "level", "from", "to"}

// GetEventListQuery carries list parameters.
type GetEventListQuery struct {
	Viewer Viewer
	Params listutil.ListParams
}

// GetEventListDeps holds dependencies for QueryGetEventList.
type GetEventListDeps struct {
	EventStore EventStore
}

// QueryGetEventList pages through events visible to the viewer.
// PRE: from/to filters, when set, are YYYY-MM-DD
// POST: organizers only see their own events; referees only approved or completed ones
func QueryGetEventList(ctx context.Context, query GetEventListQuery, deps GetEventListDeps) (listutil.Page[domainEvent.Event], error) {
	f := query.Params.Filters
	filter := event.ListFilter{
		Status: f["status"],
		Level:  f["level"],
		Search: query.Params.Search,
	}
	if v := f["from"]; v != "" {
		d, err := domainEvent.ParseDate(v)
		if err != nil {
			return listutil.Page[domainEvent.Event]{}, fmt.Errorf("%w: from %q", domainEvent.ErrMissingDates, v)
		}
		filter.From = d
	}
	if v := f["to"]; v != "" {
		d, err := domainEvent.ParseDate(v)
		if err != nil {
			return listutil.Page[domainEvent.Event]{}, fmt.Errorf("%w: to %q", domainEvent.ErrMissingDates, v)
		}
		filter.To = d
	}

	switch query.Viewer.Role {
	case domainAccount.RoleAdmin:
	case domainAccount.RoleOrganizer:
		filter.SubmittedBy = query.Viewer.ID
	default:
		if filter.Status != domainEvent.StatusCompleted {
			filter.Status = domainEvent.StatusApproved
		}
	}

	total, err := deps.EventStore.Count(ctx, filter)
	if err != nil {
		return listutil.Page[domainEvent.Event]{}, err
	}
	info := listutil.NewPageInfo(query.Params.Page, query.Params.PerPage, total)
	filter.Limit, filter.Offset = info.PerPage, info.Offset()
	events, err := deps.EventStore.List(ctx, filter)
	if err != nil {
		return listutil.Page[domainEvent.Event]{}, err
	}
	return listutil.NewPage(events, info), nil
}

// GetEventDetailQuery identifies the event to show.
type GetEventDetailQuery struct {
	Viewer  Viewer
	EventID string
}

// GetEventDetailDeps holds dependencies for QueryGetEventDetail.
type GetEventDetailDeps struct {
	EventStore      EventStore
	AssignmentStore AssignmentStore
}

// EventDetail is an event with its referee crew.
type EventDetail struct {
	Event          domainEvent.Event
	Dates          []string
	Assignments    []assignment.Detail
	PrimaryFilled  int
	BackupAssigned int
}

// QueryGetEventDetail returns one event and its active assignments.
// PRE: EventID is non-empty
// POST: pending, rejected and cancelled events are visible to admins and their submitter only
func QueryGetEventDetail(ctx context.Context, query GetEventDetailQuery, deps GetEventDetailDeps) (EventDetail, error) {
	e, err := deps.EventStore.GetByID(ctx, query.EventID)
	if err != nil {
		return EventDetail{}, err
	}
	if !canViewEvent(query.Viewer, e) {
		return EventDetail{}, ErrForbidden
	}
	all, err := deps.AssignmentStore.List(ctx, assignment.ListFilter{EventID: e.ID})
	if err != nil {
		return EventDetail{}, fmt.Errorf("list assignments: %w", err)
	}

	d := EventDetail{Event: e, Dates: e.Dates(), Assignments: []assignment.Detail{}}
	for _, a := range all {
		if !a.Assignment.IsBooking() && !query.Viewer.IsAdmin() {
			continue
		}
		d.Assignments = append(d.Assignments, a)
		if !a.Assignment.IsBooking() {
			continue
		}
		if a.Assignment.Role == domainAssignment.RolePrimary {
			d.PrimaryFilled++
		} else {
			d.BackupAssigned++
		}
	}
	return d, nil
}

func canViewEvent(v Viewer, e domainEvent.Event) bool {
	if v.IsAdmin() || e.SubmittedBy == v.ID {
		return true
	}
	return e.Status == domainEvent.StatusApproved || e.Status == domainEvent.StatusCompleted
}

// GetAvailableRefereesQuery identifies the target event.
type GetAvailableRefereesQuery struct {
	Viewer  Viewer
	EventID string
}

// GetAvailableRefereesDeps holds dependencies for QueryGetAvailableReferees.
type GetAvailableRefereesDeps struct {
	EventStore      EventStore
	RefereeStore    RefereeStore
	AssignmentStore AssignmentStore
}

// ConflictedReferee is a referee already booked on one of the target dates.
type ConflictedReferee struct {
	Referee   domainReferee.Profile
	Conflicts []domainAssignment.Conflict
}

// AvailableReferees partitions active referees for an event.
type AvailableReferees struct {
	Event      domainEvent.Event
	Available  []domainReferee.Profile
	Conflicted []ConflictedReferee
	Assigned   []domainReferee.Profile // already booked on this event
}

// QueryGetAvailableReferees splits active referees into those free on every
// date of the event and those booked elsewhere on at least one date.
// PRE: Viewer is admin
// POST: every active referee appears in exactly one of Available, Conflicted or Assigned
func QueryGetAvailableReferees(ctx context.Context, query GetAvailableRefereesQuery, deps GetAvailableRefereesDeps) (AvailableReferees, error) {
	if !query.Viewer.IsAdmin() {
		return AvailableReferees{}, ErrForbidden
	}
	e, err := deps.EventStore.GetByID(ctx, query.EventID)
	if err != nil {
		return AvailableReferees{}, err
	}
	profiles, err := deps.RefereeStore.List(ctx, referee.ListFilter{ActiveOnly: true})
	if err != nil {
		return AvailableReferees{}, fmt.Errorf("list referees: %w", err)
	}
	bookings, err := deps.AssignmentStore.ListBookings(ctx, e.StartDate, e.EndDate)
	if err != nil {
		return AvailableReferees{}, fmt.Errorf("list bookings: %w", err)
	}

	onEvent := make(map[string]bool)
	for _, b := range bookings {
		if b.Event.ID == e.ID {
			onEvent[b.Assignment.RefereeID] = true
		}
	}

	out := AvailableReferees{
		Event:      e,
		Available:  []domainReferee.Profile{},
		Conflicted: []ConflictedReferee{},
		Assigned:   []domainReferee.Profile{},
	}
	byID := make(map[string]domainReferee.Profile, len(profiles))
	candidates := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if onEvent[p.AccountID] {
			out.Assigned = append(out.Assigned, p)
			continue
		}
		byID[p.AccountID] = p
		candidates = append(candidates, p.AccountID)
	}

	availability := domainAssignment.Check(e, candidates, bookings)
	for _, id := range availability.Available {
		out.Available = append(out.Available, byID[id])
	}
	for _, id := range candidates {
		if conflicts, ok := availability.Busy[id]; ok {
			out.Conflicted = append(out.Conflicted, ConflictedReferee{Referee: byID[id], Conflicts: conflicts})
		}
	}
	return out, nil
}
