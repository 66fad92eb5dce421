package projections

import (
	"context"
	"fmt"
	"time"

	"refdesk/internal/adapters/storage/assignment"
	"refdesk/internal/adapters/storage/event"
	"refdesk/internal/adapters/storage/honor"
	domainAccount "refdesk/internal/domain/account"
	domainAssignment "refdesk/internal/domain/assignment"
	domainEvent "refdesk/internal/domain/event"
	domainHonor "refdesk/internal/domain/honor"
	domainReferee "refdesk/internal/domain/referee"
)

// Dashboard sizing.
const (
	ChartMonths      = 12
	TopRefereeCount  = 5
	UpcomingListSize = 10
)

// MonthCount is one point of a monthly chart series.
type MonthCount struct {
	Month string // YYYY-MM
	Count int
}

// AdminDashboard carries federation-wide counts for admins.
type AdminDashboard struct {
	PendingRegistrations int
	PendingEvents        int
	SubmittedHonors      int
	UndeliveredMail      int
	FailedMail           int
	AccountsByStatus     map[string]int
	EventsByStatus       map[string]int
	AssignmentsByStatus  map[string]int
	HonorTotals          map[string]honor.Total
	EventsPerMonth       []MonthCount // oldest month first, current month last
	TopReferees          []assignment.RefereeCount
}

// RefereeDashboard carries a referee's own duties and claims.
type RefereeDashboard struct {
	Profile          domainReferee.Profile
	Upcoming         []assignment.Detail
	PendingResponses int
	HonorTotals      map[string]honor.Total
	ClaimedAmount    int64 // verified plus paid
}

// OrganizerDashboard carries an organizer's own events.
type OrganizerDashboard struct {
	EventsByStatus map[string]int
	Upcoming       []domainEvent.Event
}

// GetDashboardQuery carries input for the dashboard projection.
type GetDashboardQuery struct {
	Viewer Viewer
	Now    time.Time
}

// GetDashboardDeps holds dependencies for the dashboard projection.
type GetDashboardDeps struct {
	AccountStore    AccountStore
	RefereeStore    RefereeStore
	EventStore      EventStore
	AssignmentStore AssignmentStore
	HonorStore      HonorStore
	OutboxStore     OutboxStore // optional: nil skips mail counts
}

// GetDashboardResult carries the dashboard for the viewer's role; exactly one
// section is set.
type GetDashboardResult struct {
	Role      string
	Admin     *AdminDashboard     `json:",omitempty"`
	Referee   *RefereeDashboard   `json:",omitempty"`
	Organizer *OrganizerDashboard `json:",omitempty"`
}

// QueryGetDashboard builds the role-specific dashboard.
// PRE: Viewer.Role is admin, referee or organizer
// POST: Result has the section matching the role
func QueryGetDashboard(ctx context.Context, query GetDashboardQuery, deps GetDashboardDeps) (GetDashboardResult, error) {
	now := query.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	result := GetDashboardResult{Role: query.Viewer.Role}

	switch query.Viewer.Role {
	case domainAccount.RoleAdmin:
		d, err := adminDashboard(ctx, now, deps)
		if err != nil {
			return GetDashboardResult{}, err
		}
		result.Admin = &d
	case domainAccount.RoleReferee:
		d, err := refereeDashboard(ctx, query.Viewer.ID, now, deps)
		if err != nil {
			return GetDashboardResult{}, err
		}
		result.Referee = &d
	case domainAccount.RoleOrganizer:
		d, err := organizerDashboard(ctx, query.Viewer.ID, now, deps)
		if err != nil {
			return GetDashboardResult{}, err
		}
		result.Organizer = &d
	default:
		return GetDashboardResult{}, ErrForbidden
	}
	return result, nil
}

func adminDashboard(ctx context.Context, now time.Time, deps GetDashboardDeps) (AdminDashboard, error) {
	var d AdminDashboard
	var err error

	if d.AccountsByStatus, err = deps.AccountStore.CountByStatus(ctx); err != nil {
		return d, fmt.Errorf("count accounts: %w", err)
	}
	if d.EventsByStatus, err = deps.EventStore.CountByStatus(ctx, ""); err != nil {
		return d, fmt.Errorf("count events: %w", err)
	}
	if d.AssignmentsByStatus, err = deps.AssignmentStore.CountByStatus(ctx); err != nil {
		return d, fmt.Errorf("count assignments: %w", err)
	}
	if d.HonorTotals, err = deps.HonorStore.Totals(ctx, ""); err != nil {
		return d, fmt.Errorf("honor totals: %w", err)
	}
	d.PendingRegistrations = d.AccountsByStatus[domainAccount.StatusPendingApproval]
	d.PendingEvents = d.EventsByStatus[domainEvent.StatusPending]
	d.SubmittedHonors = d.HonorTotals[domainHonor.StatusSubmitted].Count

	from := MonthStart(now).AddDate(0, -(ChartMonths - 1), 0)
	byMonth, err := deps.EventStore.CountByMonth(ctx, from)
	if err != nil {
		return d, fmt.Errorf("count events by month: %w", err)
	}
	d.EventsPerMonth = MonthSeries(from, ChartMonths, byMonth)

	if d.TopReferees, err = deps.AssignmentStore.TopReferees(ctx, TopRefereeCount); err != nil {
		return d, fmt.Errorf("top referees: %w", err)
	}

	if deps.OutboxStore != nil {
		if d.UndeliveredMail, err = deps.OutboxStore.CountUndelivered(ctx); err != nil {
			return d, fmt.Errorf("count outbox: %w", err)
		}
		failed, err := deps.OutboxStore.ListFailed(ctx, 100)
		if err != nil {
			return d, fmt.Errorf("list failed outbox: %w", err)
		}
		d.FailedMail = len(failed)
	}
	return d, nil
}

func refereeDashboard(ctx context.Context, refereeID string, now time.Time, deps GetDashboardDeps) (RefereeDashboard, error) {
	var d RefereeDashboard
	profile, err := deps.RefereeStore.GetByAccountID(ctx, refereeID)
	if err != nil {
		return d, err
	}
	d.Profile = profile

	upcoming, err := deps.AssignmentStore.List(ctx, assignment.ListFilter{
		RefereeID: refereeID,
		From:      dateOnly(now),
	})
	if err != nil {
		return d, fmt.Errorf("list assignments: %w", err)
	}
	for _, a := range upcoming {
		if !a.Assignment.IsBooking() || !a.Event.BooksReferees() {
			continue
		}
		if a.Assignment.Status == domainAssignment.StatusPending {
			d.PendingResponses++
		}
		if len(d.Upcoming) < UpcomingListSize {
			d.Upcoming = append(d.Upcoming, a)
		}
	}

	if d.HonorTotals, err = deps.HonorStore.Totals(ctx, refereeID); err != nil {
		return d, fmt.Errorf("honor totals: %w", err)
	}
	d.ClaimedAmount = d.HonorTotals[domainHonor.StatusVerified].Amount + d.HonorTotals[domainHonor.StatusPaid].Amount
	return d, nil
}

func organizerDashboard(ctx context.Context, organizerID string, now time.Time, deps GetDashboardDeps) (OrganizerDashboard, error) {
	var d OrganizerDashboard
	var err error
	if d.EventsByStatus, err = deps.EventStore.CountByStatus(ctx, organizerID); err != nil {
		return d, fmt.Errorf("count events: %w", err)
	}
	if d.Upcoming, err = deps.EventStore.List(ctx, event.ListFilter{
		SubmittedBy: organizerID,
		From:        dateOnly(now),
		Limit:       UpcomingListSize,
	}); err != nil {
		return d, fmt.Errorf("list events: %w", err)
	}
	return d, nil
}

// MonthStart returns midnight UTC on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthSeries expands sparse month counts into n consecutive months from from,
// filling gaps with zero.
func MonthSeries(from time.Time, n int, counts map[string]int) []MonthCount {
	out := make([]MonthCount, 0, n)
	for i := 0; i < n; i++ {
		key := from.AddDate(0, i, 0).Format("2006-01")
		out = append(out, MonthCount{Month: key, Count: counts[key]})
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
