package projections

import (
	"context"
	"fmt"
	"time"

	"refdesk/internal/adapters/storage/account"
	"refdesk/internal/adapters/storage/assignment"
	storeAudit "refdesk/internal/adapters/storage/audit"
	"refdesk/internal/adapters/storage/honor"
	"refdesk/internal/adapters/storage/referee"
	"refdesk/internal/application/listutil"
	domainAccount "refdesk/internal/domain/account"
	domainAudit "refdesk/internal/domain/audit"
	domainOutbox "refdesk/internal/domain/outbox"
	domainReferee "refdesk/internal/domain/referee"
)

// Filter keys accepted by each list.
var (
	AssignmentListFilterKeys = []string{"event_id", "referee_id", "status"}
	HonorListFilterKeys      = []string{"event_id", "referee_id", "status"}
	RefereeListFilterKeys    = []string{"license_level", "region", "active"}
	AccountListFilterKeys    = []string{"role", "status"}
	AuditListFilterKeys      = []string{"category", "action", "actor_id", "resource_id", "from", "to"}
)

// ListQuery carries the viewer and parsed list parameters.
type ListQuery struct {
	Viewer Viewer
	Params listutil.ListParams
}

// QueryGetAssignmentList pages through assignments.
// POST: non-admins only see their own assignments
func QueryGetAssignmentList(ctx context.Context, query ListQuery, store AssignmentStore) (listutil.Page[assignment.Detail], error) {
	f := query.Params.Filters
	filter := assignment.ListFilter{
		EventID:   f["event_id"],
		RefereeID: f["referee_id"],
		Status:    f["status"],
	}
	if !query.Viewer.IsAdmin() {
		filter.RefereeID = query.Viewer.ID
	}
	total, err := store.Count(ctx, filter)
	if err != nil {
		return listutil.Page[assignment.Detail]{}, err
	}
	info := listutil.NewPageInfo(query.Params.Page, query.Params.PerPage, total)
	filter.Limit, filter.Offset = info.PerPage, info.Offset()
	items, err := store.List(ctx, filter)
	if err != nil {
		return listutil.Page[assignment.Detail]{}, err
	}
	return listutil.NewPage(items, info), nil
}

// QueryGetHonorList pages through honors.
// POST: non-admins only see their own honors
func QueryGetHonorList(ctx context.Context, query ListQuery, store HonorStore) (listutil.Page[honor.Detail], error) {
	f := query.Params.Filters
	filter := honor.ListFilter{
		EventID:   f["event_id"],
		RefereeID: f["referee_id"],
		Status:    f["status"],
	}
	if !query.Viewer.IsAdmin() {
		filter.RefereeID = query.Viewer.ID
	}
	total, err := store.Count(ctx, filter)
	if err != nil {
		return listutil.Page[honor.Detail]{}, err
	}
	info := listutil.NewPageInfo(query.Params.Page, query.Params.PerPage, total)
	filter.Limit, filter.Offset = info.PerPage, info.Offset()
	items, err := store.List(ctx, filter)
	if err != nil {
		return listutil.Page[honor.Detail]{}, err
	}
	return listutil.NewPage(items, info), nil
}

// QueryGetRefereeList pages through referee profiles.
// PRE: Viewer is admin
func QueryGetRefereeList(ctx context.Context, query ListQuery, store RefereeStore) (listutil.Page[domainReferee.Profile], error) {
	if !query.Viewer.IsAdmin() {
		return listutil.Page[domainReferee.Profile]{}, ErrForbidden
	}
	f := query.Params.Filters
	filter := referee.ListFilter{
		Search:       query.Params.Search,
		LicenseLevel: f["license_level"],
		Region:       f["region"],
		ActiveOnly:   f["active"] == "true" || f["active"] == "1",
	}
	total, err := store.Count(ctx, filter)
	if err != nil {
		return listutil.Page[domainReferee.Profile]{}, err
	}
	info := listutil.NewPageInfo(query.Params.Page, query.Params.PerPage, total)
	filter.Limit, filter.Offset = info.PerPage, info.Offset()
	items, err := store.List(ctx, filter)
	if err != nil {
		return listutil.Page[domainReferee.Profile]{}, err
	}
	return listutil.NewPage(items, info), nil
}

// QueryGetAccountList pages through accounts, e.g. the pending registration queue.
// PRE: Viewer is admin
func QueryGetAccountList(ctx context.Context, query ListQuery, store AccountStore) (listutil.Page[domainAccount.Account], error) {
	if !query.Viewer.IsAdmin() {
		return listutil.Page[domainAccount.Account]{}, ErrForbidden
	}
	f := query.Params.Filters
	filter := account.ListFilter{
		Role:   f["role"],
		Status: f["status"],
		Search: query.Params.Search,
	}
	total, err := store.Count(ctx, filter)
	if err != nil {
		return listutil.Page[domainAccount.Account]{}, err
	}
	info := listutil.NewPageInfo(query.Params.Page, query.Params.PerPage, total)
	filter.Limit, filter.Offset = info.PerPage, info.Offset()
	items, err := store.List(ctx, filter)
	if err != nil {
		return listutil.Page[domainAccount.Account]{}, err
	}
	return listutil.NewPage(items, info), nil
}

// QueryGetAuditLog pages through the audit trail, newest first.
// PRE: Viewer is admin; from/to filters are YYYY-MM-DD
func QueryGetAuditLog(ctx context.Context, query ListQuery, store AuditStore) (listutil.Page[domainAudit.Event], error) {
	if !query.Viewer.IsAdmin() {
		return listutil.Page[domainAudit.Event]{}, ErrForbidden
	}
	f := query.Params.Filters
	filter := storeAudit.Filter{
		Category:   domainAudit.Category(f["category"]),
		Action:     domainAudit.Action(f["action"]),
		ActorID:    f["actor_id"],
		ResourceID: f["resource_id"],
	}
	var err error
	if filter.From, err = parseDay(f["from"]); err != nil {
		return listutil.Page[domainAudit.Event]{}, err
	}
	if filter.To, err = parseDay(f["to"]); err != nil {
		return listutil.Page[domainAudit.Event]{}, err
	}
	if !filter.To.IsZero() {
		filter.To = filter.To.Add(24*time.Hour - time.Nanosecond)
	}

	total, err := store.Count(ctx, filter)
	if err != nil {
		return listutil.Page[domainAudit.Event]{}, err
	}
	info := listutil.NewPageInfo(query.Params.Page, query.Params.PerPage, total)
	filter.Limit, filter.Offset = info.PerPage, info.Offset()
	items, err := store.List(ctx, filter)
	if err != nil {
		return listutil.Page[domainAudit.Event]{}, err
	}
	return listutil.NewPage(items, info), nil
}

// OutboxOverview lists permanently failed mail and the undelivered backlog.
type OutboxOverview struct {
	Failed      []domainOutbox.Entry
	Undelivered int
}

// QueryGetOutboxOverview returns failed outbox entries for the admin retry screen.
// PRE: Viewer is admin
func QueryGetOutboxOverview(ctx context.Context, viewer Viewer, store OutboxStore) (OutboxOverview, error) {
	if !viewer.IsAdmin() {
		return OutboxOverview{}, ErrForbidden
	}
	failed, err := store.ListFailed(ctx, 200)
	if err != nil {
		return OutboxOverview{}, fmt.Errorf("list failed outbox: %w", err)
	}
	if failed == nil {
		failed = []domainOutbox.Entry{}
	}
	n, err := store.CountUndelivered(ctx)
	if err != nil {
		return OutboxOverview{}, fmt.Errorf("count outbox: %w", err)
	}
	return OutboxOverview{Failed: failed, Undelivered: n}, nil
}

func parseDay(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD", v)
	}
	return t.UTC(), nil
}
