package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	assignmentstore "refdesk/internal/adapters/storage/assignment"
	"refdesk/internal/adapters/storage/storagetest"
	"refdesk/internal/domain/assignment"
	"refdesk/internal/domain/event"
)

func validEventInput() EventInput {
	return EventInput{
		Title:        "Piala Gubernur",
		Description:  "Regional futsal cup",
		Venue:        "GOR Arcamanik",
		City:         "Bandung",
		StartDate:    "2026-08-01",
		EndDate:      "2026-08-03",
		Level:        event.LevelRegional,
		RefereeQuota: 4,
	}
}

// TestExecuteSubmitEvent_Valid tests that organizers submit pending events and admins are emailed.
func TestExecuteSubmitEvent_Valid(t *testing.T) {
	f := newFixture(t)
	e, err := ExecuteSubmitEvent(context.Background(), SubmitEventInput{
		Event: validEventInput(),
		Actor: organizerActor,
	}, f.eventDeps())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Status != event.StatusPending || e.SubmittedBy != "org" {
		t.Errorf("unexpected event: %+v", e)
	}
	if got := len(e.Dates()); got != 3 {
		t.Errorf("expected 3 dates, got %d", got)
	}
	stored, err := f.events.GetByID(context.Background(), e.ID)
	if err != nil || stored.Title != "Piala Gubernur" {
		t.Errorf("expected stored event, got %+v (%v)", stored, err)
	}
	reqs := f.outbox.requests(t)
	if len(reqs) != 1 || len(reqs[0].To) != 1 || reqs[0].To[0] != "admin@fed.or.id" {
		t.Errorf("expected admin notification, got %+v", reqs)
	}
}

// TestExecuteSubmitEvent_NotifiesEachAdmin tests that every admin gets a
// separate email.
func TestExecuteSubmitEvent_NotifiesEachAdmin(t *testing.T) {
	f := newFixture(t)
	storagetest.Exec(t, f.db,
		`INSERT INTO account (id, email, role, status, full_name, created_at) VALUES
		 ('admin2', 'sekretariat@fed.or.id', 'admin', 'active', 'Sekretariat', '2026-01-01T00:00:00Z')`)
	if _, err := ExecuteSubmitEvent(context.Background(), SubmitEventInput{Event: validEventInput(), Actor: organizerActor}, f.eventDeps()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	reqs := f.outbox.requests(t)
	if len(reqs) != 2 {
		t.Fatalf("expected one email per admin, got %+v", reqs)
	}
	for _, r := range reqs {
		if len(r.To) != 1 {
			t.Errorf("admin email shares recipients: %v", r.To)
		}
	}
}

// TestExecuteSubmitEvent_Invalid tests validation and role checks.
func TestExecuteSubmitEvent_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *EventInput)
		actor   Actor
		wantErr error
	}{
		{name: "referee cannot submit", mutate: func(in *EventInput) {}, actor: refereeActor("r1"), wantErr: ErrForbidden},
		{name: "end before start", mutate: func(in *EventInput) { in.EndDate = "2026-07-30" }, actor: organizerActor, wantErr: event.ErrEndBeforeStart},
		{name: "bad date", mutate: func(in *EventInput) { in.StartDate = "01/08/2026" }, actor: organizerActor, wantErr: event.ErrMissingDates},
		{name: "quota zero", mutate: func(in *EventInput) { in.RefereeQuota = 0 }, actor: organizerActor, wantErr: event.ErrInvalidQuota},
		{name: "no venue", mutate: func(in *EventInput) { in.Venue = " " }, actor: organizerActor, wantErr: event.ErrEmptyVenue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := validEventInput()
			tt.mutate(&in)
			_, err := ExecuteSubmitEvent(context.Background(), SubmitEventInput{Event: in, Actor: tt.actor}, f.eventDeps())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestExecuteDecideEvent tests approval and the pending precondition.
func TestExecuteDecideEvent(t *testing.T) {
	f := newFixture(t)
	e, err := ExecuteDecideEvent(context.Background(), DecideEventInput{
		EventID: "draft", Decision: DecisionApprove, Note: "ok", Actor: adminActor,
	}, f.eventDeps())
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if e.Status != event.StatusApproved || e.DecidedBy != "admin" {
		t.Errorf("unexpected event: %+v", e)
	}
	reqs := f.outbox.requests(t)
	if len(reqs) != 1 || reqs[0].To[0] != "org@club.id" || reqs[0].Subject != "Event approved: Turnamen Antar Kampus" {
		t.Errorf("expected decision email to organizer, got %+v", reqs)
	}

	_, err = ExecuteDecideEvent(context.Background(), DecideEventInput{
		EventID: "draft", Decision: DecisionReject, Actor: adminActor,
	}, f.eventDeps())
	if !errors.Is(err, event.ErrNotPending) {
		t.Errorf("expected ErrNotPending, got %v", err)
	}

	_, err = ExecuteDecideEvent(context.Background(), DecideEventInput{
		EventID: "cup", Decision: DecisionApprove, Actor: organizerActor,
	}, f.eventDeps())
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

// TestExecuteEditEvent tests edit permissions and the assigned-event locks.
func TestExecuteEditEvent(t *testing.T) {
	t.Run("submitter edits pending event", func(t *testing.T) {
		f := newFixture(t)
		in := validEventInput()
		in.Title = "Turnamen Kampus"
		in.StartDate, in.EndDate = "2026-07-01", "2026-07-02"
		e, err := ExecuteEditEvent(context.Background(), EditEventInput{EventID: "draft", Event: in, Actor: organizerActor}, f.eventDeps())
		if err != nil {
			t.Fatalf("edit: %v", err)
		}
		if e.Title != "Turnamen Kampus" || len(e.Dates()) != 2 {
			t.Errorf("unexpected event: %+v", e)
		}
	})

	t.Run("submitter cannot edit approved event", func(t *testing.T) {
		f := newFixture(t)
		_, err := ExecuteEditEvent(context.Background(), EditEventInput{EventID: "cup", Event: validEventInput(), Actor: organizerActor}, f.eventDeps())
		if !errors.Is(err, event.ErrNotEditable) {
			t.Errorf("expected ErrNotEditable, got %v", err)
		}
	})

	t.Run("stranger cannot edit", func(t *testing.T) {
		f := newFixture(t)
		_, err := ExecuteEditEvent(context.Background(), EditEventInput{EventID: "draft", Event: validEventInput(), Actor: refereeActor("r1")}, f.eventDeps())
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("dates locked once referees are assigned", func(t *testing.T) {
		f := newFixture(t)
		f.assign(t, "cup", "r1")
		in := EventInput{
			Title: "Piala Walikota", Venue: "GOR Pajajaran", City: "Bandung",
			StartDate: "2026-06-11", EndDate: "2026-06-12", Level: event.LevelRegional, RefereeQuota: 2,
		}
		_, err := ExecuteEditEvent(context.Background(), EditEventInput{EventID: "cup", Event: in, Actor: adminActor}, f.eventDeps())
		if !errors.Is(err, ErrDatesLocked) {
			t.Errorf("expected ErrDatesLocked, got %v", err)
		}

		f.assign(t, "cup", "r2")
		in.StartDate = "2026-06-10"
		in.RefereeQuota = 1
		_, err = ExecuteEditEvent(context.Background(), EditEventInput{EventID: "cup", Event: in, Actor: adminActor}, f.eventDeps())
		if !errors.Is(err, ErrQuotaBelowAssigned) {
			t.Errorf("expected ErrQuotaBelowAssigned, got %v", err)
		}

		in.RefereeQuota = 3
		in.Title = "Piala Walikota 2026"
		if _, err := ExecuteEditEvent(context.Background(), EditEventInput{EventID: "cup", Event: in, Actor: adminActor}, f.eventDeps()); err != nil {
			t.Errorf("admin edit without date change should pass: %v", err)
		}
	})
}

// TestExecuteCancelEvent tests that cancellation releases assignments and emails referees.
func TestExecuteCancelEvent(t *testing.T) {
	f := newFixture(t)
	f.assign(t, "cup", "r1")
	f.assign(t, "cup", "r2")
	f.outbox.entries = nil

	e, err := ExecuteCancelEvent(context.Background(), CancelEventInput{EventID: "cup", Note: "venue flooded", Actor: adminActor}, f.eventDeps())
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if e.Status != event.StatusCancelled {
		t.Errorf("expected cancelled, got %s", e.Status)
	}
	reqs := f.outbox.requests(t)
	if len(reqs) != 2 {
		t.Fatalf("expected one email per referee, got %+v", reqs)
	}
	got := map[string]bool{}
	for _, r := range reqs {
		if len(r.To) != 1 {
			t.Errorf("each email must have a single recipient, got %v", r.To)
			continue
		}
		got[r.To[0]] = true
	}
	if !got["r1@fed.or.id"] || !got["r2@fed.or.id"] {
		t.Errorf("recipients = %v", got)
	}

	if _, err := ExecuteCancelEvent(context.Background(), CancelEventInput{EventID: "cup", Actor: adminActor}, f.eventDeps()); !errors.Is(err, event.ErrNotCancellable) {
		t.Errorf("expected ErrNotCancellable on second cancel, got %v", err)
	}

	// r1 is free again for the overlapping league match.
	if _, err := ExecuteAssignReferee(context.Background(), AssignRefereeInput{
		EventID: "league", RefereeID: "r1", Actor: adminActor,
	}, f.assignmentDeps()); err != nil {
		t.Errorf("cancelled event should free the referee: %v", err)
	}
	list, err := f.assignments.List(context.Background(), assignmentstore.ListFilter{EventID: "cup"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, d := range list {
		if d.Assignment.Status != assignment.StatusCancelled {
			t.Errorf("assignment %s still %s", d.Assignment.ID, d.Assignment.Status)
		}
	}
}

// TestExecuteCancelEvent_SubmitterRules tests that organizers cancel only their pending events.
func TestExecuteCancelEvent_SubmitterRules(t *testing.T) {
	f := newFixture(t)
	if _, err := ExecuteCancelEvent(context.Background(), CancelEventInput{EventID: "cup", Actor: organizerActor}, f.eventDeps()); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for approved event, got %v", err)
	}
	if _, err := ExecuteCancelEvent(context.Background(), CancelEventInput{EventID: "draft", Actor: organizerActor}, f.eventDeps()); err != nil {
		t.Errorf("submitter should cancel own pending event: %v", err)
	}
}

// TestExecuteCompleteEvent tests that only finished events complete.
func TestExecuteCompleteEvent(t *testing.T) {
	f := newFixture(t)
	deps := f.eventDeps()
	if _, err := ExecuteCompleteEvent(context.Background(), CompleteEventInput{EventID: "cup", Actor: adminActor}, deps); !errors.Is(err, event.ErrNotFinished) {
		t.Errorf("expected ErrNotFinished, got %v", err)
	}

	deps.Now = func() time.Time { return time.Date(2026, 6, 30, 8, 0, 0, 0, time.UTC) }
	e, err := ExecuteCompleteEvent(context.Background(), CompleteEventInput{EventID: "cup", Actor: adminActor}, deps)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if e.Status != event.StatusCompleted {
		t.Errorf("expected completed, got %s", e.Status)
	}
}
