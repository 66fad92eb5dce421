package assignment

import (
	"sort"

	"refdesk/internal/domain/event"
)

// Booking is a booking assignment joined with its event's date span.
type Booking struct {
	Assignment Assignment
	Event      event.Event
}

// Conflict names an event that keeps a referee busy on a target date.
type Conflict struct {
	EventID    string
	EventTitle string
	Dates      []string // overlapping dates, sorted
}

// Availability partitions candidate referees for a target event.
type Availability struct {
	Available []string              // candidate IDs in input order
	Busy      map[string][]Conflict // referee ID -> conflicting events
}

// BusyByDate groups the referees that are booked on each date. Bookings on
// the excluded event, non-booking assignments and events that no longer book
// referees are skipped.
func BusyByDate(bookings []Booking, excludeEventID string) map[string]map[string]struct{} {
	busy := make(map[string]map[string]struct{})
	for _, b := range bookings {
		if b.Event.ID == excludeEventID || !b.Assignment.IsBooking() || !b.Event.BooksReferees() {
			continue
		}
		for _, d := range b.Event.Dates() {
			set, ok := busy[d]
			if !ok {
				set = make(map[string]struct{})
				busy[d] = set
			}
			set[b.Assignment.RefereeID] = struct{}{}
		}
	}
	return busy
}

// Check computes which candidates are free on every date of target.
// INVARIANT: a candidate is Available iff no booking on another event shares a date with target
func Check(target event.Event, candidates []string, bookings []Booking) Availability {
	dates := target.Dates()
	byDate := BusyByDate(bookings, target.ID)

	busyUnion := make(map[string]struct{})
	for _, d := range dates {
		for id := range byDate[d] {
			busyUnion[id] = struct{}{}
		}
	}

	out := Availability{Busy: make(map[string][]Conflict)}
	for _, id := range candidates {
		if _, ok := busyUnion[id]; !ok {
			out.Available = append(out.Available, id)
		}
	}

	targetDates := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		targetDates[d] = struct{}{}
	}
	for _, b := range bookings {
		id := b.Assignment.RefereeID
		if _, ok := busyUnion[id]; !ok || b.Event.ID == target.ID {
			continue
		}
		if !b.Assignment.IsBooking() || !b.Event.BooksReferees() {
			continue
		}
		var overlap []string
		for _, d := range b.Event.Dates() {
			if _, ok := targetDates[d]; ok {
				overlap = append(overlap, d)
			}
		}
		if len(overlap) == 0 {
			continue
		}
		sort.Strings(overlap)
		out.Busy[id] = append(out.Busy[id], Conflict{
			EventID:    b.Event.ID,
			EventTitle: b.Event.Title,
			Dates:      overlap,
		})
	}
	return out
}

// IsAvailable reports whether a single referee is free for target.
func IsAvailable(target event.Event, refereeID string, bookings []Booking) bool {
	return len(Check(target, []string{refereeID}, bookings).Available) == 1
}
