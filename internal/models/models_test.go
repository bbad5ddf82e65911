package models

import "testing"

func TestReservationStatusIsTerminal(t *testing.T) {
	terminal := []ReservationStatus{ReservationStatusCompleted, ReservationStatusCancelled, ReservationStatusExpired}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("Expected %s to be terminal", s)
		}
	}
	active := []ReservationStatus{ReservationStatusHeld, ReservationStatusScheduled, ReservationStatusConfirmed, ReservationStatusPartialPickup}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("Expected %s to be non-terminal", s)
		}
	}
}

func TestReservationStatusCanTransitionTo(t *testing.T) {
	all := []ReservationStatus{
		ReservationStatusHeld, ReservationStatusScheduled, ReservationStatusConfirmed,
		ReservationStatusPartialPickup, ReservationStatusCompleted,
		ReservationStatusCancelled, ReservationStatusExpired,
	}

	allowed := map[ReservationStatus][]ReservationStatus{
		ReservationStatusHeld:      {ReservationStatusScheduled, ReservationStatusCancelled, ReservationStatusExpired},
		ReservationStatusScheduled: {ReservationStatusConfirmed, ReservationStatusPartialPickup, ReservationStatusCompleted, ReservationStatusCancelled, ReservationStatusExpired},
		ReservationStatusConfirmed: {ReservationStatusPartialPickup, ReservationStatusCompleted, ReservationStatusCancelled, ReservationStatusExpired},
		// частично выданный резерв не истекает
		ReservationStatusPartialPickup: {ReservationStatusCompleted, ReservationStatusCancelled},
	}

	for _, from := range all {
		ok := map[ReservationStatus]bool{}
		for _, next := range allowed[from] {
			ok[next] = true
		}
		for _, to := range all {
			if got := from.CanTransitionTo(to); got != ok[to] {
				t.Errorf("%s -> %s: expected %v, got %v", from, to, ok[to], got)
			}
		}
	}

	// из терминальных статусов переходов нет вовсе
	for _, from := range all {
		if !from.IsTerminal() {
			continue
		}
		for _, to := range all {
			if from.CanTransitionTo(to) {
				t.Errorf("Terminal %s must not transition to %s", from, to)
			}
		}
	}
}
