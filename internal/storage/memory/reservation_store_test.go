package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cimillas/clinic-booking/internal/clock"
	"github.com/cimillas/clinic-booking/internal/domain"
)

var testDay = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func testHold(id, holderID string, slot domain.Slot, expiresAt time.Time) domain.Hold {
	return domain.Hold{
		ID:        id,
		Key:       domain.NewSlotKey("doc-1", testDay, slot),
		HolderID:  holderID,
		ExpiresAt: expiresAt,
	}
}

func TestTryAcquireHold(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	t.Run("free slot is acquired at generation 1", func(t *testing.T) {
		t.Parallel()

		store := NewReservationStore(clock.NewFixed(now))
		hold, err := store.TryAcquireHold(context.Background(), testHold("h1", "patient-a", domain.Slot0900, now.Add(time.Minute)))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if hold.Generation != 1 {
			t.Fatalf("expected generation 1, got %d", hold.Generation)
		}
	})

	t.Run("live hold blocks a second acquirer", func(t *testing.T) {
		t.Parallel()

		store := NewReservationStore(clock.NewFixed(now))
		if _, err := store.TryAcquireHold(context.Background(), testHold("h1", "patient-a", domain.Slot0900, now.Add(time.Minute))); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		_, err := store.TryAcquireHold(context.Background(), testHold("h2", "patient-b", domain.Slot0900, now.Add(time.Minute)))
		if !errors.Is(err, domain.ErrSlotUnavailable) {
			t.Fatalf("expected ErrSlotUnavailable, got %v", err)
		}
	})

	t.Run("expired hold is evicted by the next acquirer", func(t *testing.T) {
		t.Parallel()

		clk := clock.NewStep(now)
		store := NewReservationStore(clk)
		first, err := store.TryAcquireHold(context.Background(), testHold("h1", "patient-a", domain.Slot0900, now.Add(time.Minute)))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		clk.Advance(2 * time.Minute)

		second, err := store.TryAcquireHold(context.Background(), testHold("h2", "patient-b", domain.Slot0900, clk.Now().Add(time.Minute)))
		if err != nil {
			t.Fatalf("expected no error after expiry, got %v", err)
		}
		if second.Generation <= first.Generation {
			t.Fatalf("expected generation to advance past %d, got %d", first.Generation, second.Generation)
		}

		// The evicted hold is gone from the id index.
		if _, err := store.GetHold(context.Background(), "h1"); !errors.Is(err, domain.ErrHoldNotFound) {
			t.Fatalf("expected ErrHoldNotFound for evicted hold, got %v", err)
		}
	})

	t.Run("booked slot cannot be held", func(t *testing.T) {
		t.Parallel()

		store := NewReservationStore(clock.NewFixed(now))
		hold, err := store.TryAcquireHold(context.Background(), testHold("h1", "patient-a", domain.Slot0900, now.Add(time.Minute)))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := store.ClaimSlotForAppointment(context.Background(), hold, "appt-1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		_, err = store.TryAcquireHold(context.Background(), testHold("h2", "patient-b", domain.Slot0900, now.Add(time.Minute)))
		if !errors.Is(err, domain.ErrSlotUnavailable) {
			t.Fatalf("expected ErrSlotUnavailable, got %v", err)
		}
	})
}

func TestTryAcquireHoldConcurrent(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	store := NewReservationStore(clock.NewFixed(now))

	const racers = 50
	var wg sync.WaitGroup
	wins := make(chan domain.Hold, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hold, err := store.TryAcquireHold(context.Background(),
				testHold(fmt.Sprintf("h%d", i), fmt.Sprintf("patient-%d", i), domain.Slot0900, now.Add(time.Minute)))
			if err == nil {
				wins <- hold
			} else if !errors.Is(err, domain.ErrSlotUnavailable) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []domain.Hold
	for h := range wins {
		winners = append(winners, h)
	}
	if len(winners) != 1 {
		t.Fatalf("expected exactly one winner, got %d", len(winners))
	}

	got, err := store.GetHold(context.Background(), winners[0].ID)
	if err != nil {
		t.Fatalf("expected winner's hold to be readable, got %v", err)
	}
	if got.HolderID != winners[0].HolderID {
		t.Fatalf("expected holder %s, got %s", winners[0].HolderID, got.HolderID)
	}
}

func TestRenewHold(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	t.Run("current generation renews", func(t *testing.T) {
		t.Parallel()

		store := NewReservationStore(clock.NewFixed(now))
		hold, err := store.TryAcquireHold(context.Background(), testHold("h1", "patient-a", domain.Slot0900, now.Add(time.Minute)))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		renewed, err := store.RenewHold(context.Background(), hold, now.Add(5*time.Minute))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !renewed.ExpiresAt.Equal(now.Add(5 * time.Minute)) {
			t.Fatalf("expected extended expiry, got %v", renewed.ExpiresAt)
		}
	})

	t.Run("superseded hold cannot renew", func(t *testing.T) {
		t.Parallel()

		clk := clock.NewStep(now)
		store := NewReservationStore(clk)
		stale, err := store.TryAcquireHold(context.Background(), testHold("h1", "patient-a", domain.Slot0900, now.Add(time.Minute)))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		clk.Advance(2 * time.Minute)
		if _, err := store.TryAcquireHold(context.Background(), testHold("h2", "patient-b", domain.Slot0900, clk.Now().Add(time.Minute))); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if _, err := store.RenewHold(context.Background(), stale, clk.Now().Add(time.Minute)); !errors.Is(err, domain.ErrSlotExpired) {
			t.Fatalf("expected ErrSlotExpired, got %v", err)
		}
	})
}

func TestReleaseHold(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	store := NewReservationStore(clock.NewFixed(now))

	hold, err := store.TryAcquireHold(context.Background(), testHold("h1", "patient-a", domain.Slot0900, now.Add(time.Minute)))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := store.ReleaseHold(context.Background(), hold); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// The slot is free again for someone else.
	next, err := store.TryAcquireHold(context.Background(), testHold("h2", "patient-b", domain.Slot0900, now.Add(time.Minute)))
	if err != nil {
		t.Fatalf("expected slot to be free after release, got %v", err)
	}
	if next.Generation <= hold.Generation {
		t.Fatalf("expected generation to advance, got %d after %d", next.Generation, hold.Generation)
	}

	// Releasing the stale hold again is a silent no-op that leaves the new
	// occupant alone.
	if err := store.ReleaseHold(context.Background(), hold); err != nil {
		t.Fatalf("expected stale release to be a no-op, got %v", err)
	}
	if _, err := store.GetHold(context.Background(), next.ID); err != nil {
		t.Fatalf("expected new hold to survive stale release, got %v", err)
	}
}

func TestClaimSlotForAppointment(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	t.Run("live hold commits", func(t *testing.T) {
		t.Parallel()

		store := NewReservationStore(clock.NewFixed(now))
		hold, err := store.TryAcquireHold(context.Background(), testHold("h1", "patient-a", domain.Slot0900, now.Add(time.Minute)))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := store.ClaimSlotForAppointment(context.Background(), hold, "appt-1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := store.GetHold(context.Background(), hold.ID); !errors.Is(err, domain.ErrHoldNotFound) {
			t.Fatalf("expected consumed hold to be gone, got %v", err)
		}
	})

	t.Run("expired hold cannot commit", func(t *testing.T) {
		t.Parallel()

		clk := clock.NewStep(now)
		store := NewReservationStore(clk)
		hold, err := store.TryAcquireHold(context.Background(), testHold("h1", "patient-a", domain.Slot0900, now.Add(time.Minute)))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		clk.Advance(2 * time.Minute)
		if err := store.ClaimSlotForAppointment(context.Background(), hold, "appt-1"); !errors.Is(err, domain.ErrSlotExpired) {
			t.Fatalf("expected ErrSlotExpired, got %v", err)
		}
	})

	t.Run("stale generation loses the race", func(t *testing.T) {
		t.Parallel()

		clk := clock.NewStep(now)
		store := NewReservationStore(clk)
		stale, err := store.TryAcquireHold(context.Background(), testHold("h1", "patient-a", domain.Slot0900, now.Add(time.Minute)))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		// Patient B evicts the expired hold and books first.
		clk.Advance(2 * time.Minute)
		fresh, err := store.TryAcquireHold(context.Background(), testHold("h2", "patient-b", domain.Slot0900, clk.Now().Add(time.Minute)))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := store.ClaimSlotForAppointment(context.Background(), fresh, "appt-b"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		// Patient A's commit with the stale hold must not clobber the booking.
		if err := store.ClaimSlotForAppointment(context.Background(), stale, "appt-a"); !errors.Is(err, domain.ErrSlotExpired) {
			t.Fatalf("expected ErrSlotExpired, got %v", err)
		}

		occupied, err := store.OccupiedSlots(context.Background(), "doc-1", testDay, clk.Now())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(occupied) != 1 || occupied[0] != domain.Slot0900 {
			t.Fatalf("expected patient B's booking to stand, got %v", occupied)
		}
	})
}

func TestVacateSlot(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	store := NewReservationStore(clock.NewFixed(now))
	key := domain.NewSlotKey("doc-1", testDay, domain.Slot0900)

	hold, err := store.TryAcquireHold(context.Background(), testHold("h1", "patient-a", domain.Slot0900, now.Add(time.Minute)))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := store.ClaimSlotForAppointment(context.Background(), hold, "appt-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Vacating for a different appointment id is a no-op.
	if err := store.VacateSlot(context.Background(), key, "appt-other"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	occupied, _ := store.OccupiedSlots(context.Background(), "doc-1", testDay, now)
	if len(occupied) != 1 {
		t.Fatalf("expected slot to stay occupied, got %v", occupied)
	}

	if err := store.VacateSlot(context.Background(), key, "appt-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	occupied, _ = store.OccupiedSlots(context.Background(), "doc-1", testDay, now)
	if len(occupied) != 0 {
		t.Fatalf("expected slot to be free, got %v", occupied)
	}
}

func TestOccupiedSlots(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	store := NewReservationStore(clock.NewFixed(now))

	// A live hold, an expired hold and a booking on the same day.
	if _, err := store.TryAcquireHold(context.Background(), testHold("h1", "patient-a", domain.Slot0925, now.Add(time.Minute))); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := store.TryAcquireHold(context.Background(), testHold("h2", "patient-b", domain.Slot1040, now.Add(-time.Second))); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	booked, err := store.TryAcquireHold(context.Background(), testHold("h3", "patient-c", domain.Slot0900, now.Add(time.Minute)))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := store.ClaimSlotForAppointment(context.Background(), booked, "appt-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	occupied, err := store.OccupiedSlots(context.Background(), "doc-1", testDay, now)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(occupied) != 2 {
		t.Fatalf("expected 2 occupied slots, got %v", occupied)
	}
	if occupied[0] != domain.Slot0900 || occupied[1] != domain.Slot0925 {
		t.Fatalf("expected sorted [09:00 09:25], got %v", occupied)
	}
}

func TestActiveHoldByHolder(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	store := NewReservationStore(clock.NewFixed(now))

	if _, err := store.TryAcquireHold(context.Background(), testHold("h1", "patient-a", domain.Slot0900, now.Add(time.Minute))); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	hold, err := store.ActiveHoldByHolder(context.Background(), "patient-a", now)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if hold == nil || hold.ID != "h1" {
		t.Fatalf("expected hold h1, got %+v", hold)
	}

	// After expiry the holder has nothing.
	hold, err = store.ActiveHoldByHolder(context.Background(), "patient-a", now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if hold != nil {
		t.Fatalf("expected no live hold, got %+v", hold)
	}

	hold, err = store.ActiveHoldByHolder(context.Background(), "patient-b", now)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if hold != nil {
		t.Fatalf("expected no hold for other holder, got %+v", hold)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	store := NewReservationStore(clock.NewFixed(now))

	hold, err := store.TryAcquireHold(context.Background(), testHold("h1", "patient-a", domain.Slot0900, now.Add(time.Minute)))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	boom := errors.New("boom")
	err = store.WithTx(context.Background(), func(txCtx context.Context) error {
		if err := store.ClaimSlotForAppointment(txCtx, hold, "appt-1"); err != nil {
			return err
		}
		if err := store.CreateAppointment(txCtx, domain.Appointment{ID: "appt-1", PatientID: "patient-a"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	// Both the claim and the appointment were rolled back.
	got, err := store.GetHold(context.Background(), "h1")
	if err != nil {
		t.Fatalf("expected hold to survive the rollback, got %v", err)
	}
	if got.Generation != hold.Generation {
		t.Fatalf("expected generation %d after rollback, got %d", hold.Generation, got.Generation)
	}
	if _, err := store.GetAppointment(context.Background(), "appt-1"); !errors.Is(err, domain.ErrAppointmentNotFound) {
		t.Fatalf("expected appointment to be rolled back, got %v", err)
	}
}

func TestAppointmentQueries(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	store := NewReservationStore(clock.NewFixed(now))

	appt := domain.Appointment{
		ID:        "appt-1",
		DoctorID:  "doc-1",
		PatientID: "patient-a",
		Day:       testDay,
		Slot:      domain.Slot0900,
		Status:    domain.AppointmentStatusBooked,
		HoldID:    "h1",
	}
	if err := store.CreateAppointment(context.Background(), appt); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	t.Run("by hold id", func(t *testing.T) {
		got, err := store.AppointmentByHoldID(context.Background(), "h1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got == nil || got.ID != "appt-1" {
			t.Fatalf("expected appt-1, got %+v", got)
		}
		none, err := store.AppointmentByHoldID(context.Background(), "h-unknown")
		if err != nil || none != nil {
			t.Fatalf("expected nil for unknown hold, got %+v err %v", none, err)
		}
	})

	t.Run("patient conflict scan", func(t *testing.T) {
		busy, err := store.PatientHasBooking(context.Background(), "patient-a", testDay, domain.Slot0900, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !busy {
			t.Fatalf("expected conflict at the booked slot")
		}

		busy, err = store.PatientHasBooking(context.Background(), "patient-a", testDay, domain.Slot0900, "appt-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if busy {
			t.Fatalf("expected no conflict when excluding the appointment itself")
		}

		busy, err = store.PatientHasBooking(context.Background(), "patient-a", testDay, domain.Slot0925, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if busy {
			t.Fatalf("expected no conflict at a different slot")
		}
	})

	t.Run("list orders by day then slot", func(t *testing.T) {
		later := appt
		later.ID = "appt-2"
		later.Slot = domain.Slot1605
		earlierDay := appt
		earlierDay.ID = "appt-3"
		earlierDay.Day = testDay.AddDate(0, 0, -7)
		for _, a := range []domain.Appointment{later, earlierDay} {
			if err := store.CreateAppointment(context.Background(), a); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}

		out, err := store.ListPatientAppointments(context.Background(), "patient-a")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(out) != 3 {
			t.Fatalf("expected 3 appointments, got %d", len(out))
		}
		if out[0].ID != "appt-3" || out[1].ID != "appt-1" || out[2].ID != "appt-2" {
			t.Fatalf("unexpected order: %s %s %s", out[0].ID, out[1].ID, out[2].ID)
		}
	})
}
