package app

import (
	"context"
	"errors"
	"time"

	"github.com/cimillas/clinic-booking/internal/catalog"
	"github.com/cimillas/clinic-booking/internal/clock"
	"github.com/cimillas/clinic-booking/internal/domain"
	"github.com/cimillas/clinic-booking/internal/events"
)

// BookingStore is the slice of the reservation store the booking
// orchestrator needs.
type BookingStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetHold(ctx context.Context, holdID string) (domain.Hold, error)
	// ClaimSlotForAppointment atomically replaces the hold occupant with
	// the appointment, but only while the hold's generation is current;
	// ErrSlotExpired otherwise.
	ClaimSlotForAppointment(ctx context.Context, hold domain.Hold, appointmentID string) error
	CreateAppointment(ctx context.Context, appt domain.Appointment) error
	// AppointmentByHoldID returns the appointment a hold was consumed
	// for, or nil.
	AppointmentByHoldID(ctx context.Context, holdID string) (*domain.Appointment, error)
	// PatientHasBooking reports a booked appointment for the patient at
	// (day, slot) across all doctors, ignoring excludeAppointmentID.
	PatientHasBooking(ctx context.Context, patientID string, day time.Time, slot domain.Slot, excludeAppointmentID string) (bool, error)
}

// BookingService converts a live hold into a durable appointment.
type BookingService struct {
	store   BookingStore
	catalog *catalog.Catalog
	clock   clock.Clock
	events  events.Publisher
}

func NewBookingService(store BookingStore, cat *catalog.Catalog, clk clock.Clock, pub events.Publisher) *BookingService {
	return &BookingService{
		store:   store,
		catalog: cat,
		clock:   clk,
		events:  pub,
	}
}

// BookingDetails carries the appointment fields that come from the
// patient rather than the slot.
type BookingDetails struct {
	ClinicID string
	Location string
	Channel  domain.Channel
	Note     string
}

// BookResult reports whether the call created the appointment or replayed
// an earlier success.
type BookResult struct {
	Appointment domain.Appointment
	Created     bool
}

// Book turns the hold into a booked appointment.
//
// The call is idempotent under client retry: when the hold has already
// been consumed by a previous attempt, the appointment it produced is
// returned instead of a duplicate. A hold that expired or was superseded
// surfaces ErrSlotExpired — the caller must re-fetch availability and hold
// again; that is a genuine retry boundary, not a failure of this service.
func (s *BookingService) Book(ctx context.Context, holdID, patientID string, details BookingDetails) (BookResult, error) {
	if holdID == "" || patientID == "" {
		return BookResult{}, domain.ErrInvalidID
	}

	hold, err := s.store.GetHold(ctx, holdID)
	if err != nil {
		if errors.Is(err, domain.ErrHoldNotFound) {
			if replay, rerr := s.replayedBooking(ctx, holdID, patientID); rerr == nil && replay != nil {
				return BookResult{Appointment: *replay, Created: false}, nil
			} else if rerr != nil {
				return BookResult{}, rerr
			}
		}
		return BookResult{}, err
	}
	if hold.HolderID != patientID {
		return BookResult{}, domain.ErrHoldNotFound
	}

	// Defense in depth: availability never offers slots on a day off, but
	// a stale client could still carry one here.
	if !s.catalog.IsWorkingDay(hold.Key.DoctorID, hold.Key.Day) {
		return BookResult{}, domain.ErrInvalidDay
	}

	// Best-effort cross-doctor check; the per-key claim below is the real
	// guarantee. A patient racing a second device can slip past this.
	busy, err := s.store.PatientHasBooking(ctx, patientID, hold.Key.Day, hold.Key.Slot, "")
	if err != nil {
		return BookResult{}, err
	}
	if busy {
		return BookResult{}, domain.ErrPatientConflict
	}

	now := s.clock.Now()
	appt := domain.Appointment{
		ID:        newID(),
		DoctorID:  hold.Key.DoctorID,
		PatientID: patientID,
		ClinicID:  details.ClinicID,
		Location:  details.Location,
		Day:       hold.Key.Day,
		Slot:      hold.Key.Slot,
		Channel:   details.Channel,
		Note:      details.Note,
		Status:    domain.AppointmentStatusBooked,
		HoldID:    hold.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.store.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.store.ClaimSlotForAppointment(txCtx, hold, appt.ID); err != nil {
			return err
		}
		return s.store.CreateAppointment(txCtx, appt)
	})
	if err != nil {
		if errors.Is(err, domain.ErrSlotExpired) {
			// A concurrent retry with the same hold may have won the
			// claim; hand back its appointment rather than failing.
			if replay, rerr := s.replayedBooking(ctx, holdID, patientID); rerr == nil && replay != nil {
				return BookResult{Appointment: *replay, Created: false}, nil
			}
		}
		return BookResult{}, err
	}

	s.events.Publish(ctx, domain.Event{
		Type:        domain.EventSlotBooked,
		Key:         appt.Key(),
		HolderID:    patientID,
		Appointment: &appt,
	})
	return BookResult{Appointment: appt, Created: true}, nil
}

func (s *BookingService) replayedBooking(ctx context.Context, holdID, patientID string) (*domain.Appointment, error) {
	appt, err := s.store.AppointmentByHoldID(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if appt == nil || appt.PatientID != patientID {
		return nil, nil
	}
	return appt, nil
}
