package app

import (
	"context"
	"time"

	"github.com/cimillas/clinic-booking/internal/catalog"
	"github.com/cimillas/clinic-booking/internal/clock"
	"github.com/cimillas/clinic-booking/internal/domain"
	"github.com/cimillas/clinic-booking/internal/events"
)

// RescheduleStore is the slice of the reservation store the reschedule
// orchestrator needs.
type RescheduleStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetAppointment(ctx context.Context, appointmentID string) (domain.Appointment, error)
	ClaimSlotForAppointment(ctx context.Context, hold domain.Hold, appointmentID string) error
	UpdateAppointment(ctx context.Context, appt domain.Appointment) error
	// VacateSlot frees a key currently occupied by that exact
	// appointment.
	VacateSlot(ctx context.Context, key domain.SlotKey, appointmentID string) error
	PatientHasBooking(ctx context.Context, patientID string, day time.Time, slot domain.Slot, excludeAppointmentID string) (bool, error)
}

// RescheduleService moves a booked appointment to a new slot, or cancels
// it. A reschedule claims the new key before it gives up the old one, so
// a failed move never leaves the patient with zero slots.
type RescheduleService struct {
	store   RescheduleStore
	catalog *catalog.Catalog
	clock   clock.Clock
	events  events.Publisher
}

func NewRescheduleService(store RescheduleStore, cat *catalog.Catalog, clk clock.Clock, pub events.Publisher) *RescheduleService {
	return &RescheduleService{
		store:   store,
		catalog: cat,
		clock:   clk,
		events:  pub,
	}
}

// Reschedule atomically moves the appointment onto the slot named by
// newHold. When the new slot's claim fails the appointment is left
// exactly where it was and ErrSlotExpired is returned.
func (s *RescheduleService) Reschedule(ctx context.Context, appointmentID, patientID string, newHold domain.Hold, note string) (domain.Appointment, error) {
	appt, err := s.loadOwned(ctx, appointmentID, patientID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if newHold.HolderID != patientID {
		return domain.Appointment{}, domain.ErrHoldNotFound
	}
	if !s.catalog.IsWorkingDay(newHold.Key.DoctorID, newHold.Key.Day) {
		return domain.Appointment{}, domain.ErrInvalidDay
	}

	busy, err := s.store.PatientHasBooking(ctx, patientID, newHold.Key.Day, newHold.Key.Slot, appt.ID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if busy {
		return domain.Appointment{}, domain.ErrPatientConflict
	}

	oldKey := appt.Key()
	updated := appt
	updated.DoctorID = newHold.Key.DoctorID
	updated.Day = newHold.Key.Day
	updated.Slot = newHold.Key.Slot
	updated.HoldID = newHold.ID
	updated.UpdatedAt = s.clock.Now()
	if note != "" {
		updated.Note = note
	}

	// Claim the new key first; vacate the old one only once the claim
	// stuck. Both sides of the move commit or neither does.
	err = s.store.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.store.ClaimSlotForAppointment(txCtx, newHold, appt.ID); err != nil {
			return err
		}
		if err := s.store.UpdateAppointment(txCtx, updated); err != nil {
			return err
		}
		return s.store.VacateSlot(txCtx, oldKey, appt.ID)
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	s.events.Publish(ctx, domain.Event{
		Type:        domain.EventSlotRescheduled,
		Key:         updated.Key(),
		HolderID:    patientID,
		Appointment: &updated,
		OldKey:      &oldKey,
	})
	return updated, nil
}

// Cancel is the degenerate reschedule: the key is vacated and no new one
// is claimed. Cancelled is terminal.
func (s *RescheduleService) Cancel(ctx context.Context, appointmentID, patientID string) (domain.Appointment, error) {
	appt, err := s.loadOwned(ctx, appointmentID, patientID)
	if err != nil {
		return domain.Appointment{}, err
	}

	cancelled := appt
	cancelled.Status = domain.AppointmentStatusCancelled
	cancelled.UpdatedAt = s.clock.Now()

	err = s.store.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.store.VacateSlot(txCtx, appt.Key(), appt.ID); err != nil {
			return err
		}
		return s.store.UpdateAppointment(txCtx, cancelled)
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	s.events.Publish(ctx, domain.Event{
		Type:        domain.EventAppointmentCancelled,
		Key:         appt.Key(),
		HolderID:    patientID,
		Appointment: &cancelled,
	})
	return cancelled, nil
}

func (s *RescheduleService) loadOwned(ctx context.Context, appointmentID, patientID string) (domain.Appointment, error) {
	if appointmentID == "" || patientID == "" {
		return domain.Appointment{}, domain.ErrInvalidID
	}
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if appt.PatientID != patientID {
		return domain.Appointment{}, domain.ErrWrongPatient
	}
	if appt.Status == domain.AppointmentStatusCancelled {
		return domain.Appointment{}, domain.ErrAppointmentCancelled
	}
	return appt, nil
}
