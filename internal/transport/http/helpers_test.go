package http

import (
	"context"
	"net/http"
	"time"

	"github.com/cimillas/clinic-booking/internal/app"
	"github.com/cimillas/clinic-booking/internal/domain"
)

func withCaller(r *http.Request, caller string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), callerKey{}, caller))
}

type stubHoldManager struct {
	hold     domain.Hold
	err      error
	released []string
}

func (s *stubHoldManager) Hold(_ context.Context, _ string, _ time.Time, _ domain.Slot, _ string) (domain.Hold, error) {
	return s.hold, s.err
}

func (s *stubHoldManager) Renew(_ context.Context, _, _ string) (domain.Hold, error) {
	return s.hold, s.err
}

func (s *stubHoldManager) Release(_ context.Context, holdID, _ string) error {
	s.released = append(s.released, holdID)
	return nil
}

type stubBooker struct {
	result app.BookResult
	err    error
}

func (s *stubBooker) Book(_ context.Context, _, _ string, _ app.BookingDetails) (app.BookResult, error) {
	return s.result, s.err
}

type stubRescheduler struct {
	appt domain.Appointment
	err  error
}

func (s *stubRescheduler) Reschedule(_ context.Context, _, _ string, _ domain.Hold, _ string) (domain.Appointment, error) {
	return s.appt, s.err
}

func (s *stubRescheduler) Cancel(_ context.Context, _, _ string) (domain.Appointment, error) {
	return s.appt, s.err
}

type stubAppointmentGetter struct {
	appt domain.Appointment
	list []domain.Appointment
	err  error
}

func (s *stubAppointmentGetter) Get(_ context.Context, _, _ string) (domain.Appointment, error) {
	return s.appt, s.err
}

func (s *stubAppointmentGetter) ListForPatient(_ context.Context, _ string) ([]domain.Appointment, error) {
	return s.list, s.err
}

type stubAvailabilityLister struct {
	slots []app.SlotAvailability
	err   error
}

func (s *stubAvailabilityLister) Availability(_ context.Context, _ string, _ time.Time) ([]app.SlotAvailability, error) {
	return s.slots, s.err
}
