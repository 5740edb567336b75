package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cimillas/clinic-booking/internal/domain"
)

// Rescheduler moves or cancels booked appointments.
type Rescheduler interface {
	Reschedule(ctx context.Context, appointmentID, patientID string, newHold domain.Hold, note string) (domain.Appointment, error)
	Cancel(ctx context.Context, appointmentID, patientID string) (domain.Appointment, error)
}

// AppointmentGetter serves appointment reads.
type AppointmentGetter interface {
	Get(ctx context.Context, appointmentID, patientID string) (domain.Appointment, error)
	ListForPatient(ctx context.Context, patientID string) ([]domain.Appointment, error)
}

// HandleReschedule returns an HTTP handler that moves an appointment to
// a new slot. The new slot is claimed on the caller's behalf before the
// move; a claim that cannot be taken surfaces as slot_unavailable with
// the appointment untouched.
func HandleReschedule(holds HoldManager, svc Rescheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rescheduleRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.DoctorID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "doctor_id is required")
			return
		}
		day, ok := parseDate(w, req.Date)
		if !ok {
			return
		}
		slot, err := domain.ParseSlot(req.Slot)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidSlot, err.Error())
			return
		}

		caller := callerFromContext(r.Context())
		newHold, err := holds.Hold(r.Context(), req.DoctorID, day, slot, caller)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		appt, err := svc.Reschedule(r.Context(), chi.URLParam(r, "appointmentID"), caller, newHold, req.Note)
		if err != nil {
			// The claimed slot is of no use when the move is rejected.
			if !errors.Is(err, domain.ErrSlotExpired) {
				_ = holds.Release(r.Context(), newHold.ID, caller)
			}
			writeDomainError(w, err)
			return
		}

		writeAppointment(w, http.StatusOK, appt)
	}
}

// HandleCancel returns an HTTP handler for cancelling an appointment.
func HandleCancel(svc Rescheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.Cancel(r.Context(), chi.URLParam(r, "appointmentID"), callerFromContext(r.Context()))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeAppointment(w, http.StatusOK, appt)
	}
}

// HandleGetAppointment returns an HTTP handler serving one appointment.
func HandleGetAppointment(svc AppointmentGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.Get(r.Context(), chi.URLParam(r, "appointmentID"), callerFromContext(r.Context()))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeAppointment(w, http.StatusOK, appt)
	}
}

// HandleListAppointments returns an HTTP handler listing the caller's
// appointments.
func HandleListAppointments(svc AppointmentGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, err := svc.ListForPatient(r.Context(), callerFromContext(r.Context()))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if appts == nil {
			appts = []domain.Appointment{}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(appts)
	}
}

type rescheduleRequest struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
	Slot     string `json:"slot"`
	Note     string `json:"note,omitempty"`
}
