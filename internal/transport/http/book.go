package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cimillas/clinic-booking/internal/app"
	"github.com/cimillas/clinic-booking/internal/domain"
)

// Booker is the minimal interface needed to convert a hold into an
// appointment.
type Booker interface {
	Book(ctx context.Context, holdID, patientID string, details app.BookingDetails) (app.BookResult, error)
}

// HandleBook returns an HTTP handler for booking a held slot. Replaying
// the call after a timeout returns the appointment the first attempt
// created, with a 200 instead of a 201.
func HandleBook(svc Booker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bookRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		channel, err := domain.ParseChannel(req.Channel)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidChannel, "channel must be online or offline")
			return
		}

		res, err := svc.Book(r.Context(), chi.URLParam(r, "holdID"), callerFromContext(r.Context()), app.BookingDetails{
			ClinicID: req.ClinicID,
			Location: req.Location,
			Channel:  channel,
			Note:     req.Note,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		status := http.StatusCreated
		if !res.Created {
			status = http.StatusOK
		}
		writeAppointment(w, status, res.Appointment)
	}
}

type bookRequest struct {
	ClinicID string `json:"clinic_id,omitempty"`
	Location string `json:"location,omitempty"`
	Channel  string `json:"channel"`
	Note     string `json:"note,omitempty"`
}

func writeAppointment(w http.ResponseWriter, status int, appt domain.Appointment) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(appt)
}
