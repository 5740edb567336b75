package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cimillas/clinic-booking/internal/domain"
)

const (
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeMissingRequiredField = "missing_required_field"
	codeInvalidDate          = "invalid_date"
	codeInvalidSlot          = "invalid_slot"
	codeInvalidChannel       = "invalid_channel"
	codeInvalidID            = "invalid_id"
	codeCallerRequired       = "caller_id_required"
	codeSlotUnavailable      = "slot_unavailable"
	codeSlotExpired          = "slot_expired"
	codePatientConflict      = "patient_conflict"
	codeInvalidDay           = "invalid_day"
	codeHoldNotFound         = "hold_not_found"
	codeAppointmentNotFound  = "appointment_not_found"
	codeAppointmentCancelled = "appointment_cancelled"
	codeForbidden            = "forbidden"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps the reservation error taxonomy onto HTTP.
// Contention errors are 409s the client recovers from by re-fetching
// availability; only unknown errors become 500s.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, codeSlotUnavailable, "this slot was just taken, please pick another")
	case errors.Is(err, domain.ErrSlotExpired):
		writeError(w, http.StatusConflict, codeSlotExpired, "this slot was just taken, please pick another")
	case errors.Is(err, domain.ErrPatientConflict):
		writeError(w, http.StatusConflict, codePatientConflict, "you already have an appointment at this time")
	case errors.Is(err, domain.ErrInvalidDay):
		writeError(w, http.StatusUnprocessableEntity, codeInvalidDay, "this day is not bookable")
	case errors.Is(err, domain.ErrHoldNotFound):
		writeError(w, http.StatusNotFound, codeHoldNotFound, domain.ErrHoldNotFound.Error())
	case errors.Is(err, domain.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, codeAppointmentNotFound, domain.ErrAppointmentNotFound.Error())
	case errors.Is(err, domain.ErrAppointmentCancelled):
		writeError(w, http.StatusConflict, codeAppointmentCancelled, domain.ErrAppointmentCancelled.Error())
	case errors.Is(err, domain.ErrWrongPatient):
		writeError(w, http.StatusForbidden, codeForbidden, "forbidden")
	case errors.Is(err, domain.ErrInvalidSlot):
		writeError(w, http.StatusBadRequest, codeInvalidSlot, domain.ErrInvalidSlot.Error())
	case errors.Is(err, domain.ErrInvalidChannel):
		writeError(w, http.StatusBadRequest, codeInvalidChannel, domain.ErrInvalidChannel.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, domain.ErrInvalidID.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
