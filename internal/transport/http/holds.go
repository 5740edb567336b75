package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cimillas/clinic-booking/internal/domain"
)

// HoldManager is the slice of the hold service the hold endpoints need.
type HoldManager interface {
	Hold(ctx context.Context, doctorID string, day time.Time, slot domain.Slot, holderID string) (domain.Hold, error)
	Renew(ctx context.Context, holdID, holderID string) (domain.Hold, error)
	Release(ctx context.Context, holdID, holderID string) error
}

// HandleCreateHold returns an HTTP handler for claiming a slot.
func HandleCreateHold(svc HoldManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createHoldRequest
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

		hold, err := svc.Hold(r.Context(), req.DoctorID, day, slot, callerFromContext(r.Context()))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeHold(w, http.StatusCreated, hold)
	}
}

// HandleRenewHold returns an HTTP handler for extending a hold's TTL.
func HandleRenewHold(svc HoldManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hold, err := svc.Renew(r.Context(), chi.URLParam(r, "holdID"), callerFromContext(r.Context()))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeHold(w, http.StatusOK, hold)
	}
}

// HandleReleaseHold returns an HTTP handler for giving a slot back.
// Releasing an expired or superseded hold succeeds: the outcome the
// caller wanted already happened.
func HandleReleaseHold(svc HoldManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Release(r.Context(), chi.URLParam(r, "holdID"), callerFromContext(r.Context())); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type createHoldRequest struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
	Slot     string `json:"slot"`
}

type holdResponse struct {
	ID        string      `json:"id"`
	DoctorID  string      `json:"doctor_id"`
	Date      string      `json:"date"`
	Slot      domain.Slot `json:"slot"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func writeHold(w http.ResponseWriter, status int, hold domain.Hold) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(holdResponse{
		ID:        hold.ID,
		DoctorID:  hold.Key.DoctorID,
		Date:      hold.Key.Day.Format(dateLayout),
		Slot:      hold.Key.Slot,
		ExpiresAt: hold.ExpiresAt,
	})
}
