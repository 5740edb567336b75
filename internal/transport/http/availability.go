package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cimillas/clinic-booking/internal/app"
)

// AvailabilityLister is the minimal interface needed to list a doctor's
// day.
type AvailabilityLister interface {
	Availability(ctx context.Context, doctorID string, day time.Time) ([]app.SlotAvailability, error)
}

// HandleAvailability returns an HTTP handler for the availability
// listing.
func HandleAvailability(svc AvailabilityLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID := r.URL.Query().Get("doctor_id")
		if doctorID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "doctor_id is required")
			return
		}
		day, ok := parseDate(w, r.URL.Query().Get("date"))
		if !ok {
			return
		}

		slots, err := svc.Availability(r.Context(), doctorID, day)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(availabilityResponse{
			DoctorID: doctorID,
			Date:     day.Format(dateLayout),
			Slots:    slots,
		})
	}
}

type availabilityResponse struct {
	DoctorID string                 `json:"doctor_id"`
	Date     string                 `json:"date"`
	Slots    []app.SlotAvailability `json:"slots"`
}

const dateLayout = "2006-01-02"

func parseDate(w http.ResponseWriter, raw string) (time.Time, bool) {
	if raw == "" {
		writeError(w, http.StatusBadRequest, codeMissingRequiredField, "date is required")
		return time.Time{}, false
	}
	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidDate, "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return day, true
}
