package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RouterDeps collects the services the router exposes.
type RouterDeps struct {
	Availability AvailabilityLister
	Holds        HoldManager
	Booking      Booker
	Reschedule   Rescheduler
	Appointments AppointmentGetter
}

// NewRouter wires the reservation API. Everything except the health
// probe sits behind the caller-identity middleware.
func NewRouter(deps RouterDeps, logger zerolog.Logger, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(logger))
	r.Use(CORS(corsOrigins))

	r.Get("/health", HealthHandler)

	r.Group(func(r chi.Router) {
		r.Use(CallerIdentity)

		r.Get("/availability", HandleAvailability(deps.Availability))

		r.Post("/holds", HandleCreateHold(deps.Holds))
		r.Post("/holds/{holdID}/renew", HandleRenewHold(deps.Holds))
		r.Post("/holds/{holdID}/release", HandleReleaseHold(deps.Holds))
		r.Post("/holds/{holdID}/book", HandleBook(deps.Booking))

		r.Get("/appointments", HandleListAppointments(deps.Appointments))
		r.Get("/appointments/{appointmentID}", HandleGetAppointment(deps.Appointments))
		r.Post("/appointments/{appointmentID}/reschedule", HandleReschedule(deps.Holds, deps.Reschedule))
		r.Post("/appointments/{appointmentID}/cancel", HandleCancel(deps.Reschedule))
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})

	return r
}
