package app

import (
	"context"

	"github.com/cimillas/clinic-booking/internal/domain"
)

// AppointmentReader exposes the durable appointment records.
type AppointmentReader interface {
	GetAppointment(ctx context.Context, appointmentID string) (domain.Appointment, error)
	ListPatientAppointments(ctx context.Context, patientID string) ([]domain.Appointment, error)
}

// AppointmentService serves appointment reads for the patient-facing API.
type AppointmentService struct {
	store AppointmentReader
}

func NewAppointmentService(store AppointmentReader) *AppointmentService {
	return &AppointmentService{store: store}
}

func (s *AppointmentService) Get(ctx context.Context, appointmentID, patientID string) (domain.Appointment, error) {
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
	return appt, nil
}

func (s *AppointmentService) ListForPatient(ctx context.Context, patientID string) ([]domain.Appointment, error) {
	if patientID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.store.ListPatientAppointments(ctx, patientID)
}
