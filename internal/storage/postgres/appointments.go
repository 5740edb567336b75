package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cimillas/clinic-booking/internal/domain"
)

const appointmentColumns = `id, doctor_id, patient_id, clinic_id, location, day, slot, channel, note, status, hold_id, created_at, updated_at`

func (r *ReservationStore) CreateAppointment(ctx context.Context, appt domain.Appointment) error {
	const stmt = `
INSERT INTO appointments (id, doctor_id, patient_id, clinic_id, location, day, slot, channel, note, status, hold_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.exec(ctx, stmt,
		appt.ID,
		appt.DoctorID,
		appt.PatientID,
		appt.ClinicID,
		appt.Location,
		appt.Day,
		int16(appt.Slot),
		appt.Channel,
		appt.Note,
		appt.Status,
		appt.HoldID,
		appt.CreatedAt,
		appt.UpdatedAt,
	)
	if err != nil {
		// The partial unique index on booked (doctor, day, slot) backs up
		// the claim CAS; tripping it means the caller lost a race the
		// claim should already have caught.
		if isUniqueViolation(err) {
			return domain.ErrSlotUnavailable
		}
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

func (r *ReservationStore) UpdateAppointment(ctx context.Context, appt domain.Appointment) error {
	const stmt = `
UPDATE appointments SET
	doctor_id  = $2,
	day        = $3,
	slot       = $4,
	note       = $5,
	status     = $6,
	hold_id    = $7,
	updated_at = $8
WHERE id = $1`

	tag, err := r.exec(ctx, stmt,
		appt.ID,
		appt.DoctorID,
		appt.Day,
		int16(appt.Slot),
		appt.Note,
		appt.Status,
		appt.HoldID,
		appt.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlotUnavailable
		}
		return fmt.Errorf("update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAppointmentNotFound
	}
	return nil
}

func (r *ReservationStore) GetAppointment(ctx context.Context, appointmentID string) (domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	appt, err := scanAppointment(r.queryRow(ctx, query, appointmentID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Appointment{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Appointment{}, domain.ErrAppointmentNotFound
		}
		return domain.Appointment{}, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

func (r *ReservationStore) AppointmentByHoldID(ctx context.Context, holdID string) (*domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE hold_id = $1`

	appt, err := scanAppointment(r.queryRow(ctx, query, holdID))
	if err != nil {
		if isInvalidUUID(err) || err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("appointment by hold: %w", err)
	}
	return &appt, nil
}

func (r *ReservationStore) PatientHasBooking(ctx context.Context, patientID string, day time.Time, slot domain.Slot, excludeAppointmentID string) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1 FROM appointments
	WHERE patient_id = $1 AND day = $2 AND slot = $3 AND status = 'booked'
	  AND ($4 = '' OR id::text <> $4)
)`

	var exists bool
	err := r.queryRow(ctx, query, patientID, domain.Day(day), int16(slot), excludeAppointmentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("patient has booking: %w", err)
	}
	return exists, nil
}

func (r *ReservationStore) ListPatientAppointments(ctx context.Context, patientID string) ([]domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE patient_id = $1 ORDER BY day, slot`

	rows, err := r.query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	defer rows.Close()

	var out []domain.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("list patient appointments: %w", err)
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (domain.Appointment, error) {
	var (
		appt domain.Appointment
		day  time.Time
		slot int16
	)
	err := row.Scan(
		&appt.ID,
		&appt.DoctorID,
		&appt.PatientID,
		&appt.ClinicID,
		&appt.Location,
		&day,
		&slot,
		&appt.Channel,
		&appt.Note,
		&appt.Status,
		&appt.HoldID,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return domain.Appointment{}, err
	}
	appt.Day = domain.Day(day)
	appt.Slot = domain.Slot(slot)
	return appt, nil
}
