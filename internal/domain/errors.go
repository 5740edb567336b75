package domain

import "errors"

var (
	// ErrSlotUnavailable: another live hold or booking occupies the key.
	// Recoverable by choosing a different slot.
	ErrSlotUnavailable = errors.New("slot unavailable")
	// ErrSlotExpired: the caller's hold lost the race. Recoverable by
	// re-fetching availability and holding again.
	ErrSlotExpired = errors.New("slot hold expired")
	// ErrPatientConflict: the patient already has a booked appointment in
	// the same interval.
	ErrPatientConflict = errors.New("patient already booked at this time")
	// ErrInvalidDay: the requested date is not a working day.
	ErrInvalidDay = errors.New("not a working day")

	ErrInvalidSlot          = errors.New("unknown slot")
	ErrInvalidID            = errors.New("invalid id")
	ErrInvalidChannel       = errors.New("invalid channel")
	ErrHoldNotFound         = errors.New("hold not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrAppointmentCancelled = errors.New("appointment already cancelled")
	ErrWrongPatient         = errors.New("appointment belongs to another patient")
)
