package domain

import "time"

type AppointmentStatus string

const (
	AppointmentStatusBooked    AppointmentStatus = "booked"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

type Channel string

const (
	ChannelOnline  Channel = "online"
	ChannelOffline Channel = "offline"
)

// ParseChannel validates a client-supplied consultation channel.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelOnline, ChannelOffline:
		return Channel(s), nil
	}
	return "", ErrInvalidChannel
}

// Appointment is a confirmed booking. It is created only by committing a
// hold; its date and slot change only through a reschedule, and status is
// the only other mutable field.
//
// HoldID records the hold that was consumed to create the appointment, so
// a client retrying a booking after a timeout gets the already-created
// appointment back instead of a duplicate.
type Appointment struct {
	ID        string            `json:"id"`
	DoctorID  string            `json:"doctor_id"`
	PatientID string            `json:"patient_id"`
	ClinicID  string            `json:"clinic_id,omitempty"`
	Location  string            `json:"location,omitempty"`
	Day       time.Time         `json:"date"`
	Slot      Slot              `json:"slot"`
	Channel   Channel           `json:"channel"`
	Note      string            `json:"note,omitempty"`
	Status    AppointmentStatus `json:"status"`
	HoldID    string            `json:"-"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Key returns the SlotKey the appointment occupies while booked.
func (a Appointment) Key() SlotKey {
	return NewSlotKey(a.DoctorID, a.Day, a.Slot)
}
