package domain

// Event is a fire-and-forget notification for downstream collaborators
// (notification service, chat, UI pushes). Subscribers assume
// at-least-once delivery.
type Event struct {
	Type        EventType    `json:"type"`
	Key         SlotKey      `json:"slot_key"`
	HolderID    string       `json:"holder_id,omitempty"`
	Appointment *Appointment `json:"appointment,omitempty"`
	// OldKey is set on reschedules: the key vacated by the move.
	OldKey *SlotKey `json:"old_slot_key,omitempty"`
}

type EventType string

const (
	EventSlotHeld             EventType = "slot_held"
	EventSlotReleased         EventType = "slot_released"
	EventSlotBooked           EventType = "slot_booked"
	EventSlotRescheduled      EventType = "slot_rescheduled"
	EventAppointmentCancelled EventType = "appointment_cancelled"
)
