package domain

import (
	"fmt"
	"time"
)

// SlotKey identifies one bookable interval on one doctor's calendar. It is
// the unit of contention: at any instant at most one live hold or one
// booked appointment occupies a key.
type SlotKey struct {
	DoctorID string    `json:"doctor_id"`
	Day      time.Time `json:"date"`
	Slot     Slot      `json:"slot"`
}

// NewSlotKey normalizes the day component so keys compare with ==.
func NewSlotKey(doctorID string, day time.Time, slot Slot) SlotKey {
	return SlotKey{DoctorID: doctorID, Day: Day(day), Slot: slot}
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.DoctorID, k.Day.Format("2006-01-02"), k.Slot)
}
