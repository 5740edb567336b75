// Package catalog maps a (doctor, date) pair to the fixed sequence of
// bookable slots for that day. It is pure configuration lookup: demand,
// holds and bookings are invisible here.
package catalog

import (
	"time"

	"github.com/cimillas/clinic-booking/internal/domain"
)

// Schedule describes one doctor's working pattern.
type Schedule struct {
	// WorkingDays holds the weekdays the doctor sees patients.
	WorkingDays map[time.Weekday]bool
	// FirstSlot and LastSlot bound the doctor's day, inclusive.
	FirstSlot domain.Slot
	LastSlot  domain.Slot
}

// DefaultSchedule is the clinic-wide pattern: Monday through Friday, the
// full slot range.
func DefaultSchedule() Schedule {
	return Schedule{
		WorkingDays: map[time.Weekday]bool{
			time.Monday:    true,
			time.Tuesday:   true,
			time.Wednesday: true,
			time.Thursday:  true,
			time.Friday:    true,
		},
		FirstSlot: domain.Slot0900,
		LastSlot:  domain.Slot1605,
	}
}

// Catalog resolves per-doctor schedules with a clinic-wide fallback. It is
// immutable after construction, so lookups need no locking.
type Catalog struct {
	fallback  Schedule
	schedules map[string]Schedule
}

func New(fallback Schedule, perDoctor map[string]Schedule) *Catalog {
	schedules := make(map[string]Schedule, len(perDoctor))
	for id, s := range perDoctor {
		schedules[id] = s
	}
	return &Catalog{fallback: fallback, schedules: schedules}
}

// NewDefault returns a catalog where every doctor follows the clinic-wide
// default schedule.
func NewDefault() *Catalog {
	return New(DefaultSchedule(), nil)
}

func (c *Catalog) schedule(doctorID string) Schedule {
	if s, ok := c.schedules[doctorID]; ok {
		return s
	}
	return c.fallback
}

// SlotsFor returns the ordered bookable slots for the doctor on the given
// day. Non-working days yield an empty slice, not an error: the
// reservation core treats "no slots" and "day off" identically.
func (c *Catalog) SlotsFor(doctorID string, day time.Time) []domain.Slot {
	s := c.schedule(doctorID)
	if !s.WorkingDays[domain.Day(day).Weekday()] {
		return nil
	}

	var slots []domain.Slot
	for _, slot := range domain.AllSlots() {
		if slot < s.FirstSlot || slot > s.LastSlot {
			continue
		}
		slots = append(slots, slot)
	}
	return slots
}

// IsWorkingDay reports whether the doctor sees patients on that weekday.
// The booking path re-checks this even though availability never offers
// slots on a day off.
func (c *Catalog) IsWorkingDay(doctorID string, day time.Time) bool {
	return c.schedule(doctorID).WorkingDays[domain.Day(day).Weekday()]
}
