package domain

import (
	"fmt"
	"time"
)

// Slot is one of the fixed 25-minute consultation intervals in a clinic
// day. Slots are a closed enumeration shared with clients, so both sides
// agree on identity and ordering; they are never derived from arbitrary
// timestamps.
type Slot int

const (
	Slot0900 Slot = iota
	Slot0925
	Slot0950
	Slot1015
	Slot1040
	Slot1105
	Slot1130
	Slot1155
	Slot1220
	Slot1245
	Slot1310
	Slot1335
	Slot1400
	Slot1425
	Slot1450
	Slot1515
	Slot1540
	Slot1605

	slotCount
)

// SlotDuration is the fixed length of every consultation slot.
const SlotDuration = 25 * time.Minute

var slotLabels = [slotCount]string{
	"09:00", "09:25", "09:50", "10:15", "10:40", "11:05",
	"11:30", "11:55", "12:20", "12:45", "13:10", "13:35",
	"14:00", "14:25", "14:50", "15:15", "15:40", "16:05",
}

// AllSlots returns every slot in the enumeration, in order.
func AllSlots() []Slot {
	slots := make([]Slot, slotCount)
	for i := range slots {
		slots[i] = Slot(i)
	}
	return slots
}

// Valid reports whether s is a member of the enumeration.
func (s Slot) Valid() bool {
	return s >= 0 && s < slotCount
}

// Before reports whether s starts earlier in the day than other.
func (s Slot) Before(other Slot) bool {
	return s < other
}

func (s Slot) String() string {
	if !s.Valid() {
		return fmt.Sprintf("slot(%d)", int(s))
	}
	return slotLabels[s]
}

// StartOn returns the wall-clock start of the slot on the given day.
func (s Slot) StartOn(day time.Time) time.Time {
	day = Day(day)
	return day.Add(9*time.Hour + time.Duration(s)*SlotDuration)
}

// MarshalJSON encodes the slot as its HH:MM label, the form shared with
// clients.
func (s Slot) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlot, int(s))
	}
	return []byte(`"` + slotLabels[s] + `"`), nil
}

func (s *Slot) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidSlot, data)
	}
	parsed, err := ParseSlot(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSlot maps a HH:MM label back to its slot value.
func ParseSlot(label string) (Slot, error) {
	for i, l := range slotLabels {
		if l == label {
			return Slot(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, label)
}

// Day truncates t to a UTC calendar date. All SlotKey dates are stored in
// this form so equality is byte-for-byte.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
