// Package memory implements the reservation store as mutex-guarded maps.
// It backs service unit tests and the dev profile; semantics match the
// postgres implementation, including the per-key generation counter.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cimillas/clinic-booking/internal/clock"
	"github.com/cimillas/clinic-booking/internal/domain"
)

type occupant int

const (
	occupantFree occupant = iota
	occupantHold
	occupantAppointment
)

// claim is the occupancy record for one SlotKey. Rows are never removed:
// the generation counter must survive evictions so stale holds keep
// losing their CAS.
type claim struct {
	generation    int64
	occupant      occupant
	hold          domain.Hold
	appointmentID string
}

type ReservationStore struct {
	mu           sync.Mutex
	clock        clock.Clock
	claims       map[domain.SlotKey]claim
	holdKeys     map[string]domain.SlotKey
	appointments map[string]domain.Appointment
}

func NewReservationStore(clk clock.Clock) *ReservationStore {
	return &ReservationStore{
		clock:        clk,
		claims:       make(map[domain.SlotKey]claim),
		holdKeys:     make(map[string]domain.SlotKey),
		appointments: make(map[string]domain.Appointment),
	}
}

type txKey struct{}

// WithTx runs fn under the store lock and rolls the maps back when fn
// fails, so multi-step commits observe the same all-or-nothing contract
// as the postgres transaction.
func (s *ReservationStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapClaims := make(map[domain.SlotKey]claim, len(s.claims))
	for k, v := range s.claims {
		snapClaims[k] = v
	}
	snapHoldKeys := make(map[string]domain.SlotKey, len(s.holdKeys))
	for k, v := range s.holdKeys {
		snapHoldKeys[k] = v
	}
	snapAppointments := make(map[string]domain.Appointment, len(s.appointments))
	for k, v := range s.appointments {
		snapAppointments[k] = v
	}

	if err := fn(context.WithValue(ctx, txKey{}, struct{}{})); err != nil {
		s.claims = snapClaims
		s.holdKeys = snapHoldKeys
		s.appointments = snapAppointments
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	return ctx.Value(txKey{}) != nil
}

func (s *ReservationStore) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *ReservationStore) TryAcquireHold(ctx context.Context, hold domain.Hold) (domain.Hold, error) {
	defer s.lock(ctx)()

	now := s.clock.Now()
	c := s.claims[hold.Key]

	switch c.occupant {
	case occupantAppointment:
		return domain.Hold{}, domain.ErrSlotUnavailable
	case occupantHold:
		if c.hold.Live(now) {
			return domain.Hold{}, domain.ErrSlotUnavailable
		}
		// Expired occupant: evict it as part of the acquire.
		delete(s.holdKeys, c.hold.ID)
	}

	c.generation++
	c.occupant = occupantHold
	hold.Generation = c.generation
	c.hold = hold
	c.appointmentID = ""
	s.claims[hold.Key] = c
	s.holdKeys[hold.ID] = hold.Key
	return hold, nil
}

func (s *ReservationStore) RenewHold(ctx context.Context, hold domain.Hold, expiresAt time.Time) (domain.Hold, error) {
	defer s.lock(ctx)()

	c, ok := s.claims[hold.Key]
	if !ok || c.occupant != occupantHold || c.hold.ID != hold.ID || c.generation != hold.Generation {
		return domain.Hold{}, domain.ErrSlotExpired
	}

	c.hold.ExpiresAt = expiresAt
	s.claims[hold.Key] = c
	return c.hold, nil
}

func (s *ReservationStore) ReleaseHold(ctx context.Context, hold domain.Hold) error {
	defer s.lock(ctx)()

	c, ok := s.claims[hold.Key]
	if !ok || c.occupant != occupantHold || c.hold.ID != hold.ID || c.generation != hold.Generation {
		return nil
	}

	delete(s.holdKeys, hold.ID)
	c.occupant = occupantFree
	c.hold = domain.Hold{}
	c.generation++
	s.claims[hold.Key] = c
	return nil
}

func (s *ReservationStore) GetHold(ctx context.Context, holdID string) (domain.Hold, error) {
	defer s.lock(ctx)()

	key, ok := s.holdKeys[holdID]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	c := s.claims[key]
	if c.occupant != occupantHold || c.hold.ID != holdID {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return c.hold, nil
}

func (s *ReservationStore) ActiveHoldByHolder(ctx context.Context, holderID string, now time.Time) (*domain.Hold, error) {
	defer s.lock(ctx)()

	for _, key := range s.holdKeys {
		c := s.claims[key]
		if c.occupant == occupantHold && c.hold.HolderID == holderID && c.hold.Live(now) {
			hold := c.hold
			return &hold, nil
		}
	}
	return nil, nil
}

func (s *ReservationStore) OccupiedSlots(ctx context.Context, doctorID string, day time.Time, now time.Time) ([]domain.Slot, error) {
	defer s.lock(ctx)()

	day = domain.Day(day)
	var slots []domain.Slot
	for key, c := range s.claims {
		if key.DoctorID != doctorID || !key.Day.Equal(day) {
			continue
		}
		switch c.occupant {
		case occupantAppointment:
			slots = append(slots, key.Slot)
		case occupantHold:
			if c.hold.Live(now) {
				slots = append(slots, key.Slot)
			}
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	return slots, nil
}

func (s *ReservationStore) ClaimSlotForAppointment(ctx context.Context, hold domain.Hold, appointmentID string) error {
	defer s.lock(ctx)()

	now := s.clock.Now()
	c, ok := s.claims[hold.Key]
	if !ok || c.occupant != occupantHold || c.hold.ID != hold.ID ||
		c.generation != hold.Generation || !c.hold.Live(now) {
		return domain.ErrSlotExpired
	}

	delete(s.holdKeys, hold.ID)
	c.occupant = occupantAppointment
	c.hold = domain.Hold{}
	c.appointmentID = appointmentID
	c.generation++
	s.claims[hold.Key] = c
	return nil
}

func (s *ReservationStore) VacateSlot(ctx context.Context, key domain.SlotKey, appointmentID string) error {
	defer s.lock(ctx)()

	c, ok := s.claims[key]
	if !ok || c.occupant != occupantAppointment || c.appointmentID != appointmentID {
		return nil
	}

	c.occupant = occupantFree
	c.appointmentID = ""
	c.generation++
	s.claims[key] = c
	return nil
}

func (s *ReservationStore) CreateAppointment(ctx context.Context, appt domain.Appointment) error {
	defer s.lock(ctx)()
	s.appointments[appt.ID] = appt
	return nil
}

func (s *ReservationStore) UpdateAppointment(ctx context.Context, appt domain.Appointment) error {
	defer s.lock(ctx)()
	if _, ok := s.appointments[appt.ID]; !ok {
		return domain.ErrAppointmentNotFound
	}
	s.appointments[appt.ID] = appt
	return nil
}

func (s *ReservationStore) GetAppointment(ctx context.Context, appointmentID string) (domain.Appointment, error) {
	defer s.lock(ctx)()
	appt, ok := s.appointments[appointmentID]
	if !ok {
		return domain.Appointment{}, domain.ErrAppointmentNotFound
	}
	return appt, nil
}

func (s *ReservationStore) AppointmentByHoldID(ctx context.Context, holdID string) (*domain.Appointment, error) {
	defer s.lock(ctx)()
	for _, appt := range s.appointments {
		if appt.HoldID == holdID {
			a := appt
			return &a, nil
		}
	}
	return nil, nil
}

func (s *ReservationStore) PatientHasBooking(ctx context.Context, patientID string, day time.Time, slot domain.Slot, excludeAppointmentID string) (bool, error) {
	defer s.lock(ctx)()

	day = domain.Day(day)
	for _, appt := range s.appointments {
		if appt.ID == excludeAppointmentID {
			continue
		}
		if appt.PatientID == patientID && appt.Status == domain.AppointmentStatusBooked &&
			appt.Day.Equal(day) && appt.Slot == slot {
			return true, nil
		}
	}
	return false, nil
}

func (s *ReservationStore) ListPatientAppointments(ctx context.Context, patientID string) ([]domain.Appointment, error) {
	defer s.lock(ctx)()

	var out []domain.Appointment
	for _, appt := range s.appointments {
		if appt.PatientID == patientID {
			out = append(out, appt)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Day.Equal(out[j].Day) {
			return out[i].Day.Before(out[j].Day)
		}
		return out[i].Slot.Before(out[j].Slot)
	})
	return out, nil
}
