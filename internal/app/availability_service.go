package app

import (
	"context"
	"time"

	"github.com/cimillas/clinic-booking/internal/catalog"
	"github.com/cimillas/clinic-booking/internal/clock"
	"github.com/cimillas/clinic-booking/internal/domain"
)

// AvailabilityStore exposes the read path of the reservation store.
type AvailabilityStore interface {
	// OccupiedSlots returns the slots on the doctor's day held by a live
	// hold or a booked appointment, as of now.
	OccupiedSlots(ctx context.Context, doctorID string, day time.Time, now time.Time) ([]domain.Slot, error)
}

// SlotAvailability is one row of the availability listing.
type SlotAvailability struct {
	Slot domain.Slot `json:"slot"`
	Free bool        `json:"free"`
}

// AvailabilityService joins the slot catalog with current occupancy.
// Nothing is cached across calls: every listing re-reads through the
// store so the caller never acts on staler data than the store itself.
type AvailabilityService struct {
	store   AvailabilityStore
	catalog *catalog.Catalog
	clock   clock.Clock
}

func NewAvailabilityService(store AvailabilityStore, cat *catalog.Catalog, clk clock.Clock) *AvailabilityService {
	return &AvailabilityService{
		store:   store,
		catalog: cat,
		clock:   clk,
	}
}

// Availability lists the doctor's slots for the day with their current
// free/taken state. Non-working days list as empty.
func (s *AvailabilityService) Availability(ctx context.Context, doctorID string, day time.Time) ([]SlotAvailability, error) {
	if doctorID == "" {
		return nil, domain.ErrInvalidID
	}

	slots := s.catalog.SlotsFor(doctorID, day)
	if len(slots) == 0 {
		return []SlotAvailability{}, nil
	}

	occupied, err := s.store.OccupiedSlots(ctx, doctorID, domain.Day(day), s.clock.Now())
	if err != nil {
		return nil, err
	}
	taken := make(map[domain.Slot]bool, len(occupied))
	for _, slot := range occupied {
		taken[slot] = true
	}

	out := make([]SlotAvailability, 0, len(slots))
	for _, slot := range slots {
		out = append(out, SlotAvailability{Slot: slot, Free: !taken[slot]})
	}
	return out, nil
}
