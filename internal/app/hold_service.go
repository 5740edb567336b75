package app

import (
	"context"
	"errors"
	"time"

	"github.com/cimillas/clinic-booking/internal/clock"
	"github.com/cimillas/clinic-booking/internal/domain"
	"github.com/cimillas/clinic-booking/internal/events"
)

// HoldStore is the slice of the reservation store the hold manager needs.
// Every method is a single atomic step against one SlotKey; contention
// comes back as a typed error, never as blocking.
type HoldStore interface {
	// TryAcquireHold claims the key if it is free or occupied by an
	// expired hold, evicting the expired occupant. ErrSlotUnavailable
	// when a live hold or a booked appointment occupies it.
	TryAcquireHold(ctx context.Context, hold domain.Hold) (domain.Hold, error)
	// RenewHold extends the expiry only while the hold's generation is
	// still current; ErrSlotExpired otherwise.
	RenewHold(ctx context.Context, hold domain.Hold, expiresAt time.Time) (domain.Hold, error)
	// ReleaseHold frees the key; a no-op when the hold already expired or
	// was superseded.
	ReleaseHold(ctx context.Context, hold domain.Hold) error
	// GetHold returns the live hold with the given id.
	GetHold(ctx context.Context, holdID string) (domain.Hold, error)
	// ActiveHoldByHolder returns the holder's current live hold, if any.
	ActiveHoldByHolder(ctx context.Context, holderID string, now time.Time) (*domain.Hold, error)
}

const defaultHoldTTL = 2 * time.Minute

// HoldService issues, renews and releases slot holds. It enforces the one
// rule the store does not: a holder keeps at most one live hold at a time.
type HoldService struct {
	store   HoldStore
	clock   clock.Clock
	events  events.Publisher
	holdTTL time.Duration
}

func NewHoldService(store HoldStore, clk clock.Clock, pub events.Publisher, opts ...HoldServiceOption) *HoldService {
	svc := &HoldService{
		store:   store,
		clock:   clk,
		events:  pub,
		holdTTL: defaultHoldTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type HoldServiceOption func(*HoldService)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// TTL returns the configured hold lifetime.
func (s *HoldService) TTL() time.Duration {
	return s.holdTTL
}

// Hold claims the slot for the holder. A live hold the holder already has
// elsewhere is released first, so switching between slots while browsing
// never leaves two holds outstanding. Holding the slot the holder already
// holds renews it.
func (s *HoldService) Hold(ctx context.Context, doctorID string, day time.Time, slot domain.Slot, holderID string) (domain.Hold, error) {
	if doctorID == "" || holderID == "" {
		return domain.Hold{}, domain.ErrInvalidID
	}
	if !slot.Valid() {
		return domain.Hold{}, domain.ErrInvalidSlot
	}

	key := domain.NewSlotKey(doctorID, day, slot)
	now := s.clock.Now()

	current, err := s.store.ActiveHoldByHolder(ctx, holderID, now)
	if err != nil {
		return domain.Hold{}, err
	}
	if current != nil {
		if current.Key == key {
			renewed, err := s.store.RenewHold(ctx, *current, now.Add(s.holdTTL))
			if err == nil {
				return renewed, nil
			}
			if !errors.Is(err, domain.ErrSlotExpired) {
				return domain.Hold{}, err
			}
			// Superseded between lookup and renewal; fall through and
			// compete for the key like everyone else.
		} else {
			if err := s.store.ReleaseHold(ctx, *current); err != nil {
				return domain.Hold{}, err
			}
			s.events.Publish(ctx, domain.Event{
				Type:     domain.EventSlotReleased,
				Key:      current.Key,
				HolderID: holderID,
			})
		}
	}

	hold, err := s.store.TryAcquireHold(ctx, domain.Hold{
		ID:        newID(),
		Key:       key,
		HolderID:  holderID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.holdTTL),
	})
	if err != nil {
		return domain.Hold{}, err
	}

	s.events.Publish(ctx, domain.Event{
		Type:     domain.EventSlotHeld,
		Key:      key,
		HolderID: holderID,
	})
	return hold, nil
}

// SwitchHold moves the holder from old (possibly nil) to the new slot.
// The old hold is released first; if the new slot turns out to be taken
// the holder ends up with no hold, which mirrors what the UI shows them.
func (s *HoldService) SwitchHold(ctx context.Context, old *domain.Hold, doctorID string, day time.Time, slot domain.Slot, holderID string) (domain.Hold, error) {
	if old != nil && old.HolderID == holderID {
		if err := s.store.ReleaseHold(ctx, *old); err != nil {
			return domain.Hold{}, err
		}
		s.events.Publish(ctx, domain.Event{
			Type:     domain.EventSlotReleased,
			Key:      old.Key,
			HolderID: holderID,
		})
	}
	return s.Hold(ctx, doctorID, day, slot, holderID)
}

// Renew extends the holder's hold by one TTL from now.
func (s *HoldService) Renew(ctx context.Context, holdID, holderID string) (domain.Hold, error) {
	hold, err := s.store.GetHold(ctx, holdID)
	if err != nil {
		return domain.Hold{}, err
	}
	if hold.HolderID != holderID {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return s.store.RenewHold(ctx, hold, s.clock.Now().Add(s.holdTTL))
}

// Release gives the slot back. Releasing a hold that already expired or
// was superseded succeeds silently.
func (s *HoldService) Release(ctx context.Context, holdID, holderID string) error {
	hold, err := s.store.GetHold(ctx, holdID)
	if err != nil {
		if errors.Is(err, domain.ErrHoldNotFound) {
			return nil
		}
		return err
	}
	if hold.HolderID != holderID {
		return nil
	}
	if err := s.store.ReleaseHold(ctx, hold); err != nil {
		return err
	}
	s.events.Publish(ctx, domain.Event{
		Type:     domain.EventSlotReleased,
		Key:      hold.Key,
		HolderID: holderID,
	})
	return nil
}
