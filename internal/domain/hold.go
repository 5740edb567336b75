package domain

import "time"

// Hold is a short-lived soft lock on a SlotKey expressing intent to book.
// It models "a patient is actively looking at this slot", not a
// reservation guarantee: it disappears on its own when ExpiresAt passes.
//
// Generation is the per-SlotKey occupancy counter current when the hold
// was issued. A commit or renewal carrying a stale generation lost a race
// with a later occupant and is rejected.
type Hold struct {
	ID         string
	Key        SlotKey
	HolderID   string
	Generation int64
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Live reports whether the hold is still usable at the given instant.
func (h Hold) Live(now time.Time) bool {
	return h.ExpiresAt.After(now)
}
