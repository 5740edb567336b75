// Package postgres is the authoritative reservation store. Occupancy
// lives in one slot_claims row per SlotKey; the row is never deleted so
// its generation counter totally orders every acquire, commit and vacate
// against that key. Each primitive is a single compare-and-swap
// statement: no cross-request lock is ever held over I/O, and contention
// surfaces as a typed domain error for the caller to translate.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cimillas/clinic-booking/internal/clock"
	"github.com/cimillas/clinic-booking/internal/domain"
)

type ReservationStore struct {
	pool  *pgxpool.Pool
	clock clock.Clock
}

func NewReservationStore(pool *pgxpool.Pool, clk clock.Clock) *ReservationStore {
	return &ReservationStore{pool: pool, clock: clk}
}

func (r *ReservationStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// TryAcquireHold claims the key when it is free, unseen, or occupied by
// an expired hold; the expired occupant is evicted in the same statement.
func (r *ReservationStore) TryAcquireHold(ctx context.Context, hold domain.Hold) (domain.Hold, error) {
	const stmt = `
INSERT INTO slot_claims (doctor_id, day, slot, generation, occupant, hold_id, holder_id, hold_created_at, hold_expires_at)
VALUES ($1, $2, $3, 1, 'hold', $4, $5, $6, $7)
ON CONFLICT (doctor_id, day, slot) DO UPDATE SET
	generation      = slot_claims.generation + 1,
	occupant        = 'hold',
	hold_id         = EXCLUDED.hold_id,
	holder_id       = EXCLUDED.holder_id,
	hold_created_at = EXCLUDED.hold_created_at,
	hold_expires_at = EXCLUDED.hold_expires_at,
	appointment_id  = NULL
WHERE slot_claims.occupant = 'free'
   OR (slot_claims.occupant = 'hold' AND slot_claims.hold_expires_at <= $8)
RETURNING generation`

	now := r.clock.Now()
	err := r.queryRow(ctx, stmt,
		hold.Key.DoctorID,
		hold.Key.Day,
		int16(hold.Key.Slot),
		hold.ID,
		hold.HolderID,
		hold.CreatedAt,
		hold.ExpiresAt,
		now,
	).Scan(&hold.Generation)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Hold{}, domain.ErrSlotUnavailable
		}
		return domain.Hold{}, fmt.Errorf("acquire hold: %w", err)
	}
	return hold, nil
}

// RenewHold extends the expiry while the hold is still the current
// occupant at its original generation.
func (r *ReservationStore) RenewHold(ctx context.Context, hold domain.Hold, expiresAt time.Time) (domain.Hold, error) {
	const stmt = `
UPDATE slot_claims SET hold_expires_at = $1
WHERE doctor_id = $2 AND day = $3 AND slot = $4
  AND occupant = 'hold' AND hold_id = $5 AND generation = $6`

	tag, err := r.exec(ctx, stmt,
		expiresAt,
		hold.Key.DoctorID,
		hold.Key.Day,
		int16(hold.Key.Slot),
		hold.ID,
		hold.Generation,
	)
	if err != nil {
		return domain.Hold{}, fmt.Errorf("renew hold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Hold{}, domain.ErrSlotExpired
	}
	hold.ExpiresAt = expiresAt
	return hold, nil
}

// ReleaseHold frees the key. Releasing a hold that expired or was
// superseded matches no row and succeeds silently.
func (r *ReservationStore) ReleaseHold(ctx context.Context, hold domain.Hold) error {
	const stmt = `
UPDATE slot_claims SET
	occupant        = 'free',
	generation      = generation + 1,
	hold_id         = NULL,
	holder_id       = NULL,
	hold_created_at = NULL,
	hold_expires_at = NULL
WHERE doctor_id = $1 AND day = $2 AND slot = $3
  AND occupant = 'hold' AND hold_id = $4 AND generation = $5`

	_, err := r.exec(ctx, stmt,
		hold.Key.DoctorID,
		hold.Key.Day,
		int16(hold.Key.Slot),
		hold.ID,
		hold.Generation,
	)
	if err != nil {
		return fmt.Errorf("release hold: %w", err)
	}
	return nil
}

func (r *ReservationStore) GetHold(ctx context.Context, holdID string) (domain.Hold, error) {
	const query = `
SELECT doctor_id, day, slot, generation, holder_id, hold_created_at, hold_expires_at
FROM slot_claims
WHERE hold_id = $1 AND occupant = 'hold'`

	var (
		hold domain.Hold
		slot int16
		day  time.Time
	)
	err := r.queryRow(ctx, query, holdID).Scan(
		&hold.Key.DoctorID,
		&day,
		&slot,
		&hold.Generation,
		&hold.HolderID,
		&hold.CreatedAt,
		&hold.ExpiresAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Hold{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, fmt.Errorf("get hold: %w", err)
	}
	hold.ID = holdID
	hold.Key.Day = domain.Day(day)
	hold.Key.Slot = domain.Slot(slot)
	return hold, nil
}

func (r *ReservationStore) ActiveHoldByHolder(ctx context.Context, holderID string, now time.Time) (*domain.Hold, error) {
	const query = `
SELECT doctor_id, day, slot, generation, hold_id, hold_created_at, hold_expires_at
FROM slot_claims
WHERE holder_id = $1 AND occupant = 'hold' AND hold_expires_at > $2
LIMIT 1`

	var (
		hold domain.Hold
		slot int16
		day  time.Time
	)
	err := r.queryRow(ctx, query, holderID, now).Scan(
		&hold.Key.DoctorID,
		&day,
		&slot,
		&hold.Generation,
		&hold.ID,
		&hold.CreatedAt,
		&hold.ExpiresAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("active hold by holder: %w", err)
	}
	hold.HolderID = holderID
	hold.Key.Day = domain.Day(day)
	hold.Key.Slot = domain.Slot(slot)
	return &hold, nil
}

func (r *ReservationStore) OccupiedSlots(ctx context.Context, doctorID string, day time.Time, now time.Time) ([]domain.Slot, error) {
	const query = `
SELECT slot FROM slot_claims
WHERE doctor_id = $1 AND day = $2
  AND (occupant = 'appointment' OR (occupant = 'hold' AND hold_expires_at > $3))
ORDER BY slot`

	rows, err := r.query(ctx, query, doctorID, domain.Day(day), now)
	if err != nil {
		return nil, fmt.Errorf("occupied slots: %w", err)
	}
	defer rows.Close()

	var slots []domain.Slot
	for rows.Next() {
		var slot int16
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("occupied slots: %w", err)
		}
		slots = append(slots, domain.Slot(slot))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("occupied slots: %w", err)
	}
	return slots, nil
}

// ClaimSlotForAppointment converts the hold occupant into the appointment
// occupant — the commit step. The CAS requires the hold to still be live
// at its original generation; anything else lost the race.
func (r *ReservationStore) ClaimSlotForAppointment(ctx context.Context, hold domain.Hold, appointmentID string) error {
	const stmt = `
UPDATE slot_claims SET
	occupant        = 'appointment',
	appointment_id  = $1,
	generation      = generation + 1,
	hold_id         = NULL,
	holder_id       = NULL,
	hold_created_at = NULL,
	hold_expires_at = NULL
WHERE doctor_id = $2 AND day = $3 AND slot = $4
  AND occupant = 'hold' AND hold_id = $5 AND generation = $6 AND hold_expires_at > $7`

	tag, err := r.exec(ctx, stmt,
		appointmentID,
		hold.Key.DoctorID,
		hold.Key.Day,
		int16(hold.Key.Slot),
		hold.ID,
		hold.Generation,
		r.clock.Now(),
	)
	if err != nil {
		return fmt.Errorf("claim slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSlotExpired
	}
	return nil
}

// VacateSlot frees a key occupied by that exact appointment; vacating a
// key someone else owns by now is a no-op.
func (r *ReservationStore) VacateSlot(ctx context.Context, key domain.SlotKey, appointmentID string) error {
	const stmt = `
UPDATE slot_claims SET
	occupant       = 'free',
	appointment_id = NULL,
	generation     = generation + 1
WHERE doctor_id = $1 AND day = $2 AND slot = $3
  AND occupant = 'appointment' AND appointment_id = $4`

	_, err := r.exec(ctx, stmt,
		key.DoctorID,
		key.Day,
		int16(key.Slot),
		appointmentID,
	)
	if err != nil {
		return fmt.Errorf("vacate slot: %w", err)
	}
	return nil
}

func (r *ReservationStore) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ReservationStore) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *ReservationStore) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
