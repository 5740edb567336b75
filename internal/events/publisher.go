// Package events delivers reservation lifecycle notifications to
// downstream collaborators (notification service, chat, UI pushes).
// Delivery is fire-and-forget: a publish failure never fails the
// operation that triggered it.
package events

import (
	"context"

	"github.com/cimillas/clinic-booking/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, ev domain.Event)
}

// Nop discards every event; used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, domain.Event) {}
