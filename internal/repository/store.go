package repository

import (
	"context"
	"time"

	"paygate/internal/models"
)

// PaymentStore owns payment records. It is the only writer of Status and
// UpdatedAt; every record it returns is a private copy.
type PaymentStore interface {
	Create(ctx context.Context, req models.CreatePaymentRequest) (*models.Payment, error)
	Get(ctx context.Context, id string) (*models.Payment, error)
	// List returns every record in insertion order.
	List(ctx context.Context) ([]models.Payment, error)
	// Delete reports false, nil when id is unknown.
	Delete(ctx context.Context, id string) (bool, error)
	// Transition moves a record along the lifecycle. Moves out of a terminal
	// state are rejected with domain.ErrInvalidTransition.
	Transition(ctx context.Context, id, status string) (*models.Payment, error)
}

// Clock supplies timestamps to the stores.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// stamp normalizes to UTC at the precision SQL backends keep.
func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// advance returns a timestamp strictly after prev so UpdatedAt always moves forward.
func advance(now, prev time.Time) time.Time {
	now = stamp(now)
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}
