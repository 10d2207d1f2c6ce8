// Package store declares the persistence collaborators of the notification
// processor. Implementations live in the memory and sqlite subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/yourorg/gateway-notify/internal/payment"
)

// ErrNotFound is returned when an order does not exist.
var ErrNotFound = errors.New("store: not found")

// OrderStore reads orders and applies the paid transition.
type OrderStore interface {
	FindOrder(ctx context.Context, id string) (payment.Order, error)

	// MarkPaid flips the order's paid flag and appends entry in one atomic
	// step. It reports false, without appending, when the order was already
	// paid. Unknown orders yield ErrNotFound.
	MarkPaid(ctx context.Context, orderID string, entry payment.StatusEntry) (bool, error)

	// SaveOrder inserts or updates an order. It never moves a paid order
	// back to unpaid.
	SaveOrder(ctx context.Context, order payment.Order) error
}

// StatusLogStore exposes the append-only order status history.
type StatusLogStore interface {
	StatusLog(ctx context.Context, orderID string) ([]payment.StatusEntry, error)
}

// AttemptLogStore is the append-only audit trail of notification attempts.
type AttemptLogStore interface {
	AppendAttempt(ctx context.Context, attempt payment.Attempt) error

	// ListAttempts returns attempts created at or after since, oldest first.
	// A limit <= 0 means no limit.
	ListAttempts(ctx context.Context, since time.Time, limit int) ([]payment.Attempt, error)
}

// Store bundles every collaborator a backend provides.
type Store interface {
	OrderStore
	StatusLogStore
	AttemptLogStore
	Close() error
}
