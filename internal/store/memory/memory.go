// Package memory is an in-process Store used by tests and the demo server.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yourorg/gateway-notify/internal/payment"
	"github.com/yourorg/gateway-notify/internal/store"
)

// Store keeps orders, status entries and attempts in maps guarded by one mutex.
type Store struct {
	mu       sync.Mutex
	orders   map[string]payment.Order
	statuses map[string][]payment.StatusEntry
	attempts []payment.Attempt
}

var _ store.Store = (*Store)(nil)

// New creates an empty Store seeded with orders.
func New(orders ...payment.Order) *Store {
	s := &Store{
		orders:   make(map[string]payment.Order),
		statuses: make(map[string][]payment.StatusEntry),
	}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

// SaveOrder inserts or replaces an order. A paid order stays paid with its
// original PaidAt.
func (s *Store) SaveOrder(_ context.Context, order payment.Order) error {
	if order.ID == "" {
		return fmt.Errorf("memory: order id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.orders[order.ID]; ok && prev.Paid {
		order.Paid = true
		order.PaidAt = prev.PaidAt
	}
	s.orders[order.ID] = order
	return nil
}

// FindOrder returns a copy of the stored order.
func (s *Store) FindOrder(_ context.Context, id string) (payment.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return payment.Order{}, fmt.Errorf("%w: order %s", store.ErrNotFound, id)
	}
	if o.PaidAt != nil {
		paidAt := *o.PaidAt
		o.PaidAt = &paidAt
	}
	return o, nil
}

// MarkPaid performs the unpaid to paid compare-and-set under the store lock.
func (s *Store) MarkPaid(_ context.Context, orderID string, entry payment.StatusEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return false, fmt.Errorf("%w: order %s", store.ErrNotFound, orderID)
	}
	if o.Paid {
		return false, nil
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.OrderID = orderID
	paidAt := entry.CreatedAt
	o.Paid = true
	o.PaidAt = &paidAt
	s.orders[orderID] = o
	s.statuses[orderID] = append(s.statuses[orderID], entry)
	return true, nil
}

// StatusLog returns the status entries recorded for orderID.
func (s *Store) StatusLog(_ context.Context, orderID string) ([]payment.StatusEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]payment.StatusEntry, len(s.statuses[orderID]))
	copy(out, s.statuses[orderID])
	return out, nil
}

// AppendAttempt stores an attempt.
func (s *Store) AppendAttempt(_ context.Context, attempt payment.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

// ListAttempts returns attempts created at or after since, in insertion order.
func (s *Store) ListAttempts(_ context.Context, since time.Time, limit int) ([]payment.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []payment.Attempt
	for _, a := range s.attempts {
		if a.CreatedAt.Before(since) {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
