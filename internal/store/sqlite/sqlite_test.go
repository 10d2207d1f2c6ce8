package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/gateway-notify/internal/payment"
	"github.com/yourorg/gateway-notify/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "notify.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedOrder(t *testing.T, s *Store) payment.Order {
	t.Helper()
	o := payment.Order{
		ID:              "1001",
		Total:           decimal.RequireFromString("49.99"),
		Currency:        "USD",
		Email:           "jo@example.com",
		Billing:         payment.Address{FirstName: "Jo", Street: "123 Main St\nSuite 4", Country: "US"},
		PaymentMethodID: "custom-main",
		CreatedAt:       time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveOrder(context.Background(), o))
	return o
}

func TestStore_SaveAndFindOrder(t *testing.T) {
	s := openTestStore(t)
	want := seedOrder(t, s)

	got, err := s.FindOrder(context.Background(), "1001")
	require.NoError(t, err)
	assert.True(t, want.Total.Equal(got.Total))
	assert.Equal(t, want.Billing, got.Billing)
	assert.Equal(t, "custom-main", got.PaymentMethodID)
	assert.False(t, got.Paid)
	assert.Nil(t, got.PaidAt)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))

	_, err = s.FindOrder(context.Background(), "404")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestStore_MarkPaidIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	seedOrder(t, s)
	ctx := context.Background()

	changed, err := s.MarkPaid(ctx, "1001", payment.StatusEntry{StatusID: 2, Gateway: "custom", Comment: "txn 77"})
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.MarkPaid(ctx, "1001", payment.StatusEntry{StatusID: 2, Gateway: "custom"})
	require.NoError(t, err)
	assert.False(t, changed)

	entries, err := s.StatusLog(ctx, "1001")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].StatusID)
	assert.Equal(t, "txn 77", entries[0].Comment)

	o, err := s.FindOrder(ctx, "1001")
	require.NoError(t, err)
	assert.True(t, o.Paid)
	assert.NotNil(t, o.PaidAt)

	_, err = s.MarkPaid(ctx, "missing", payment.StatusEntry{StatusID: 2})
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestStore_SaveOrderKeepsPaidState(t *testing.T) {
	s := openTestStore(t)
	o := seedOrder(t, s)
	ctx := context.Background()

	changed, err := s.MarkPaid(ctx, "1001", payment.StatusEntry{StatusID: 2, Gateway: "custom"})
	require.NoError(t, err)
	require.True(t, changed)
	paid, err := s.FindOrder(ctx, "1001")
	require.NoError(t, err)
	require.NotNil(t, paid.PaidAt)

	// Re-saving the unpaid definition, as a restart re-seed does.
	o.Email = "new@example.com"
	o.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveOrder(ctx, o))

	got, err := s.FindOrder(ctx, "1001")
	require.NoError(t, err)
	assert.True(t, got.Paid)
	require.NotNil(t, got.PaidAt)
	assert.True(t, paid.PaidAt.Equal(*got.PaidAt))
	assert.Equal(t, "new@example.com", got.Email)
	assert.True(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC).Equal(got.CreatedAt))

	changed, err = s.MarkPaid(ctx, "1001", payment.StatusEntry{StatusID: 2, Gateway: "custom"})
	require.NoError(t, err)
	assert.False(t, changed)
	entries, err := s.StatusLog(ctx, "1001")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_MarkPaidConcurrent(t *testing.T) {
	s := openTestStore(t)
	seedOrder(t, s)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	transitions := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changed, err := s.MarkPaid(ctx, "1001", payment.StatusEntry{StatusID: 2, Gateway: "custom"})
			assert.NoError(t, err)
			if changed {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, transitions)
	entries, err := s.StatusLog(ctx, "1001")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_Attempts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	orderID := "1001"

	require.NoError(t, s.AppendAttempt(ctx, payment.Attempt{
		ID: "a1", Gateway: "custom", Kind: "OrderNotFound", Message: "order reference missing",
		Request: `{"amount":"49.99"}`, CreatedAt: base,
	}))
	require.NoError(t, s.AppendAttempt(ctx, payment.Attempt{
		ID: "a2", OrderID: &orderID, Gateway: "custom", Success: true, Message: "payment accepted",
		TraceID: "t-1", SpanID: "s-1", CreatedAt: base.Add(500 * time.Millisecond),
	}))
	require.NoError(t, s.AppendAttempt(ctx, payment.Attempt{
		ID: "a3", OrderID: &orderID, Gateway: "custom", Success: true, CreatedAt: base.Add(time.Second),
	}))

	all, err := s.ListAttempts(ctx, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Nil(t, all[0].OrderID)
	assert.False(t, all[0].Success)
	assert.Equal(t, "OrderNotFound", all[0].Kind)
	require.NotNil(t, all[1].OrderID)
	assert.Equal(t, "1001", *all[1].OrderID)
	assert.True(t, all[1].Success)
	assert.Equal(t, "t-1", all[1].TraceID)

	since, err := s.ListAttempts(ctx, base.Add(500*time.Millisecond), 0)
	require.NoError(t, err)
	require.Len(t, since, 2)
	assert.Equal(t, "a2", since[0].ID)

	limited, err := s.ListAttempts(ctx, time.Time{}, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	err = s.AppendAttempt(ctx, payment.Attempt{ID: "a1"})
	assert.Error(t, err, "attempt ids are unique")
}
