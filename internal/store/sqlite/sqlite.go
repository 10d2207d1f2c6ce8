// Package sqlite provides a SQLite-backed implementation of store.Store.
//
// Orders, the status history and the attempt log share one database file.
// The status and attempt tables are append-only.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourorg/gateway-notify/internal/payment"
	"github.com/yourorg/gateway-notify/internal/store"

	// Register the pure-Go SQLite driver.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id                TEXT    PRIMARY KEY,
    -- decimal string, never a float
    total             TEXT    NOT NULL,
    currency          TEXT    NOT NULL DEFAULT '',
    email             TEXT    NOT NULL DEFAULT '',
    billing           TEXT    NOT NULL DEFAULT '{}',
    shipping          TEXT    NOT NULL DEFAULT '{}',
    payment_method_id TEXT    NOT NULL DEFAULT '',
    paid              INTEGER NOT NULL DEFAULT 0,
    paid_at           TEXT,
    created_at        TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS order_status_log (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id   TEXT    NOT NULL REFERENCES orders(id),
    status_id  INTEGER NOT NULL,
    gateway    TEXT    NOT NULL DEFAULT '',
    comment    TEXT    NOT NULL DEFAULT '',
    created_at TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_status_log_order ON order_status_log(order_id, id);

CREATE TABLE IF NOT EXISTS payment_attempts (
    id         TEXT    PRIMARY KEY,
    -- NULL when the notification could not be tied to an order
    order_id   TEXT,
    gateway    TEXT    NOT NULL DEFAULT '',
    kind       TEXT    NOT NULL DEFAULT '',
    message    TEXT    NOT NULL DEFAULT '',
    success    INTEGER NOT NULL,
    request    TEXT    NOT NULL DEFAULT '',
    response   TEXT    NOT NULL DEFAULT '',
    trace_id   TEXT    NOT NULL DEFAULT '',
    span_id    TEXT    NOT NULL DEFAULT '',
    created_at TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_payment_attempts_created ON payment_attempts(created_at);
CREATE INDEX IF NOT EXISTS idx_payment_attempts_order ON payment_attempts(order_id);
`

// Store is the SQLite implementation of store.Store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the SQLite database at path and applies the schema.
//
//	s, err := sqlite.Open("./data/notify.db")
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// Single writer connection; MarkPaid transactions serialize on it.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveOrder inserts an order or updates its details. A paid order stays paid
// with its original paid_at.
func (s *Store) SaveOrder(ctx context.Context, o payment.Order) error {
	billing, err := json.Marshal(o.Billing)
	if err != nil {
		return fmt.Errorf("sqlite: encode billing for %q: %w", o.ID, err)
	}
	shipping, err := json.Marshal(o.Shipping)
	if err != nil {
		return fmt.Errorf("sqlite: encode shipping for %q: %w", o.ID, err)
	}
	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var paidAt any
	if o.PaidAt != nil {
		paidAt = formatTime(*o.PaidAt)
	}

	const q = `
		INSERT INTO orders
			(id, total, currency, email, billing, shipping, payment_method_id, paid, paid_at, created_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			total = excluded.total,
			currency = excluded.currency,
			email = excluded.email,
			billing = excluded.billing,
			shipping = excluded.shipping,
			payment_method_id = excluded.payment_method_id,
			paid = MAX(orders.paid, excluded.paid),
			paid_at = COALESCE(orders.paid_at, excluded.paid_at)`
	_, err = s.db.ExecContext(ctx, q,
		o.ID, o.Total.String(), o.Currency, o.Email,
		string(billing), string(shipping), o.PaymentMethodID,
		boolToInt(o.Paid), paidAt, formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save order %q: %w", o.ID, err)
	}
	return nil
}

// FindOrder loads one order.
func (s *Store) FindOrder(ctx context.Context, id string) (payment.Order, error) {
	const q = `
		SELECT id, total, currency, email, billing, shipping, payment_method_id,
		       paid, paid_at, created_at
		FROM   orders
		WHERE  id = ?`

	var (
		o                 payment.Order
		total             string
		billing, shipping string
		paid              int
		paidAt            sql.NullString
		createdAt         string
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&o.ID, &total, &o.Currency, &o.Email, &billing, &shipping,
		&o.PaymentMethodID, &paid, &paidAt, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return payment.Order{}, fmt.Errorf("%w: order %s", store.ErrNotFound, id)
	}
	if err != nil {
		return payment.Order{}, fmt.Errorf("sqlite: find order %q: %w", id, err)
	}

	if o.Total, err = decimal.NewFromString(total); err != nil {
		return payment.Order{}, fmt.Errorf("sqlite: order %q total %q: %w", id, total, err)
	}
	if err := json.Unmarshal([]byte(billing), &o.Billing); err != nil {
		return payment.Order{}, fmt.Errorf("sqlite: order %q billing: %w", id, err)
	}
	if err := json.Unmarshal([]byte(shipping), &o.Shipping); err != nil {
		return payment.Order{}, fmt.Errorf("sqlite: order %q shipping: %w", id, err)
	}
	o.Paid = paid == 1
	if paidAt.Valid {
		t, err := parseRFC3339(paidAt.String)
		if err != nil {
			return payment.Order{}, err
		}
		o.PaidAt = &t
	}
	if o.CreatedAt, err = parseRFC3339(createdAt); err != nil {
		return payment.Order{}, err
	}
	return o, nil
}

// MarkPaid runs the conditional update and the status insert in one
// transaction. Only the caller whose UPDATE affects a row appends the entry.
func (s *Store) MarkPaid(ctx context.Context, orderID string, entry payment.StatusEntry) (changed bool, err error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	ts := formatTime(entry.CreatedAt)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: begin mark paid %q: %w", orderID, err)
	}
	defer func() {
		if err != nil || !changed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET paid = 1, paid_at = ? WHERE id = ? AND paid = 0`, ts, orderID)
	if err != nil {
		return false, fmt.Errorf("sqlite: mark paid %q: %w", orderID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: mark paid %q rows affected: %w", orderID, err)
	}
	if n == 0 {
		var exists int
		err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM orders WHERE id = ?`, orderID).Scan(&exists)
		if err != nil {
			return false, fmt.Errorf("sqlite: mark paid %q lookup: %w", orderID, err)
		}
		if exists == 0 {
			return false, fmt.Errorf("%w: order %s", store.ErrNotFound, orderID)
		}
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_status_log (order_id, status_id, gateway, comment, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		orderID, entry.StatusID, entry.Gateway, entry.Comment, ts)
	if err != nil {
		return false, fmt.Errorf("sqlite: append status for %q: %w", orderID, err)
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: commit mark paid %q: %w", orderID, err)
	}
	return true, nil
}

// StatusLog returns the status history of an order, oldest first.
func (s *Store) StatusLog(ctx context.Context, orderID string) ([]payment.StatusEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, status_id, gateway, comment, created_at
		FROM   order_status_log
		WHERE  order_id = ?
		ORDER  BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: status log %q: %w", orderID, err)
	}
	defer rows.Close()

	var out []payment.StatusEntry
	for rows.Next() {
		var e payment.StatusEntry
		var createdAt string
		if err := rows.Scan(&e.OrderID, &e.StatusID, &e.Gateway, &e.Comment, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan status %q: %w", orderID, err)
		}
		if e.CreatedAt, err = parseRFC3339(createdAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AppendAttempt inserts an attempt row. It is safe to call concurrently.
func (s *Store) AppendAttempt(ctx context.Context, a payment.Attempt) error {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var orderID any
	if a.OrderID != nil {
		orderID = *a.OrderID
	}

	const q = `
		INSERT INTO payment_attempts
			(id, order_id, gateway, kind, message, success, request, response, trace_id, span_id, created_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		a.ID, orderID, a.Gateway, a.Kind, a.Message, a.SuccessFlag(),
		a.Request, a.Response, a.TraceID, a.SpanID, formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: append attempt %q: %w", a.ID, err)
	}
	return nil
}

// ListAttempts returns attempts created at or after since, oldest first.
func (s *Store) ListAttempts(ctx context.Context, since time.Time, limit int) ([]payment.Attempt, error) {
	q := `
		SELECT id, order_id, gateway, kind, message, success, request, response,
		       trace_id, span_id, created_at
		FROM   payment_attempts
		WHERE  created_at >= ?
		ORDER  BY created_at, rowid`
	args := []any{formatTime(since)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list attempts: %w", err)
	}
	defer rows.Close()

	var out []payment.Attempt
	for rows.Next() {
		var (
			a         payment.Attempt
			orderID   sql.NullString
			success   int
			createdAt string
		)
		if err := rows.Scan(&a.ID, &orderID, &a.Gateway, &a.Kind, &a.Message, &success,
			&a.Request, &a.Response, &a.TraceID, &a.SpanID, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan attempt: %w", err)
		}
		if orderID.Valid {
			id := orderID.String
			a.OrderID = &id
		}
		a.Success = success == 1
		if a.CreatedAt, err = parseRFC3339(createdAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
