// Package payment holds the data shared by the notification pipeline:
// orders, notification payloads and the two append-only logs
// (order status changes and payment attempts).
package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Address is a billing or shipping address as captured at checkout.
// Street may span several lines separated by newlines.
type Address struct {
	FirstName  string `json:"first_name" mapstructure:"first_name"`
	LastName   string `json:"last_name" mapstructure:"last_name"`
	Company    string `json:"company,omitempty" mapstructure:"company"`
	Street     string `json:"street" mapstructure:"street"`
	City       string `json:"city" mapstructure:"city"`
	Region     string `json:"region" mapstructure:"region"`
	PostalCode string `json:"postal_code" mapstructure:"postal_code"`
	Country    string `json:"country" mapstructure:"country"` // ISO 3166-1 alpha-2
	Phone      string `json:"phone,omitempty" mapstructure:"phone"`
}

// FullName joins first and last name.
func (a Address) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// Order is the slice of the host's order model the pipeline needs.
type Order struct {
	ID              string
	Total           decimal.Decimal
	Currency        string
	Email           string
	Billing         Address
	Shipping        Address
	PaymentMethodID string // references a gateway configuration; empty if none chosen
	Paid            bool
	PaidAt          *time.Time
	CreatedAt       time.Time
}

// StatusEntry is one row of an order's status history.
type StatusEntry struct {
	OrderID   string
	StatusID  int
	Gateway   string
	Comment   string
	CreatedAt time.Time
}
