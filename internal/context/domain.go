// Package context carries request tracing data and the per-merchant gateway
// configuration the notification pipeline reads.
package context

import "strings"

// Well-known credential keys.
const (
	CredentialCallbackPassword = "callback_password"
	CredentialEndpointURL      = "endpoint_url"
)

// GatewayConfig is a merchant's settings for one payment method.
// It is owned by the host configuration store and treated as read-only here.
type GatewayConfig struct {
	ID              string            `json:"id" mapstructure:"id"`
	Gateway         string            `json:"gateway" mapstructure:"gateway"` // adapter name, e.g. "beanstream"
	Credentials     map[string]string `json:"credentials" mapstructure:"credentials"`
	SuccessStatusID int               `json:"success_status_id" mapstructure:"success_status_id"`
	TestMode        bool              `json:"test_mode" mapstructure:"test_mode"`
	TransactionType string            `json:"transaction_type,omitempty" mapstructure:"transaction_type"` // e.g. "P" purchase, "PA" pre-auth
	Currency        string            `json:"currency,omitempty" mapstructure:"currency"`
	Description     string            `json:"description,omitempty" mapstructure:"description"`
	ReceiptURL      string            `json:"receipt_url,omitempty" mapstructure:"receipt_url"`
	DeclineURL      string            `json:"decline_url,omitempty" mapstructure:"decline_url"`
	AdminReceiptURL string            `json:"admin_receipt_url,omitempty" mapstructure:"admin_receipt_url"`
}

// GetCredential returns a trimmed credential value, or "" if unset.
func (c GatewayConfig) GetCredential(key string) string {
	if c.Credentials == nil {
		return ""
	}
	return strings.TrimSpace(c.Credentials[key])
}

// ReceiptFor returns the receipt URL with the order id substituted for "{order}".
func (c GatewayConfig) ReceiptFor(orderID string, backend bool) string {
	u := c.ReceiptURL
	if backend && c.AdminReceiptURL != "" {
		u = c.AdminReceiptURL
	}
	return strings.ReplaceAll(u, "{order}", orderID)
}
