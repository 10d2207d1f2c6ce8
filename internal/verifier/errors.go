package verifier

import "fmt"

// Kind classifies why a notification was rejected.
type Kind string

const (
	KindOrderNotFound           Kind = "OrderNotFound"
	KindPaymentMethodMissing    Kind = "PaymentMethodMissing"
	KindPaymentMethodMismatch   Kind = "PaymentMethodMismatch"
	KindCallbackUnauthenticated Kind = "CallbackUnauthenticated"
	KindAmountMismatch          Kind = "AmountMismatch"
	KindNotApproved             Kind = "NotApproved"
	// KindUnknownGateway is raised before verification when no adapter
	// is registered for the notify path.
	KindUnknownGateway Kind = "UnknownGateway"
	// KindMalformedPayload is raised before verification when the
	// notification body cannot be read.
	KindMalformedPayload Kind = "MalformedPayload"
)

// VerificationError is a recoverable rejection of a notification.
type VerificationError struct {
	Kind    Kind
	Reason  string
	OrderID string // resolved order, empty before ORDER_RESOLVED
	Ref     string // order reference as read from the payload

	// DeclineURL is the merchant's decline page, known once the payment
	// method matched.
	DeclineURL string
}

func (e *VerificationError) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func reject(kind Kind, ref, orderID, format string, args ...any) *VerificationError {
	return &VerificationError{Kind: kind, Ref: ref, OrderID: orderID, Reason: fmt.Sprintf(format, args...)}
}

func (e *VerificationError) declineTo(url string) *VerificationError {
	e.DeclineURL = url
	return e
}

// NewMalformedPayload builds the rejection used for an unreadable body.
func NewMalformedPayload(cause error) *VerificationError {
	return reject(KindMalformedPayload, "", "", "unreadable notification body: %v", cause)
}

// NewUnknownGateway builds the rejection used for unregistered gateways.
func NewUnknownGateway(name string) *VerificationError {
	return reject(KindUnknownGateway, "", "", "no gateway registered as %q", name)
}
