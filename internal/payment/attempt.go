package payment

import "time"

// Attempt is an immutable record of one notification processing attempt.
type Attempt struct {
	ID       string
	OrderID  *string // nil when the order could not be resolved
	Gateway  string
	Kind     string // error kind for failures, empty on success
	Message  string
	Success  bool
	Request  string
	Response string
	TraceID  string
	SpanID   string

	CreatedAt time.Time
}

// SuccessFlag returns the 0/1 flag persisted with the attempt.
func (a Attempt) SuccessFlag() int {
	if a.Success {
		return 1
	}
	return 0
}

// OrderRef returns the order id or "" for an unresolved order.
func (a Attempt) OrderRef() string {
	if a.OrderID == nil {
		return ""
	}
	return *a.OrderID
}
