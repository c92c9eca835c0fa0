package models

import "time"

// PaymentBinding is the result of attaching a payment instrument to a
// reservation attempt: either an immediate authorization (PaymentIntentID
// set) or a stored method for a later scheduled charge.
type PaymentBinding struct {
	CustomerID      string `json:"customer_id"`
	PaymentMethodID string `json:"payment_method_id"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	Immediate       bool   `json:"immediate"`
}

// ReviewDecision is the ephemeral admin input to the manual review gate.
// Its effect is folded into the Booking row; the decision itself is not
// persisted.
type ReviewDecision struct {
	BookingID string `json:"booking_id"`
	Action    string `json:"action" binding:"required,oneof=approve reject"`
	Reviewer  string `json:"reviewer"`
	Reason    string `json:"reason,omitempty"`
}

// ChargeResult is one booking's outcome within a charge run. Failures are
// isolated per booking; the run always returns the full list.
type ChargeResult struct {
	BookingID string `json:"booking_id"`
	Success   bool   `json:"success"`
	Skipped   bool   `json:"skipped,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ReconcileResult records one booking's reconciliation outcome. Drift that
// was detected and repaired is an audit record, not an error.
type ReconcileResult struct {
	BookingID     string        `json:"booking_id"`
	GatewayStatus string        `json:"gateway_status"`
	OldStatus     BookingStatus `json:"old_status"`
	NewStatus     BookingStatus `json:"new_status"`
	Drift         bool          `json:"drift"`
	Error         string        `json:"error,omitempty"`
	CheckedAt     time.Time     `json:"checked_at"`
}

// AvailabilityWindow is the transient per-date availability and price view
// derived from the channel manager. Not persisted.
type AvailabilityWindow struct {
	Date      string `json:"date"` // YYYY-MM-DD
	Available bool   `json:"available"`
	Inventory int    `json:"inventory"`
	// Price is the nightly price in the smallest currency unit.
	Price int64 `json:"price"`
}
