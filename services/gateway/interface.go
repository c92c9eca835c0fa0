package gateway

import "context"

// Payment-intent statuses the lifecycle engine reacts to. Values match the
// gateway's wire statuses so a retrieved status compares directly.
const (
	IntentSucceeded             = "succeeded"
	IntentProcessing            = "processing"
	IntentCanceled              = "canceled"
	IntentRequiresPaymentMethod = "requires_payment_method"
	IntentRequiresCapture       = "requires_capture"
)

// ChargeRequest describes one charge or authorization against a stored
// customer and payment method. Amount is in the smallest currency unit.
type ChargeRequest struct {
	CustomerID      string
	PaymentMethodID string
	Amount          int64
	Currency        string
	Description     string
}

// PaymentGateway wraps the payment provider's customer, setup-intent and
// payment-intent operations behind the few calls the booking core needs.
type PaymentGateway interface {
	// CreateCustomer creates a gateway customer for the guest and returns
	// its id.
	CreateCustomer(ctx context.Context, name, email string) (string, error)

	// SetupDelayedMethod stores a reusable payment method on the customer
	// with no charge, for a later off-session charge.
	SetupDelayedMethod(ctx context.Context, customerID, paymentMethodID string) error

	// AuthorizeImmediate places an uncaptured authorization for the full
	// amount and returns the payment-intent id. Funds move on Capture.
	AuthorizeImmediate(ctx context.Context, req ChargeRequest) (string, error)

	// Capture settles a previously authorized payment intent.
	Capture(ctx context.Context, intentID string) error

	// ChargeOffSession creates and confirms a payment intent against the
	// stored method. The idempotency key makes a retried call a no-op on
	// the gateway side.
	ChargeOffSession(ctx context.Context, req ChargeRequest, idempotencyKey string) (intentID string, status string, err error)

	// IntentStatus retrieves the live status of a payment intent.
	IntentStatus(ctx context.Context, intentID string) (string, error)

	// CancelIntent voids an uncaptured or unconfirmed payment intent.
	CancelIntent(ctx context.Context, intentID string) error
}
