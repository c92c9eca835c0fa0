package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/setupintent"
	"go.uber.org/zap"
)

// ErrDeclined is returned when the gateway rejects the card itself, as
// opposed to the call failing.
var ErrDeclined = errors.New("payment declined by gateway")

// ErrUnavailable is returned on network or gateway-side failures. Callers
// must not create a booking on this error.
var ErrUnavailable = errors.New("payment gateway unavailable")

// StripeGateway implements PaymentGateway on the Stripe API. The API key is
// set once on the stripe package at process start.
type StripeGateway struct {
	logger *zap.Logger
}

// NewStripeGateway constructs a StripeGateway.
func NewStripeGateway(logger *zap.Logger) *StripeGateway {
	return &StripeGateway{logger: logger}
}

// CreateCustomer creates a Stripe customer for the guest.
func (g *StripeGateway) CreateCustomer(ctx context.Context, name, email string) (string, error) {
	params := &stripe.CustomerParams{
		Name:  stripe.String(name),
		Email: stripe.String(email),
	}
	params.Context = ctx

	cust, err := customer.New(params)
	if err != nil {
		return "", g.classify("create customer", err)
	}
	return cust.ID, nil
}

// SetupDelayedMethod confirms a setup intent attaching the payment method to
// the customer for off-session use. No funds move.
func (g *StripeGateway) SetupDelayedMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.SetupIntentParams{
		Customer:      stripe.String(customerID),
		PaymentMethod: stripe.String(paymentMethodID),
		Confirm:       stripe.Bool(true),
		Usage:         stripe.String(string(stripe.SetupIntentUsageOffSession)),
	}
	params.Context = ctx

	if _, err := setupintent.New(params); err != nil {
		return g.classify("setup delayed method", err)
	}
	return nil
}

// AuthorizeImmediate confirms a manual-capture payment intent: the full
// amount is authorized on the card but not captured until the explicit
// charge action.
func (g *StripeGateway) AuthorizeImmediate(ctx context.Context, req ChargeRequest) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(req.Currency),
		Customer:      stripe.String(req.CustomerID),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		Confirm:       stripe.Bool(true),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		Description:   stripe.String(req.Description),
	}
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", g.classify("authorize immediate", err)
	}
	return pi.ID, nil
}

// Capture settles an authorized payment intent.
func (g *StripeGateway) Capture(ctx context.Context, intentID string) error {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx

	if _, err := paymentintent.Capture(intentID, params); err != nil {
		return g.classify("capture", err)
	}
	return nil
}

// ChargeOffSession creates and confirms a payment intent against the stored
// method. The deterministic idempotency key means a retried run of the same
// charge cannot double-charge.
func (g *StripeGateway) ChargeOffSession(ctx context.Context, req ChargeRequest, idempotencyKey string) (string, string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(req.Currency),
		Customer:      stripe.String(req.CustomerID),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
		Description:   stripe.String(req.Description),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	pi, err := paymentintent.New(params)
	if err != nil {
		// A declined off-session confirmation still created an intent;
		// surface its id so the ledger can keep the reference.
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.PaymentIntent != nil {
			return stripeErr.PaymentIntent.ID, string(stripeErr.PaymentIntent.Status), g.classify("charge off-session", err)
		}
		return "", "", g.classify("charge off-session", err)
	}
	return pi.ID, string(pi.Status), nil
}

// IntentStatus retrieves the live status of a payment intent.
func (g *StripeGateway) IntentStatus(ctx context.Context, intentID string) (string, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		return "", g.classify("retrieve intent", err)
	}
	return string(pi.Status), nil
}

// CancelIntent voids an uncaptured payment intent.
func (g *StripeGateway) CancelIntent(ctx context.Context, intentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	if _, err := paymentintent.Cancel(intentID, params); err != nil {
		return g.classify("cancel intent", err)
	}
	return nil
}

// classify maps a Stripe API error onto the gateway error taxonomy: card
// errors are declines, everything else is unavailability.
func (g *StripeGateway) classify(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Type == stripe.ErrorTypeCard {
			g.logger.Warn("stripe card declined",
				zap.String("op", op),
				zap.String("code", string(stripeErr.Code)))
			return fmt.Errorf("%s: %w: %s", op, ErrDeclined, stripeErr.Code)
		}
		g.logger.Error("stripe API error",
			zap.String("op", op),
			zap.String("type", string(stripeErr.Type)),
			zap.Error(err))
		return fmt.Errorf("%s: %w: %s", op, ErrUnavailable, stripeErr.Type)
	}
	g.logger.Error("stripe call failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w", op, ErrUnavailable)
}
