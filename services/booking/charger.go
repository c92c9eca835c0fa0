package booking

import (
	"context"
	"errors"
	"fmt"

	bookingRepo "casaverde/database/repository/booking"
	"casaverde/models"
	"casaverde/services/gateway"

	"go.uber.org/zap"
)

// RunDueCharges is the daily charge run. It reconciles first so nothing
// settled out-of-band is charged again, then charges every approved pending
// booking whose charge date has arrived. One booking's failure never aborts
// the rest.
func (s *DefaultReservationService) RunDueCharges(ctx context.Context) ([]models.ChargeResult, error) {
	if _, err := s.Reconcile(ctx); err != nil {
		// A failed reconciliation pass is not fatal: the per-booking
		// intent check below still guards against double charges.
		s.Logger.Error("pre-charge reconciliation failed", zap.Error(err))
	}

	due, err := s.Repo.DueForCharge(ctx, s.today())
	if err != nil {
		return nil, fmt.Errorf("failed to select due bookings: %w", err)
	}

	results := make([]models.ChargeResult, 0, len(due))
	for i := range due {
		results = append(results, s.chargeOne(ctx, &due[i]))
	}

	s.Logger.Info("charge run finished",
		zap.Int("due", len(due)),
		zap.Int("results", len(results)))
	return results, nil
}

// chargeOne settles a single due booking. The gateway idempotency key is
// derived from the booking id and its charge date, so a re-triggered run of
// the same epoch replays the same gateway request instead of creating a
// second charge.
func (s *DefaultReservationService) chargeOne(ctx context.Context, b *models.Booking) models.ChargeResult {
	// An existing intent means a previous attempt got at least as far as
	// the gateway; consult its live status before charging anything.
	if b.StripePaymentIntentID != "" {
		status, err := s.Gateway.IntentStatus(ctx, b.StripePaymentIntentID)
		if err != nil {
			return models.ChargeResult{BookingID: b.ID, Error: err.Error()}
		}
		switch status {
		case gateway.IntentSucceeded:
			// Already settled out-of-band: record it, charge nothing.
			if err := s.markPaid(ctx, b, b.StripePaymentIntentID); err != nil {
				return models.ChargeResult{BookingID: b.ID, Error: err.Error()}
			}
			return models.ChargeResult{BookingID: b.ID, Success: true}
		case gateway.IntentProcessing:
			// In flight; neither charge nor fail. The next run resolves it.
			return models.ChargeResult{BookingID: b.ID, Skipped: true}
		}
	}

	intentID, status, err := s.Gateway.ChargeOffSession(ctx, gateway.ChargeRequest{
		CustomerID:      b.StripeCustomerID,
		PaymentMethodID: b.StripePaymentMethodID,
		Amount:          b.TotalPrice,
		Currency:        b.Currency,
		Description:     fmt.Sprintf("Stay at %s, %s to %s", b.PropertyID, b.CheckIn.Format(dateLayout), b.CheckOut.Format(dateLayout)),
	}, chargeIdempotencyKey(b))

	switch {
	case err == nil && status == gateway.IntentSucceeded:
		if err := s.markPaid(ctx, b, intentID); err != nil {
			return models.ChargeResult{BookingID: b.ID, Error: err.Error()}
		}
		return models.ChargeResult{BookingID: b.ID, Success: true}

	case err == nil && status == gateway.IntentProcessing:
		// Keep the intent reference so the next run or reconciliation can
		// settle the row once the gateway resolves.
		s.storeIntent(ctx, b, intentID)
		return models.ChargeResult{BookingID: b.ID, Skipped: true}

	case errors.Is(err, gateway.ErrDeclined):
		if markErr := s.markFailed(ctx, b, intentID); markErr != nil {
			return models.ChargeResult{BookingID: b.ID, Error: markErr.Error()}
		}
		return models.ChargeResult{BookingID: b.ID, Error: err.Error()}

	default:
		// Gateway unavailable or an unexpected status: leave the booking
		// pending and retry on the next run.
		msg := "unexpected gateway status: " + status
		if err != nil {
			msg = err.Error()
		}
		return models.ChargeResult{BookingID: b.ID, Error: msg}
	}
}

// ChargeNow captures the stored authorization of an approved
// immediate-charge booking. This is the explicit charge action that review
// approval deliberately does not perform.
func (s *DefaultReservationService) ChargeNow(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.ChargeMethod != models.ChargeImmediate {
		return nil, &InvalidStateError{BookingID: b.ID, Current: b.Status,
			Message: "only immediate-charge bookings can be captured directly"}
	}
	if !b.ApprovedForCharge {
		return nil, &InvalidStateError{BookingID: b.ID, Current: b.Status,
			Message: "not approved for charge"}
	}
	if b.StripePaymentIntentID == "" {
		return nil, &InvalidStateError{BookingID: b.ID, Current: b.Status,
			Message: "no authorization to capture"}
	}
	if !b.Status.CanTransitionTo(models.StatusPaid) {
		return nil, &InvalidStateError{BookingID: b.ID, Current: b.Status,
			Message: "cannot be charged"}
	}

	// Idempotent capture: an intent already settled is a no-op.
	status, err := s.Gateway.IntentStatus(ctx, b.StripePaymentIntentID)
	if err != nil {
		return nil, err
	}
	if status != gateway.IntentSucceeded {
		if err := s.Gateway.Capture(ctx, b.StripePaymentIntentID); err != nil {
			return nil, err
		}
	}

	if err := s.markPaid(ctx, b, b.StripePaymentIntentID); err != nil {
		return nil, err
	}
	return b, nil
}

// chargeIdempotencyKey is deterministic over the booking id and the charge
// epoch (the charge date), never wall-clock time.
func chargeIdempotencyKey(b *models.Booking) string {
	epoch := "immediate"
	if b.ChargeDate != nil {
		epoch = b.ChargeDate.Format(dateLayout)
	}
	return fmt.Sprintf("booking-charge-%s-%s", b.ID, epoch)
}

// markPaid conditionally advances the booking to paid. A stale-status
// conflict means a concurrent run already settled the row and is not an
// error.
func (s *DefaultReservationService) markPaid(ctx context.Context, b *models.Booking, intentID string) error {
	paidAt := s.now().UTC()
	update := bookingRepo.StatusUpdate{
		Status:          models.StatusPaid,
		PaymentIntentID: &intentID,
		PaidAt:          &paidAt,
	}
	err := s.Repo.UpdateStatus(ctx, b.ID, b.Status, update)
	if err != nil && !errors.Is(err, bookingRepo.ErrStaleStatus) {
		return err
	}
	if errors.Is(err, bookingRepo.ErrStaleStatus) {
		s.Logger.Info("booking already settled by a concurrent run", zap.String("bookingId", b.ID))
	}

	b.Status = models.StatusPaid
	b.StripePaymentIntentID = intentID
	b.PaidAt = &paidAt

	s.Logger.Info("booking paid",
		zap.String("bookingId", b.ID),
		zap.String("paymentIntentId", intentID),
		zap.Int64("amount", b.TotalPrice))
	s.pushChannelStatus(ctx, b, models.StatusPaid)
	return nil
}

// markFailed conditionally moves a declined booking to failed and pushes
// the channel cancellation.
func (s *DefaultReservationService) markFailed(ctx context.Context, b *models.Booking, intentID string) error {
	update := bookingRepo.StatusUpdate{Status: models.StatusFailed}
	if intentID != "" {
		update.PaymentIntentID = &intentID
	}
	err := s.Repo.UpdateStatus(ctx, b.ID, b.Status, update)
	if err != nil && !errors.Is(err, bookingRepo.ErrStaleStatus) {
		return err
	}

	b.Status = models.StatusFailed
	s.Logger.Warn("booking charge failed", zap.String("bookingId", b.ID))
	s.pushChannelStatus(ctx, b, models.StatusFailed)
	return nil
}

// storeIntent records a processing intent id on a still-pending booking.
func (s *DefaultReservationService) storeIntent(ctx context.Context, b *models.Booking, intentID string) {
	update := bookingRepo.StatusUpdate{
		Status:          models.StatusPending,
		PaymentIntentID: &intentID,
	}
	if err := s.Repo.UpdateStatus(ctx, b.ID, models.StatusPending, update); err != nil {
		s.Logger.Error("failed to record processing intent",
			zap.String("bookingId", b.ID), zap.Error(err))
	}
}
