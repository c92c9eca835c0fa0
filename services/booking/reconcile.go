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

// Reconcile compares every pending booking that holds a payment intent
// against the gateway's live intent status and repairs drift. It is a pure
// read-then-conditional-write: it never charges, only ever moves status
// forward along the legal graph, and concurrent runs converge because the
// conditional ledger write lets exactly one of them apply each repair.
func (s *DefaultReservationService) Reconcile(ctx context.Context) ([]models.ReconcileResult, error) {
	pending, err := s.Repo.PendingIntents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending bookings: %w", err)
	}

	results := make([]models.ReconcileResult, 0, len(pending))
	for i := range pending {
		results = append(results, s.reconcileOne(ctx, &pending[i]))
	}

	drift := 0
	for _, r := range results {
		if r.Drift {
			drift++
		}
	}
	s.Logger.Info("reconciliation finished",
		zap.Int("checked", len(results)),
		zap.Int("drift", drift))
	return results, nil
}

func (s *DefaultReservationService) reconcileOne(ctx context.Context, b *models.Booking) models.ReconcileResult {
	result := models.ReconcileResult{
		BookingID: b.ID,
		OldStatus: b.Status,
		NewStatus: b.Status,
		CheckedAt: s.now().UTC(),
	}

	status, err := s.Gateway.IntentStatus(ctx, b.StripePaymentIntentID)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.GatewayStatus = status

	var target models.BookingStatus
	switch status {
	case gateway.IntentSucceeded:
		target = models.StatusPaid
	case gateway.IntentCanceled:
		target = models.StatusCancelled
	case gateway.IntentRequiresPaymentMethod:
		// Only a failure once the charge window has passed; before that the
		// executor may still retry with the stored method.
		if b.ChargeDate == nil || !b.ChargeDate.Before(s.today()) {
			return result
		}
		target = models.StatusFailed
	default:
		// processing, requires_capture and friends: no drift.
		return result
	}

	if err := s.applyRepair(ctx, b, target); err != nil {
		result.Error = err.Error()
		return result
	}
	result.NewStatus = target
	result.Drift = true

	s.Logger.Warn("reconciliation repaired drift",
		zap.String("bookingId", b.ID),
		zap.String("gatewayStatus", status),
		zap.String("from", string(result.OldStatus)),
		zap.String("to", string(target)))
	return result
}

// applyRepair performs the forward-only conditional write for one repair.
// Losing a conditional-write race means another run already converged the
// row, which is success, not failure.
func (s *DefaultReservationService) applyRepair(ctx context.Context, b *models.Booking, target models.BookingStatus) error {
	if !b.Status.CanTransitionTo(target) {
		return &InvalidStateError{BookingID: b.ID, Current: b.Status,
			Message: fmt.Sprintf("illegal reconciliation repair to %s", target)}
	}

	update := bookingRepo.StatusUpdate{Status: target}
	if target == models.StatusPaid {
		paidAt := s.now().UTC()
		update.PaidAt = &paidAt
		b.PaidAt = &paidAt
	}
	if err := s.Repo.UpdateStatus(ctx, b.ID, b.Status, update); err != nil {
		if errors.Is(err, bookingRepo.ErrStaleStatus) {
			return nil
		}
		return err
	}

	b.Status = target
	s.pushChannelStatus(ctx, b, target)
	return nil
}
