package booking

import (
	"context"
	"errors"
	"fmt"

	bookingRepo "casaverde/database/repository/booking"
	"casaverde/models"

	"go.uber.org/zap"
)

// Decide applies an admin review decision. Approval unlocks the booking for
// charging but never moves money itself: scheduled bookings wait for the
// nightly run, immediate ones for the explicit charge action. Rejection
// cancels locally, voids any uncaptured authorization, and pushes the
// cancellation to the channel manager.
func (s *DefaultReservationService) Decide(ctx context.Context, decision models.ReviewDecision) (*models.Booking, error) {
	b, err := s.Repo.GetByID(ctx, decision.BookingID)
	if err != nil {
		return nil, err
	}

	if b.ReviewStatus != models.ReviewPending {
		return nil, &InvalidStateError{BookingID: b.ID, Current: b.Status,
			Message: fmt.Sprintf("already reviewed (%s)", b.ReviewStatus)}
	}
	if b.Status != models.StatusRequest && b.Status != models.StatusPending {
		return nil, &InvalidStateError{BookingID: b.ID, Current: b.Status,
			Message: "only request or pending bookings can be reviewed"}
	}

	switch decision.Action {
	case "approve":
		return s.approve(ctx, b, decision.Reviewer)
	case "reject":
		return s.reject(ctx, b, decision.Reviewer, decision.Reason)
	default:
		return nil, &ValidationError{Field: "action", Message: "must be approve or reject"}
	}
}

func (s *DefaultReservationService) approve(ctx context.Context, b *models.Booking, reviewer string) (*models.Booking, error) {
	// Scheduled bookings move to pending so the nightly run picks them up.
	// Immediate ones stay in request until their authorization is captured.
	oldStatus := b.Status
	newStatus := b.Status
	if b.ChargeMethod == models.ChargeScheduled && b.Status == models.StatusRequest {
		newStatus = models.StatusPending
	}
	if newStatus != b.Status && !b.Status.CanTransitionTo(newStatus) {
		return nil, &InvalidStateError{BookingID: b.ID, Current: b.Status,
			Message: fmt.Sprintf("cannot transition to %s", newStatus)}
	}

	approved := true
	reviewStatus := models.ReviewApproved
	reviewedAt := s.now().UTC()
	update := bookingRepo.StatusUpdate{
		Status:            newStatus,
		ReviewStatus:      &reviewStatus,
		ApprovedForCharge: &approved,
		ReviewedAt:        &reviewedAt,
		ReviewedBy:        &reviewer,
	}
	if err := s.Repo.UpdateStatus(ctx, b.ID, b.Status, update); err != nil {
		return nil, s.mapStale(ctx, err, b.ID, "approve")
	}

	b.Status = newStatus
	b.ReviewStatus = reviewStatus
	b.ApprovedForCharge = true
	b.ReviewedAt = &reviewedAt
	b.ReviewedBy = reviewer

	s.Logger.Info("booking approved",
		zap.String("bookingId", b.ID), zap.String("reviewer", reviewer))
	// Channel pushes accompany status transitions only.
	if newStatus != oldStatus {
		s.pushChannelStatus(ctx, b, b.Status)
	}
	return b, nil
}

func (s *DefaultReservationService) reject(ctx context.Context, b *models.Booking, reviewer, reason string) (*models.Booking, error) {
	reviewStatus := models.ReviewRejected
	reviewedAt := s.now().UTC()
	update := bookingRepo.StatusUpdate{
		Status:       models.StatusCancelled,
		ReviewStatus: &reviewStatus,
		ReviewedAt:   &reviewedAt,
		ReviewedBy:   &reviewer,
		RejectReason: &reason,
	}
	if err := s.Repo.UpdateStatus(ctx, b.ID, b.Status, update); err != nil {
		return nil, s.mapStale(ctx, err, b.ID, "reject")
	}

	// Release the hold on the card for immediate-charge bookings.
	if b.ChargeMethod == models.ChargeImmediate && b.StripePaymentIntentID != "" {
		if err := s.Gateway.CancelIntent(ctx, b.StripePaymentIntentID); err != nil {
			s.Logger.Error("failed to void authorization on rejection",
				zap.String("bookingId", b.ID), zap.Error(err))
		}
	}

	b.Status = models.StatusCancelled
	b.ReviewStatus = reviewStatus
	b.ReviewedAt = &reviewedAt
	b.ReviewedBy = reviewer
	b.RejectReason = reason

	s.Logger.Info("booking rejected",
		zap.String("bookingId", b.ID),
		zap.String("reviewer", reviewer),
		zap.String("reason", reason))
	s.pushChannelStatus(ctx, b, models.StatusCancelled)
	return b, nil
}

// CancelBooking is the administrative cancellation edge for request and
// pending bookings outside the review flow.
func (s *DefaultReservationService) CancelBooking(ctx context.Context, bookingID, reason string) (*models.Booking, error) {
	b, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.Status.CanTransitionTo(models.StatusCancelled) {
		return nil, &InvalidStateError{BookingID: b.ID, Current: b.Status,
			Message: "cannot be cancelled"}
	}

	update := bookingRepo.StatusUpdate{
		Status:       models.StatusCancelled,
		RejectReason: &reason,
	}
	if err := s.Repo.UpdateStatus(ctx, b.ID, b.Status, update); err != nil {
		return nil, s.mapStale(ctx, err, b.ID, "cancel")
	}

	if b.ChargeMethod == models.ChargeImmediate && b.StripePaymentIntentID != "" {
		if err := s.Gateway.CancelIntent(ctx, b.StripePaymentIntentID); err != nil {
			s.Logger.Error("failed to void authorization on cancel",
				zap.String("bookingId", b.ID), zap.Error(err))
		}
	}

	b.Status = models.StatusCancelled
	b.RejectReason = reason

	s.Logger.Info("booking cancelled", zap.String("bookingId", b.ID), zap.String("reason", reason))
	s.pushChannelStatus(ctx, b, models.StatusCancelled)
	return b, nil
}

// mapStale converts the repository's stale-status error into the
// InvalidState taxonomy with a fresh read of the booking.
func (s *DefaultReservationService) mapStale(ctx context.Context, err error, bookingID, op string) error {
	if !errors.Is(err, bookingRepo.ErrStaleStatus) {
		return err
	}
	current := models.BookingStatus("unknown")
	if fresh, getErr := s.Repo.GetByID(ctx, bookingID); getErr == nil {
		current = fresh.Status
	}
	return &InvalidStateError{BookingID: bookingID, Current: current,
		Message: fmt.Sprintf("status changed while processing %s", op)}
}
