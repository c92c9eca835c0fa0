package booking

import (
	"context"
	"fmt"
	"time"

	"casaverde/models"
	"casaverde/services/channel"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateReservation orchestrates intake: availability and price check,
// payment binding, channel-manager booking creation, ledger row. If the
// channel create fails the whole attempt fails and no ledger row is written;
// an orphaned local booking with no external counterpart is worse than a
// rejected request.
func (s *DefaultReservationService) CreateReservation(ctx context.Context, req ReservationRequest) (*models.Booking, error) {
	if err := validateStay(req, s.today()); err != nil {
		return nil, err
	}

	total, err := s.quoteStay(ctx, req.PropertyID, req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}

	leadDays := models.LeadTimeDays(req.CheckIn, s.now())
	binding, err := s.bindPayment(ctx, req, total, leadDays)
	if err != nil {
		return nil, err
	}

	roomID, propKey, _ := s.Properties.Lookup(req.PropertyID)
	bookID, err := s.Channel.CreateBooking(ctx, channel.CreateBookingRequest{
		RoomID:     roomID,
		PropKey:    propKey,
		FirstNight: req.CheckIn.Format(dateLayout),
		LastNight:  req.CheckOut.AddDate(0, 0, -1).Format(dateLayout),
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
		Message:    req.GuestMessage,
		PriceMinor: total,
		Confirmed:  true,
	})
	if err != nil {
		// The authorization is now unbacked; release the hold on the card.
		if binding.PaymentIntentID != "" {
			if cancelErr := s.Gateway.CancelIntent(ctx, binding.PaymentIntentID); cancelErr != nil {
				s.Logger.Error("failed to release authorization after channel error",
					zap.String("paymentIntentId", binding.PaymentIntentID), zap.Error(cancelErr))
			}
		}
		return nil, fmt.Errorf("channel booking creation failed: %w", err)
	}

	booking := s.newBooking(req, total, leadDays, binding, bookID)
	if err := s.Repo.Create(ctx, booking); err != nil {
		// Ledger write failed after the externals succeeded. Best effort:
		// cancel the channel booking so inventory is not held by a row we
		// cannot see.
		if pushErr := s.Channel.SetBookingStatus(ctx, propKey, bookID, false); pushErr != nil {
			s.Logger.Error("failed to cancel channel booking after ledger error",
				zap.String("beds24BookId", bookID), zap.Error(pushErr))
		}
		return nil, fmt.Errorf("failed to persist booking: %w", err)
	}

	s.Logger.Info("reservation created",
		zap.String("bookingId", booking.ID),
		zap.String("propertyId", booking.PropertyID),
		zap.String("status", string(booking.Status)),
		zap.String("chargeMethod", string(booking.ChargeMethod)),
		zap.Int64("totalPrice", booking.TotalPrice))
	return booking, nil
}

// newBooking builds the initial ledger row. Lead time at or past the
// cancellation window starts pending with a scheduled charge date; shorter
// lead starts as a request needing human approval before the authorized
// charge is captured.
func (s *DefaultReservationService) newBooking(req ReservationRequest, total int64, leadDays int, binding *models.PaymentBinding, bookID string) *models.Booking {
	booking := &models.Booking{
		ID:                    uuid.New().String(),
		PropertyID:            req.PropertyID,
		GuestName:             req.GuestName,
		GuestEmail:            req.GuestEmail,
		GuestMessage:          req.GuestMessage,
		CheckIn:               req.CheckIn,
		CheckOut:              req.CheckOut,
		TotalPrice:            total,
		Currency:              s.Currency,
		Beds24BookID:          bookID,
		StripeCustomerID:      binding.CustomerID,
		StripePaymentMethodID: binding.PaymentMethodID,
		StripePaymentIntentID: binding.PaymentIntentID,
		ReviewStatus:          models.ReviewPending,
		ApprovedForCharge:     false,
		CreatedAt:             s.now().UTC(),
	}

	if leadDays >= models.CancellationWindowDays {
		booking.Status = models.StatusPending
		booking.ChargeMethod = models.ChargeScheduled
		chargeDate := models.ScheduledChargeDate(req.CheckIn)
		booking.ChargeDate = &chargeDate
	} else {
		booking.Status = models.StatusRequest
		booking.ChargeMethod = models.ChargeImmediate
	}
	return booking
}

func validateStay(req ReservationRequest, today time.Time) error {
	if req.PropertyID == "" {
		return &ValidationError{Field: "property_id", Message: "required"}
	}
	if req.CheckIn.IsZero() || req.CheckOut.IsZero() {
		return &ValidationError{Field: "check_in", Message: "check-in and check-out are required"}
	}
	if !req.CheckOut.After(req.CheckIn) {
		return &ValidationError{Field: "check_out", Message: "must be after check-in"}
	}
	if req.CheckIn.Before(today) {
		return &ValidationError{Field: "check_in", Message: "must not be in the past"}
	}
	return nil
}
