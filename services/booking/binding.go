package booking

import (
	"context"
	"fmt"

	"casaverde/models"
	"casaverde/services/gateway"

	"go.uber.org/zap"
)

// bindPayment attaches the guest's payment instrument before any booking
// exists. Lead times of at least the cancellation window store the method
// for a scheduled off-session charge; shorter lead times authorize the full
// amount now, captured by the explicit charge action after review.
//
// A Booking row must never be created without a successful binding: an
// unbacked booking cannot later be charged or cancelled cleanly.
func (s *DefaultReservationService) bindPayment(ctx context.Context, req ReservationRequest, amount int64, leadDays int) (*models.PaymentBinding, error) {
	if req.GuestName == "" {
		return nil, &ValidationError{Field: "guest_name", Message: "required"}
	}
	if req.GuestEmail == "" {
		return nil, &ValidationError{Field: "guest_email", Message: "required"}
	}
	if req.PaymentMethodID == "" {
		return nil, &ValidationError{Field: "payment_method_id", Message: "required"}
	}
	if amount <= 0 {
		return nil, &ValidationError{Field: "amount", Message: "must be positive"}
	}

	customerID, err := s.Gateway.CreateCustomer(ctx, req.GuestName, req.GuestEmail)
	if err != nil {
		return nil, fmt.Errorf("payment binding: %w", err)
	}

	binding := &models.PaymentBinding{
		CustomerID:      customerID,
		PaymentMethodID: req.PaymentMethodID,
	}

	if leadDays >= models.CancellationWindowDays {
		if err := s.Gateway.SetupDelayedMethod(ctx, customerID, req.PaymentMethodID); err != nil {
			return nil, fmt.Errorf("payment binding: %w", err)
		}
		s.Logger.Info("delayed payment method stored",
			zap.String("customerId", customerID), zap.Int("leadDays", leadDays))
		return binding, nil
	}

	intentID, err := s.Gateway.AuthorizeImmediate(ctx, gateway.ChargeRequest{
		CustomerID:      customerID,
		PaymentMethodID: req.PaymentMethodID,
		Amount:          amount,
		Currency:        s.Currency,
		Description:     fmt.Sprintf("Stay at %s, %s to %s", req.PropertyID, req.CheckIn.Format(dateLayout), req.CheckOut.Format(dateLayout)),
	})
	if err != nil {
		return nil, fmt.Errorf("payment binding: %w", err)
	}

	binding.PaymentIntentID = intentID
	binding.Immediate = true
	s.Logger.Info("immediate payment authorized",
		zap.String("customerId", customerID),
		zap.String("paymentIntentId", intentID),
		zap.Int("leadDays", leadDays))
	return binding, nil
}
