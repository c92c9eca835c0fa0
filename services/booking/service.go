package booking

import (
	"context"
	"time"

	bookingRepo "casaverde/database/repository/booking"
	"casaverde/models"
	"casaverde/services/channel"
	"casaverde/services/gateway"

	"go.uber.org/zap"
)

// ReservationRequest is the intake input for a new reservation. CheckIn is
// inclusive, CheckOut exclusive; both are calendar dates at UTC midnight.
type ReservationRequest struct {
	PropertyID      string
	GuestName       string
	GuestEmail      string
	GuestMessage    string
	CheckIn         time.Time
	CheckOut        time.Time
	PaymentMethodID string
}

// ReservationService is the booking lifecycle engine: intake, manual
// review, scheduled charging and reconciliation against the payment gateway
// and the channel manager.
type ReservationService interface {
	QueryAvailability(ctx context.Context, propertyID string, from, to time.Time) ([]models.AvailabilityWindow, error)
	CreateReservation(ctx context.Context, req ReservationRequest) (*models.Booking, error)
	Decide(ctx context.Context, decision models.ReviewDecision) (*models.Booking, error)
	ChargeNow(ctx context.Context, bookingID string) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID, reason string) (*models.Booking, error)
	RunDueCharges(ctx context.Context) ([]models.ChargeResult, error)
	Reconcile(ctx context.Context) ([]models.ReconcileResult, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	PendingReview(ctx context.Context) ([]models.Booking, error)
}

// PropertyDirectory resolves an internal property id to its channel-manager
// room and property keys.
type PropertyDirectory interface {
	Lookup(propertyID string) (roomID, propKey string, ok bool)
}

// DefaultReservationService implements ReservationService. The ledger row
// is the only shared mutable state; every status write goes through the
// repository's conditional update.
type DefaultReservationService struct {
	Repo       bookingRepo.BookingRepository
	Gateway    gateway.PaymentGateway
	Channel    channel.ChannelManager
	Properties PropertyDirectory
	Currency   string
	Logger     *zap.Logger

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func (s *DefaultReservationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// today returns the current calendar day at UTC midnight.
func (s *DefaultReservationService) today() time.Time {
	n := s.now().UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// GetBooking retrieves a single ledger row.
func (s *DefaultReservationService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.Repo.GetByID(ctx, id)
}

// PendingReview lists bookings awaiting a manual-review decision.
func (s *DefaultReservationService) PendingReview(ctx context.Context) ([]models.Booking, error) {
	return s.Repo.PendingReview(ctx)
}

// pushChannelStatus mirrors a local status change onto the channel manager.
// The local ledger is authoritative: a push failure is logged and absorbed,
// never rolled back.
func (s *DefaultReservationService) pushChannelStatus(ctx context.Context, b *models.Booking, status models.BookingStatus) {
	if b.Beds24BookID == "" {
		return
	}
	_, propKey, ok := s.Properties.Lookup(b.PropertyID)
	if !ok {
		s.Logger.Error("channel status push skipped: property mapping gone",
			zap.String("bookingId", b.ID), zap.String("propertyId", b.PropertyID))
		return
	}
	confirmed := status == models.StatusPending || status.Settled()
	if err := s.Channel.SetBookingStatus(ctx, propKey, b.Beds24BookID, confirmed); err != nil {
		s.Logger.Error("channel status push failed",
			zap.String("bookingId", b.ID),
			zap.String("beds24BookId", b.Beds24BookID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}
