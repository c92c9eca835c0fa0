package bookingRepo

import (
	"context"
	"time"

	"casaverde/models"
)

// BookingRepository is the durable booking ledger. Status writes are
// conditional on the previously-read status so that concurrent admin
// actions and the nightly job cannot clobber each other.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)

	// UpdateStatus transitions a booking from expected to the fields in
	// update, atomically. Returns ErrStaleStatus when the stored status no
	// longer matches expected.
	UpdateStatus(ctx context.Context, id string, expected models.BookingStatus, update StatusUpdate) error

	// DueForCharge returns all bookings with status pending, approved for
	// charge, and a charge date on or before the given day.
	DueForCharge(ctx context.Context, day time.Time) ([]models.Booking, error)

	// PendingIntents returns all pending bookings that hold a payment
	// intent id, the reconciliation working set.
	PendingIntents(ctx context.Context) ([]models.Booking, error)

	// PendingReview returns all bookings awaiting a manual-review decision.
	PendingReview(ctx context.Context) ([]models.Booking, error)
}

// StatusUpdate carries the fields a status transition may set alongside the
// new status. Nil pointers leave the stored value untouched.
type StatusUpdate struct {
	Status            models.BookingStatus
	ReviewStatus      *models.ReviewStatus
	ApprovedForCharge *bool
	PaymentIntentID   *string
	PaidAt            *time.Time
	ReviewedAt        *time.Time
	ReviewedBy        *string
	RejectReason      *string
}
