package models

import "time"

// CancellationWindowDays is the number of days before check-in at which a
// scheduled charge is executed. Stays booked with less lead time than this
// are charged immediately.
const CancellationWindowDays = 30

// BookingStatus is the canonical lifecycle state of a booking. The set is
// closed; every status write goes through CanTransitionTo.
type BookingStatus string

const (
	StatusRequest   BookingStatus = "request"
	StatusPending   BookingStatus = "pending"
	StatusPaid      BookingStatus = "paid"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusFailed    BookingStatus = "failed"
)

// ReviewStatus tracks the manual-review decision independently of the
// lifecycle status.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// ChargeMethod says when the guest's money moves.
type ChargeMethod string

const (
	ChargeImmediate ChargeMethod = "immediate"
	ChargeScheduled ChargeMethod = "scheduled"
)

// statusTransitions is the legal edge set of the lifecycle graph. A request
// may move straight to paid: immediate-charge bookings stay in request until
// the explicit capture after approval.
var statusTransitions = map[BookingStatus]map[BookingStatus]bool{
	StatusRequest: {StatusPending: true, StatusPaid: true, StatusCancelled: true},
	StatusPending: {StatusPaid: true, StatusCancelled: true, StatusFailed: true},
	StatusPaid:    {StatusConfirmed: true},
}

// CanTransitionTo reports whether moving from s to target is a legal edge.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	return statusTransitions[s][target]
}

// Terminal reports whether s admits no further transitions short of an
// administrative override.
func (s BookingStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusFailed || s == StatusConfirmed
}

// Settled reports whether the booking's money has been captured.
func (s BookingStatus) Settled() bool {
	return s == StatusPaid || s == StatusConfirmed
}

// Booking is the ledger row for one reservation. It is the sole source of
// truth for the state machine; the channel manager and the payment gateway
// are synced to it, never the other way around outside reconciliation.
type Booking struct {
	ID         string `bson:"id" json:"id"`
	PropertyID string `bson:"property_id" json:"property_id"`

	GuestName    string `bson:"guest_name" json:"guest_name"`
	GuestEmail   string `bson:"guest_email" json:"guest_email"`
	GuestMessage string `bson:"guest_message,omitempty" json:"guest_message,omitempty"`

	CheckIn  time.Time `bson:"check_in" json:"check_in"`   // inclusive
	CheckOut time.Time `bson:"check_out" json:"check_out"` // exclusive

	// TotalPrice is in the smallest currency unit. Money is never
	// accumulated in floating point.
	TotalPrice int64  `bson:"total_price" json:"total_price"`
	Currency   string `bson:"currency" json:"currency"`

	// External identities. Empty until the corresponding external record
	// exists.
	Beds24BookID          string `bson:"beds24_book_id,omitempty" json:"beds24_book_id,omitempty"`
	StripeCustomerID      string `bson:"stripe_customer_id,omitempty" json:"stripe_customer_id,omitempty"`
	StripePaymentMethodID string `bson:"stripe_payment_method_id,omitempty" json:"stripe_payment_method_id,omitempty"`
	StripePaymentIntentID string `bson:"stripe_payment_intent_id,omitempty" json:"stripe_payment_intent_id,omitempty"`

	Status            BookingStatus `bson:"status" json:"status"`
	ReviewStatus      ReviewStatus  `bson:"manual_review_status" json:"manual_review_status"`
	ApprovedForCharge bool          `bson:"approved_for_charge" json:"approved_for_charge"`
	ChargeMethod      ChargeMethod  `bson:"charge_method" json:"charge_method"`
	ChargeDate        *time.Time    `bson:"charge_date,omitempty" json:"charge_date,omitempty"`

	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	ReviewedAt   *time.Time `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	PaidAt       *time.Time `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	ReviewedBy   string     `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	RejectReason string     `bson:"reject_reason,omitempty" json:"reject_reason,omitempty"`
}

// Nights returns the number of nights in the stay, counting check-in and
// excluding check-out.
func (b *Booking) Nights() int {
	return int(b.CheckOut.Sub(b.CheckIn).Hours() / 24)
}

// LeadTimeDays returns the number of calendar days between now's date and
// the check-in date, both taken at UTC midnight. A booking made at any time
// of day for a check-in n days ahead has a lead of exactly n.
func LeadTimeDays(checkIn, now time.Time) int {
	ci := checkIn.UTC()
	n := now.UTC()
	ciDay := time.Date(ci.Year(), ci.Month(), ci.Day(), 0, 0, 0, 0, time.UTC)
	nowDay := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	return int(ciDay.Sub(nowDay).Hours() / 24)
}

// ScheduledChargeDate derives the charge date for a delayed booking:
// check-in minus the cancellation window.
func ScheduledChargeDate(checkIn time.Time) time.Time {
	return checkIn.AddDate(0, 0, -CancellationWindowDays)
}
