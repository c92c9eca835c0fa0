package channel

import (
	"context"
	"errors"
)

// ErrUnavailable is returned on channel-manager timeouts, transport errors
// or malformed responses. Callers must not treat it as "fully available".
var ErrUnavailable = errors.New("channel manager unavailable")

// ErrRejected is returned when the channel manager refuses an operation
// outright (bad key, unknown room, rejected booking).
var ErrRejected = errors.New("channel manager rejected request")

// RoomDate is one night's inventory and price as reported by the channel
// manager. PriceMinor is in the smallest currency unit.
type RoomDate struct {
	Inventory  int
	PriceMinor int64
}

// CreateBookingRequest is the channel-side record of a new reservation.
// Dates are YYYY-MM-DD; LastNight is the final occupied night, not the
// check-out date.
type CreateBookingRequest struct {
	RoomID     string
	PropKey    string
	FirstNight string
	LastNight  string
	GuestName  string
	GuestEmail string
	Message    string
	PriceMinor int64
	Confirmed  bool
}

// ChannelManager is the Beds24-shaped system of record for room inventory.
// It is queried, never pushed to us: there are no webhooks.
type ChannelManager interface {
	// FetchRoomDates returns per-date inventory and price for the room in
	// [from, to]. Dates the channel does not report are absent from the map.
	FetchRoomDates(ctx context.Context, roomID, propKey, from, to string) (map[string]RoomDate, error)

	// CreateBooking creates the channel-side booking and returns its
	// external book id.
	CreateBooking(ctx context.Context, req CreateBookingRequest) (string, error)

	// SetBookingStatus flags an existing channel booking confirmed or
	// cancelled.
	SetBookingStatus(ctx context.Context, propKey, bookID string, confirmed bool) error
}
