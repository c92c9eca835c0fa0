package booking

import (
	"context"
	"fmt"
	"time"

	"casaverde/models"
	"casaverde/services/channel"
)

const dateLayout = "2006-01-02"

// QueryAvailability resolves per-night availability and price for a
// property over [from, to). Dates the channel manager does not report are
// returned as unavailable: an unknown night must never look bookable.
func (s *DefaultReservationService) QueryAvailability(ctx context.Context, propertyID string, from, to time.Time) ([]models.AvailabilityWindow, error) {
	window, err := s.fetchWindow(ctx, propertyID, from, to)
	if err != nil {
		return nil, err
	}

	// The walk over [from, to) already yields dates in ascending order.
	var out []models.AvailabilityWindow
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		rd, known := window[key]
		out = append(out, models.AvailabilityWindow{
			Date:      key,
			Available: known && rd.Inventory > 0,
			Inventory: rd.Inventory,
			Price:     rd.PriceMinor,
		})
	}
	return out, nil
}

// quoteStay prices a candidate stay as the sum of nightly prices over
// [checkIn, checkOut). It fails with ErrIncompleteWindow when any night is
// missing from the fetched window, and with DatesUnavailableError when any
// night has zero inventory.
func (s *DefaultReservationService) quoteStay(ctx context.Context, propertyID string, checkIn, checkOut time.Time) (int64, error) {
	window, err := s.fetchWindow(ctx, propertyID, checkIn, checkOut)
	if err != nil {
		return 0, err
	}

	var total int64
	var blocked []string
	for d := checkIn; d.Before(checkOut); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		rd, known := window[key]
		if !known {
			return 0, fmt.Errorf("%w: missing %s", ErrIncompleteWindow, key)
		}
		if rd.Inventory <= 0 {
			blocked = append(blocked, key)
			continue
		}
		total += rd.PriceMinor
	}
	if len(blocked) > 0 {
		return 0, &DatesUnavailableError{PropertyID: propertyID, BlockedDates: blocked}
	}
	return total, nil
}

// fetchWindow pulls the raw channel window for [from, to). Read-only; the
// cache decorator on the channel client keeps repeat fetches cheap.
func (s *DefaultReservationService) fetchWindow(ctx context.Context, propertyID string, from, to time.Time) (map[string]channel.RoomDate, error) {
	roomID, propKey, ok := s.Properties.Lookup(propertyID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProperty, propertyID)
	}

	// The channel API's "to" is inclusive; the stay range is exclusive of
	// check-out, so fetch through the last occupied night.
	lastNight := to.AddDate(0, 0, -1)
	window, err := s.Channel.FetchRoomDates(ctx, roomID, propKey, from.Format(dateLayout), lastNight.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("availability lookup for %s failed: %w", propertyID, err)
	}
	return window, nil
}
