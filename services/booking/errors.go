package booking

import (
	"errors"
	"fmt"

	"casaverde/models"
)

// ErrUnknownProperty is returned when a property id has no channel-manager
// mapping.
var ErrUnknownProperty = errors.New("unknown property")

// ErrIncompleteWindow is returned when the fetched availability window does
// not cover every night of the requested stay. Under-fetching must never
// silently default to a price.
var ErrIncompleteWindow = errors.New("availability window does not cover the full stay")

// ValidationError rejects bad input before any external call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// InvalidStateError signals an operation attempted on a booking that is not
// in the required precondition state.
type InvalidStateError struct {
	BookingID string
	Current   models.BookingStatus
	Message   string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("booking %s in state %q: %s", e.BookingID, e.Current, e.Message)
}

// DatesUnavailableError rejects a stay that overlaps at least one blocked
// date, before any payment binding is attempted.
type DatesUnavailableError struct {
	PropertyID   string
	BlockedDates []string
}

func (e *DatesUnavailableError) Error() string {
	return fmt.Sprintf("property %s has no availability on %v", e.PropertyID, e.BlockedDates)
}
