package handlers

import (
	"errors"
	"net/http"
	"time"

	bookingRepo "casaverde/database/repository/booking"
	"casaverde/services/booking"
	"casaverde/services/channel"
	"casaverde/services/gateway"
	"casaverde/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// ReservationHandler exposes the guest-facing reservation and availability
// endpoints.
type ReservationHandler struct {
	Service booking.ReservationService
	Logger  *zap.Logger
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(svc booking.ReservationService, logger *zap.Logger) *ReservationHandler {
	return &ReservationHandler{Service: svc, Logger: logger}
}

type createReservationInput struct {
	PropertyID      string `json:"property_id" binding:"required"`
	GuestName       string `json:"guest_name" binding:"required"`
	GuestEmail      string `json:"guest_email" binding:"required,email"`
	GuestMessage    string `json:"guest_message"`
	CheckIn         string `json:"check_in" binding:"required"`
	CheckOut        string `json:"check_out" binding:"required"`
	PaymentMethodID string `json:"payment_method_id" binding:"required"`
}

// CreateReservation handles POST /api/reservations.
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	var input createReservationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusUnprocessableEntity, "invalid input", err.Error())
		return
	}

	checkIn, err := time.ParseInLocation(dateLayout, input.CheckIn, time.UTC)
	if err != nil {
		utils.JSONError(c, http.StatusUnprocessableEntity, "invalid check_in date", err.Error())
		return
	}
	checkOut, err := time.ParseInLocation(dateLayout, input.CheckOut, time.UTC)
	if err != nil {
		utils.JSONError(c, http.StatusUnprocessableEntity, "invalid check_out date", err.Error())
		return
	}

	b, err := h.Service.CreateReservation(c.Request.Context(), booking.ReservationRequest{
		PropertyID:      input.PropertyID,
		GuestName:       input.GuestName,
		GuestEmail:      input.GuestEmail,
		GuestMessage:    input.GuestMessage,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		PaymentMethodID: input.PaymentMethodID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": b})
}

type availabilityQueryInput struct {
	PropertyID string `json:"property_id" binding:"required"`
	From       string `json:"from" binding:"required"`
	To         string `json:"to" binding:"required"`
}

// QueryAvailability handles POST /api/availability/query.
func (h *ReservationHandler) QueryAvailability(c *gin.Context) {
	var input availabilityQueryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusUnprocessableEntity, "invalid input", err.Error())
		return
	}

	from, err := time.ParseInLocation(dateLayout, input.From, time.UTC)
	if err != nil {
		utils.JSONError(c, http.StatusUnprocessableEntity, "invalid from date", err.Error())
		return
	}
	to, err := time.ParseInLocation(dateLayout, input.To, time.UTC)
	if err != nil {
		utils.JSONError(c, http.StatusUnprocessableEntity, "invalid to date", err.Error())
		return
	}
	if !to.After(from) {
		utils.JSONError(c, http.StatusUnprocessableEntity, "invalid range", "to must be after from")
		return
	}

	windows, err := h.Service.QueryAvailability(c.Request.Context(), input.PropertyID, from, to)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"availability": windows})
}

// GetBooking handles GET /api/bookings/:id.
func (h *ReservationHandler) GetBooking(c *gin.Context) {
	b, err := h.Service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	var validationErr *booking.ValidationError
	var invalidState *booking.InvalidStateError
	var unavailable *booking.DatesUnavailableError

	switch {
	case errors.As(err, &validationErr):
		utils.JSONError(c, http.StatusUnprocessableEntity, "validation failed", validationErr.Error())
	case errors.Is(err, booking.ErrUnknownProperty):
		utils.JSONError(c, http.StatusNotFound, "unknown property", err.Error())
	case errors.Is(err, bookingRepo.ErrNotFound):
		utils.JSONError(c, http.StatusNotFound, "booking not found", err.Error())
	case errors.As(err, &unavailable):
		utils.JSONError(c, http.StatusConflict, "dates unavailable", unavailable.Error())
	case errors.Is(err, booking.ErrIncompleteWindow):
		utils.JSONError(c, http.StatusConflict, "availability window incomplete", err.Error())
	case errors.As(err, &invalidState):
		utils.JSONError(c, http.StatusConflict, "invalid booking state", invalidState.Error())
	case errors.Is(err, gateway.ErrDeclined):
		utils.JSONError(c, http.StatusPaymentRequired, "payment declined", err.Error())
	case errors.Is(err, gateway.ErrUnavailable), errors.Is(err, channel.ErrUnavailable):
		utils.JSONError(c, http.StatusBadGateway, "upstream service unavailable", err.Error())
	default:
		utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
	}
}
