package handlers

import (
	"net/http"

	"casaverde/models"
	"casaverde/services/booking"
	"casaverde/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler exposes the review gate, the charge triggers and the
// reconciliation trigger to the admin surface.
type AdminHandler struct {
	Service booking.ReservationService
	Logger  *zap.Logger
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(svc booking.ReservationService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{Service: svc, Logger: logger}
}

type reviewDecisionInput struct {
	Action   string `json:"action" binding:"required,oneof=approve reject"`
	Reviewer string `json:"reviewer" binding:"required"`
	Reason   string `json:"reason"`
}

// DecideReview handles POST /api/admin/reviews/:id/decide.
func (h *AdminHandler) DecideReview(c *gin.Context) {
	var input reviewDecisionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusUnprocessableEntity, "invalid input", err.Error())
		return
	}

	b, err := h.Service.Decide(c.Request.Context(), models.ReviewDecision{
		BookingID: c.Param("id"),
		Action:    input.Action,
		Reviewer:  input.Reviewer,
		Reason:    input.Reason,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// PendingReviews handles GET /api/admin/bookings/pending-review.
func (h *AdminHandler) PendingReviews(c *gin.Context) {
	bookings, err := h.Service.PendingReview(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// ChargeBooking handles POST /api/admin/bookings/:id/charge, the explicit
// capture of an approved immediate-charge booking.
func (h *AdminHandler) ChargeBooking(c *gin.Context) {
	b, err := h.Service.ChargeNow(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

type cancelInput struct {
	Reason string `json:"reason"`
}

// CancelBooking handles POST /api/admin/bookings/:id/cancel.
func (h *AdminHandler) CancelBooking(c *gin.Context) {
	var input cancelInput
	_ = c.ShouldBindJSON(&input)

	b, err := h.Service.CancelBooking(c.Request.Context(), c.Param("id"), input.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// RunCharges handles POST /api/admin/charges/run, the external trigger for
// the daily charge executor.
func (h *AdminHandler) RunCharges(c *gin.Context) {
	results, err := h.Service.RunDueCharges(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// Reconcile handles GET /api/admin/reconcile, the on-demand reconciliation
// trigger.
func (h *AdminHandler) Reconcile(c *gin.Context) {
	results, err := h.Service.Reconcile(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	drift := 0
	for _, r := range results {
		if r.Drift {
			drift++
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "checked": len(results), "drift": drift})
}
