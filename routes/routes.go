package routes

import (
	"net/http"
	"time"

	"casaverde/config"
	"casaverde/handlers"
	"casaverde/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterReservationRoutes registers the guest-facing endpoints.
func RegisterReservationRoutes(r *gin.Engine, rh *handlers.ReservationHandler) {
	api := r.Group("/api")
	{
		api.POST("/reservations", rh.CreateReservation)
		api.POST("/availability/query", rh.QueryAvailability)
		api.GET("/bookings/:id", rh.GetBooking)
	}
}

// RegisterAdminRoutes registers the review gate, charge triggers and
// reconciliation behind admin auth.
func RegisterAdminRoutes(r *gin.Engine, ah *handlers.AdminHandler, cfg *config.Config) {
	api := r.Group("/api/admin")
	{
		api.Use(middleware.AdminAuthMiddleware(cfg.JWTSecret))
		api.POST("/reviews/:id/decide", ah.DecideReview)
		api.GET("/bookings/pending-review", ah.PendingReviews)
		api.POST("/bookings/:id/charge", ah.ChargeBooking)
		api.POST("/bookings/:id/cancel", ah.CancelBooking)
		api.POST("/charges/run", ah.RunCharges)
		api.GET("/reconcile", ah.Reconcile)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// CORSMiddleware returns the CORS policy for the UI layer.
func CORSMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}
