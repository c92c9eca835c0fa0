package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	bookingRepo "casaverde/database/repository/booking"
	"casaverde/models"
	"casaverde/services/booking"
	"casaverde/services/channel"
	"casaverde/services/gateway"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubService implements booking.ReservationService with scripted results.
type stubService struct {
	booking *models.Booking
	windows []models.AvailabilityWindow
	pending []models.Booking
	charges []models.ChargeResult
	repairs []models.ReconcileResult
	err     error

	lastDecision models.ReviewDecision
	lastRequest  booking.ReservationRequest
}

func (s *stubService) QueryAvailability(_ context.Context, _ string, _, _ time.Time) ([]models.AvailabilityWindow, error) {
	return s.windows, s.err
}

func (s *stubService) CreateReservation(_ context.Context, req booking.ReservationRequest) (*models.Booking, error) {
	s.lastRequest = req
	return s.booking, s.err
}

func (s *stubService) Decide(_ context.Context, decision models.ReviewDecision) (*models.Booking, error) {
	s.lastDecision = decision
	return s.booking, s.err
}

func (s *stubService) ChargeNow(_ context.Context, _ string) (*models.Booking, error) {
	return s.booking, s.err
}

func (s *stubService) CancelBooking(_ context.Context, _, _ string) (*models.Booking, error) {
	return s.booking, s.err
}

func (s *stubService) RunDueCharges(_ context.Context) ([]models.ChargeResult, error) {
	return s.charges, s.err
}

func (s *stubService) Reconcile(_ context.Context) ([]models.ReconcileResult, error) {
	return s.repairs, s.err
}

func (s *stubService) GetBooking(_ context.Context, _ string) (*models.Booking, error) {
	return s.booking, s.err
}

func (s *stubService) PendingReview(_ context.Context) ([]models.Booking, error) {
	return s.pending, s.err
}

func newTestRouter(svc booking.ReservationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	rh := NewReservationHandler(svc, zap.NewNop())
	r.POST("/api/reservations", rh.CreateReservation)
	r.POST("/api/availability/query", rh.QueryAvailability)
	r.GET("/api/bookings/:id", rh.GetBooking)

	ah := NewAdminHandler(svc, zap.NewNop())
	r.POST("/api/admin/reviews/:id/decide", ah.DecideReview)
	r.GET("/api/admin/bookings/pending-review", ah.PendingReviews)
	r.POST("/api/admin/charges/run", ah.RunCharges)
	r.GET("/api/admin/reconcile", ah.Reconcile)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func validReservationBody() map[string]string {
	return map[string]string{
		"property_id":       "villa-sol",
		"guest_name":        "Ana Souza",
		"guest_email":       "ana@example.com",
		"check_in":          "2025-08-10",
		"check_out":         "2025-08-13",
		"payment_method_id": "pm_visa",
	}
}

func TestCreateReservationCreated(t *testing.T) {
	svc := &stubService{booking: &models.Booking{ID: "bk-1", Status: models.StatusPending}}
	r := newTestRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/api/reservations", validReservationBody())

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "villa-sol", svc.lastRequest.PropertyID)
	assert.Equal(t, time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC), svc.lastRequest.CheckIn)

	var resp struct {
		Booking models.Booking `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "bk-1", resp.Booking.ID)
}

func TestCreateReservationRejectsMissingFields(t *testing.T) {
	r := newTestRouter(&stubService{})

	body := validReservationBody()
	delete(body, "payment_method_id")
	w := doJSON(t, r, http.MethodPost, "/api/reservations", body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCreateReservationRejectsBadDate(t *testing.T) {
	r := newTestRouter(&stubService{})

	body := validReservationBody()
	body["check_in"] = "10/08/2025"
	w := doJSON(t, r, http.MethodPost, "/api/reservations", body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestServiceErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &booking.ValidationError{Field: "guest_name", Message: "required"}, http.StatusUnprocessableEntity},
		{"unknown property", booking.ErrUnknownProperty, http.StatusNotFound},
		{"dates unavailable", &booking.DatesUnavailableError{PropertyID: "villa-sol", BlockedDates: []string{"2025-08-11"}}, http.StatusConflict},
		{"incomplete window", booking.ErrIncompleteWindow, http.StatusConflict},
		{"payment declined", gateway.ErrDeclined, http.StatusPaymentRequired},
		{"gateway outage", gateway.ErrUnavailable, http.StatusBadGateway},
		{"channel outage", channel.ErrUnavailable, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&stubService{err: tc.err})
			w := doJSON(t, r, http.MethodPost, "/api/reservations", validReservationBody())
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestGetBookingNotFound(t *testing.T) {
	r := newTestRouter(&stubService{err: bookingRepo.ErrNotFound})

	w := doJSON(t, r, http.MethodGet, "/api/bookings/bk-missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueryAvailabilityReturnsWindows(t *testing.T) {
	svc := &stubService{windows: []models.AvailabilityWindow{
		{Date: "2025-08-10", Available: true, Inventory: 1, Price: 12000},
		{Date: "2025-08-11", Available: false},
	}}
	r := newTestRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/api/availability/query", map[string]string{
		"property_id": "villa-sol",
		"from":        "2025-08-10",
		"to":          "2025-08-12",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Availability []models.AvailabilityWindow `json:"availability"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Availability, 2)
}

func TestQueryAvailabilityRejectsInvertedRange(t *testing.T) {
	r := newTestRouter(&stubService{})

	w := doJSON(t, r, http.MethodPost, "/api/availability/query", map[string]string{
		"property_id": "villa-sol",
		"from":        "2025-08-12",
		"to":          "2025-08-10",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDecideReviewForwardsDecision(t *testing.T) {
	svc := &stubService{booking: &models.Booking{ID: "bk-1", ReviewStatus: models.ReviewApproved}}
	r := newTestRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/api/admin/reviews/bk-1/decide", map[string]string{
		"action":   "approve",
		"reviewer": "admin@example.com",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bk-1", svc.lastDecision.BookingID)
	assert.Equal(t, "approve", svc.lastDecision.Action)
	assert.Equal(t, "admin@example.com", svc.lastDecision.Reviewer)
}

func TestDecideReviewRejectsUnknownAction(t *testing.T) {
	r := newTestRouter(&stubService{})

	w := doJSON(t, r, http.MethodPost, "/api/admin/reviews/bk-1/decide", map[string]string{
		"action":   "maybe",
		"reviewer": "admin@example.com",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestReconcileReportsDriftCount(t *testing.T) {
	svc := &stubService{repairs: []models.ReconcileResult{
		{BookingID: "bk-1", Drift: true},
		{BookingID: "bk-2", Drift: false},
	}}
	r := newTestRouter(svc)

	w := doJSON(t, r, http.MethodGet, "/api/admin/reconcile", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Checked int `json:"checked"`
		Drift   int `json:"drift"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Checked)
	assert.Equal(t, 1, resp.Drift)
}
