package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	bookingRepo "casaverde/database/repository/booking"
	"casaverde/models"
	"casaverde/services/channel"
	"casaverde/services/gateway"

	"go.uber.org/zap"
)

// memRepo is an in-memory BookingRepository with the same conditional-write
// semantics as the Mongo implementation.
type memRepo struct {
	mu          sync.Mutex
	bookings    map[string]*models.Booking
	updateCalls int
}

func newMemRepo() *memRepo {
	return &memRepo{bookings: make(map[string]*models.Booking)}
}

func (r *memRepo) Create(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id string, expected models.BookingStatus, update bookingRepo.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	if b.Status != expected {
		return bookingRepo.ErrStaleStatus
	}
	r.updateCalls++
	b.Status = update.Status
	if update.ReviewStatus != nil {
		b.ReviewStatus = *update.ReviewStatus
	}
	if update.ApprovedForCharge != nil {
		b.ApprovedForCharge = *update.ApprovedForCharge
	}
	if update.PaymentIntentID != nil {
		b.StripePaymentIntentID = *update.PaymentIntentID
	}
	if update.PaidAt != nil {
		b.PaidAt = update.PaidAt
	}
	if update.ReviewedAt != nil {
		b.ReviewedAt = update.ReviewedAt
	}
	if update.ReviewedBy != nil {
		b.ReviewedBy = *update.ReviewedBy
	}
	if update.RejectReason != nil {
		b.RejectReason = *update.RejectReason
	}
	return nil
}

func (r *memRepo) DueForCharge(_ context.Context, day time.Time) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.Status == models.StatusPending && b.ApprovedForCharge &&
			b.ChargeDate != nil && !b.ChargeDate.After(day) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memRepo) PendingIntents(_ context.Context) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.Status == models.StatusPending && b.StripePaymentIntentID != "" {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memRepo) PendingReview(_ context.Context) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.ReviewStatus == models.ReviewPending &&
			(b.Status == models.StatusRequest || b.Status == models.StatusPending) {
			out = append(out, *b)
		}
	}
	return out, nil
}

// mockGateway scripts gateway behavior and counts calls.
type mockGateway struct {
	mu sync.Mutex

	customerCalls  int
	setupCalls     int
	authorizeCalls int
	chargeCalls    int
	captureCalls   int
	cancelCalls    int

	chargeKeys []string

	// intentStatuses scripts IntentStatus by intent id.
	intentStatuses map[string]string

	// chargeStatus / chargeErr script ChargeOffSession.
	chargeIntentID string
	chargeStatus   string
	chargeErr      error

	authorizeErr error
	setupErr     error
	customerErr  error
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		intentStatuses: make(map[string]string),
		chargeIntentID: "pi_test",
		chargeStatus:   gateway.IntentSucceeded,
	}
}

func (g *mockGateway) CreateCustomer(context.Context, string, string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.customerCalls++
	if g.customerErr != nil {
		return "", g.customerErr
	}
	return fmt.Sprintf("cus_%d", g.customerCalls), nil
}

func (g *mockGateway) SetupDelayedMethod(context.Context, string, string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.setupCalls++
	return g.setupErr
}

func (g *mockGateway) AuthorizeImmediate(context.Context, gateway.ChargeRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authorizeCalls++
	if g.authorizeErr != nil {
		return "", g.authorizeErr
	}
	return fmt.Sprintf("pi_auth_%d", g.authorizeCalls), nil
}

func (g *mockGateway) Capture(_ context.Context, intentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.captureCalls++
	g.intentStatuses[intentID] = gateway.IntentSucceeded
	return nil
}

func (g *mockGateway) ChargeOffSession(_ context.Context, _ gateway.ChargeRequest, key string) (string, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chargeCalls++
	g.chargeKeys = append(g.chargeKeys, key)
	if g.chargeErr != nil {
		return g.chargeIntentID, "", g.chargeErr
	}
	g.intentStatuses[g.chargeIntentID] = g.chargeStatus
	return g.chargeIntentID, g.chargeStatus, nil
}

func (g *mockGateway) IntentStatus(_ context.Context, intentID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	status, ok := g.intentStatuses[intentID]
	if !ok {
		return gateway.IntentRequiresPaymentMethod, nil
	}
	return status, nil
}

func (g *mockGateway) CancelIntent(_ context.Context, intentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelCalls++
	g.intentStatuses[intentID] = gateway.IntentCanceled
	return nil
}

// mockChannel scripts channel-manager behavior and counts calls.
type mockChannel struct {
	mu sync.Mutex

	dates    map[string]channel.RoomDate
	fetchErr error

	fetchCalls  int
	createCalls int
	createErr   error
	nextBookID  string

	statusCalls  int
	lastConfirm  bool
	lastBookID   string
	statusPushes []bool
}

func newMockChannel() *mockChannel {
	return &mockChannel{dates: make(map[string]channel.RoomDate), nextBookID: "77001"}
}

func (m *mockChannel) FetchRoomDates(context.Context, string, string, string, string) (map[string]channel.RoomDate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	out := make(map[string]channel.RoomDate, len(m.dates))
	for k, v := range m.dates {
		out[k] = v
	}
	return out, nil
}

func (m *mockChannel) CreateBooking(context.Context, channel.CreateBookingRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return "", m.createErr
	}
	return m.nextBookID, nil
}

func (m *mockChannel) SetBookingStatus(_ context.Context, _ string, bookID string, confirmed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls++
	m.lastConfirm = confirmed
	m.lastBookID = bookID
	m.statusPushes = append(m.statusPushes, confirmed)
	return nil
}

// staticProps is a fixed property directory for tests.
type staticProps map[string][2]string

func (p staticProps) Lookup(id string) (string, string, bool) {
	v, ok := p[id]
	if !ok {
		return "", "", false
	}
	return v[0], v[1], true
}

// testNow is the fixed clock for all service tests.
var testNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	svc     *DefaultReservationService
	repo    *memRepo
	gateway *mockGateway
	channel *mockChannel
}

func newTestEnv() *testEnv {
	repo := newMemRepo()
	gw := newMockGateway()
	ch := newMockChannel()
	svc := &DefaultReservationService{
		Repo:       repo,
		Gateway:    gw,
		Channel:    ch,
		Properties: staticProps{"villa-sol": {"12345", "propkey-1"}},
		Currency:   "eur",
		Logger:     zap.NewNop(),
		Now:        func() time.Time { return testNow },
	}
	return &testEnv{svc: svc, repo: repo, gateway: gw, channel: ch}
}

// seedDates marks [from, nights) available at the given nightly prices.
func (e *testEnv) seedDates(from time.Time, prices ...int64) {
	for i, p := range prices {
		d := from.AddDate(0, 0, i).Format(dateLayout)
		e.channel.dates[d] = channel.RoomDate{Inventory: 1, PriceMinor: p}
	}
}
