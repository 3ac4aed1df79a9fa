package checkout_api_test

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ms-queueskip/internal/availability"
	"ms-queueskip/internal/checkout"
	"ms-queueskip/internal/checkout/checkout_api"
	"ms-queueskip/internal/config"
	"ms-queueskip/internal/ledger"
	"ms-queueskip/internal/logger"
	"ms-queueskip/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockVenueReader struct {
	mock.Mock
}

func (m *MockVenueReader) GetVenue(ctx context.Context, venueID string) (*models.Venue, error) {
	args := m.Called(ctx, venueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Venue), args.Error(1)
}

type MockWindowResolver struct {
	mock.Mock
}

func (m *MockWindowResolver) ResolveReservationWindow(ctx context.Context, venue *models.Venue) (*availability.SaleWindow, error) {
	args := m.Called(ctx, venue)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*availability.SaleWindow), args.Error(1)
}

type MockReserver struct {
	mock.Mock
}

func (m *MockReserver) Reserve(ctx context.Context, p ledger.ReserveParams) (*models.PendingHold, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PendingHold), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, venue *models.Venue, customer models.CustomerInfo) (*checkout.CheckoutSession, error) {
	args := m.Called(ctx, venue, customer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.CheckoutSession), args.Error(1)
}

func (m *MockGateway) ExpireSession(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func newReservationRequest(venueID string) *http.Request {
	body := `{"name":"Guest","email":"guest@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/venues/"+venueID+"/reservations", strings.NewReader(body))

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("venueId", venueID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func newTestHandler(venues *MockVenueReader, avail *MockWindowResolver, res *MockReserver, gw *MockGateway) *checkout_api.Handler {
	svc := checkout.NewService(venues, avail, res, gw, nil, logger.NewLogger())
	return checkout_api.NewHandler(svc, nil, config.StripeConfig{}, logger.NewLogger())
}

func TestCreateReservationUnknownVenueIs404(t *testing.T) {
	venues := new(MockVenueReader)
	avail := new(MockWindowResolver)
	res := new(MockReserver)
	gw := new(MockGateway)
	h := newTestHandler(venues, avail, res, gw)

	venues.On("GetVenue", mock.Anything, "no-such-venue").
		Return(nil, fmt.Errorf("select venue: %w", sql.ErrNoRows))

	rec := httptest.NewRecorder()
	h.CreateReservation(rec, newReservationRequest("no-such-venue"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	gw.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateReservationSoldOutIs409(t *testing.T) {
	venues := new(MockVenueReader)
	avail := new(MockWindowResolver)
	res := new(MockReserver)
	gw := new(MockGateway)
	h := newTestHandler(venues, avail, res, gw)

	venue := &models.Venue{ID: "velvet-room", Name: "The Velvet Room", TimeZone: "UTC"}
	venues.On("GetVenue", mock.Anything, "velvet-room").Return(venue, nil)
	avail.On("ResolveReservationWindow", mock.Anything, venue).Return(&availability.SaleWindow{Open: true}, nil)
	gw.On("CreateCheckoutSession", mock.Anything, venue, mock.Anything).
		Return(&checkout.CheckoutSession{ID: "cs_test_123", URL: "https://example.test"}, nil)
	res.On("Reserve", mock.Anything, mock.Anything).Return(nil, ledger.ErrSoldOut)
	gw.On("ExpireSession", mock.Anything, "cs_test_123").Return(nil)

	rec := httptest.NewRecorder()
	h.CreateReservation(rec, newReservationRequest("velvet-room"))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateReservationRequiresEmail(t *testing.T) {
	h := newTestHandler(new(MockVenueReader), new(MockWindowResolver), new(MockReserver), new(MockGateway))

	req := httptest.NewRequest(http.MethodPost, "/api/venues/velvet-room/reservations", strings.NewReader(`{"name":"Guest"}`))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("venueId", "velvet-room")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.CreateReservation(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
