package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hirafic/booking-service/internal/app"
	"github.com/hirafic/booking-service/internal/domain"
	"github.com/hirafic/booking-service/internal/store"
)

type handlerRepoStub struct {
	store.Repository

	booking   *domain.Booking
	service   *domain.Service
	address   *domain.Address
	updateErr error
}

func (s *handlerRepoStub) GetBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	if s.booking == nil || s.booking.ID != bookingID {
		return nil, store.ErrBookingNotFound
	}
	copied := *s.booking
	return &copied, nil
}

func (s *handlerRepoStub) UpdateBookingStatus(ctx context.Context, bookingID uuid.UUID, version int64, update store.StatusUpdate) error {
	return s.updateErr
}

func (s *handlerRepoStub) GetServiceByID(ctx context.Context, serviceID uuid.UUID) (*domain.Service, error) {
	if s.service == nil {
		return nil, store.ErrServiceNotFound
	}
	return s.service, nil
}

func (s *handlerRepoStub) GetAddressByID(ctx context.Context, addressID uuid.UUID) (*domain.Address, error) {
	if s.address == nil {
		return nil, store.ErrAddressNotFound
	}
	return s.address, nil
}

func (s *handlerRepoStub) GetPromoCodeByCode(ctx context.Context, normalizedCode string) (*domain.PromoCode, error) {
	return nil, store.ErrPromoCodeNotFound
}

func (s *handlerRepoStub) CreateBooking(ctx context.Context, booking *domain.Booking) error {
	return nil
}

func newHandlerFixture(repo *handlerRepoStub) *BookingHandlers {
	svc := app.NewService(repo, nil, "hirafic.events", decimal.NewFromInt(15))
	return NewBookingHandlers(svc)
}

// authedRequest builds a request carrying the actor the auth middleware would
// have put on the context.
func authedRequest(method, target string, body []byte, actorID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), actorIDKey, actorID)
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func transitionRequest(t *testing.T, h *BookingHandlers, bookingID uuid.UUID, actorID uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := authedRequest(http.MethodPost, "/bookings/"+bookingID.String()+"/status", []byte(body), actorID)
	req = withURLParam(req, "bookingID", bookingID.String())
	rec := httptest.NewRecorder()
	h.TransitionBookingHandler(rec, req)
	return rec
}

func TestTransitionBookingHandler_StatusMapping(t *testing.T) {
	customerID := uuid.New()
	booking := &domain.Booking{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     domain.StatusPending,
		Version:    1,
	}

	tests := []struct {
		name      string
		actorID   uuid.UUID
		bookingID uuid.UUID
		body      string
		updateErr error
		want      int
	}{
		{"valid transition", customerID, booking.ID, `{"status":"confirmed"}`, nil, http.StatusOK},
		{"unknown booking", customerID, uuid.New(), `{"status":"confirmed"}`, nil, http.StatusNotFound},
		{"stranger", uuid.New(), booking.ID, `{"status":"confirmed"}`, nil, http.StatusForbidden},
		{"unreachable status", customerID, booking.ID, `{"status":"completed"}`, nil, http.StatusUnprocessableEntity},
		{"unknown status", customerID, booking.ID, `{"status":"archived"}`, nil, http.StatusBadRequest},
		{"cancel without reason", customerID, booking.ID, `{"status":"cancelled"}`, nil, http.StatusBadRequest},
		{"concurrent modification", customerID, booking.ID, `{"status":"confirmed"}`, store.ErrVersionConflict, http.StatusConflict},
	}

	for _, tc := range tests {
		repo := &handlerRepoStub{booking: booking, updateErr: tc.updateErr}
		h := newHandlerFixture(repo)

		rec := transitionRequest(t, h, tc.bookingID, tc.actorID, tc.body)
		if rec.Code != tc.want {
			t.Errorf("%s: expected status %d, got %d (body %s)", tc.name, tc.want, rec.Code, rec.Body.String())
		}
	}
}

func TestTransitionBookingHandler_RequiresAuth(t *testing.T) {
	h := newHandlerFixture(&handlerRepoStub{})

	req := httptest.NewRequest(http.MethodPost, "/bookings/abc/status", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	h.TransitionBookingHandler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without an authenticated actor, got %d", rec.Code)
	}
}

func TestCreateBookingHandler_RejectedPromoBody(t *testing.T) {
	customerID := uuid.New()
	repo := &handlerRepoStub{
		service: &domain.Service{
			ID:        uuid.New(),
			BasePrice: decimal.NewFromInt(100),
			Currency:  "SAR",
		},
		address: &domain.Address{
			ID:     uuid.New(),
			UserID: customerID,
			Region: domain.RegionSaudiArabia,
		},
	}
	h := newHandlerFixture(repo)

	payload, _ := json.Marshal(domain.CreateBookingRequest{
		ServiceID:   repo.service.ID,
		AddressID:   repo.address.ID,
		ScheduledAt: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		PromoCode:   strPtr("GHOST"),
	})

	req := authedRequest(http.MethodPost, "/bookings", payload, customerID)
	rec := httptest.NewRecorder()
	h.CreateBookingHandler(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a rejected promo, got %d (body %s)", rec.Code, rec.Body.String())
	}
	var body promoRejectionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Reason != "not_found" {
		t.Fatalf("expected reason not_found, got %q", body.Reason)
	}
}

func TestCreateBookingHandler_Created(t *testing.T) {
	customerID := uuid.New()
	repo := &handlerRepoStub{
		service: &domain.Service{
			ID:        uuid.New(),
			BasePrice: decimal.NewFromInt(100),
			Currency:  "SAR",
		},
		address: &domain.Address{
			ID:     uuid.New(),
			UserID: customerID,
			Region: domain.RegionSaudiArabia,
		},
	}
	h := newHandlerFixture(repo)

	payload, _ := json.Marshal(domain.CreateBookingRequest{
		ServiceID:   repo.service.ID,
		AddressID:   repo.address.ID,
		ScheduledAt: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
	})

	req := authedRequest(http.MethodPost, "/bookings", payload, customerID)
	rec := httptest.NewRecorder()
	h.CreateBookingHandler(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %s)", rec.Code, rec.Body.String())
	}
	var booking domain.Booking
	if err := json.Unmarshal(rec.Body.Bytes(), &booking); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !booking.TotalAmount.Equal(decimal.RequireFromString("115")) {
		t.Fatalf("expected total 115, got %s", booking.TotalAmount)
	}
}

func strPtr(s string) *string { return &s }
