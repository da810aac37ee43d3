/**
 * @description
 * This file contains the HTTP handlers for the booking-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hirafic/booking-service/internal/app"
	"github.com/hirafic/booking-service/internal/domain"
	"github.com/hirafic/booking-service/internal/store"
)

// BookingHandlers holds the application service that handlers will use.
type BookingHandlers struct {
	service *app.Service
}

// NewBookingHandlers creates a new instance of BookingHandlers.
func NewBookingHandlers(service *app.Service) *BookingHandlers {
	return &BookingHandlers{service: service}
}

func (h *BookingHandlers) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

func (h *BookingHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// promoRejectionResponse is returned when a promo code fails validation during
// booking creation; the reason is stable so clients can map it to copy.
type promoRejectionResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// CreateBookingHandler handles requests to create a new booking.
func (h *BookingHandlers) CreateBookingHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := GetActorID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req domain.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ServiceID == uuid.Nil || req.AddressID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "service_id and address_id are required")
		return
	}
	if req.ScheduledAt.IsZero() {
		h.writeError(w, http.StatusBadRequest, "scheduled_at is required")
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), actorID, req)
	if err != nil {
		var promoErr *app.PromoRejectedError
		switch {
		case errors.As(err, &promoErr):
			h.writeJSON(w, http.StatusUnprocessableEntity, promoRejectionResponse{
				Error:  "Promo code is not applicable",
				Reason: string(promoErr.Reason),
			})
		case errors.Is(err, store.ErrServiceNotFound):
			h.writeError(w, http.StatusNotFound, "Service not found")
		case errors.Is(err, store.ErrAddressNotFound):
			h.writeError(w, http.StatusNotFound, "Address not found")
		case errors.Is(err, app.ErrAddressNotOwned):
			h.writeError(w, http.StatusForbidden, "Address does not belong to you")
		default:
			log.Printf("level=error component=api msg=\"booking creation failed\" customer_id=%s err=%v", actorID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to create booking")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, booking)
}

// TransitionBookingHandler handles booking status change requests from a
// customer or provider.
func (h *BookingHandlers) TransitionBookingHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := GetActorID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}

	var req domain.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	requested, ok := domain.ParseBookingStatus(req.Status)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "Unknown booking status")
		return
	}

	booking, err := h.service.TransitionBooking(r.Context(), bookingID, requested, actorID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrBookingNotFound):
			h.writeError(w, http.StatusNotFound, "Booking not found")
		case errors.Is(err, app.ErrUnauthorizedActor):
			h.writeError(w, http.StatusForbidden, "You are not a party to this booking")
		case errors.Is(err, app.ErrInvalidTransition):
			h.writeError(w, http.StatusUnprocessableEntity, "Requested status change is not allowed")
		case errors.Is(err, app.ErrReasonRequired):
			h.writeError(w, http.StatusBadRequest, "Cancellation requires a reason")
		case errors.Is(err, store.ErrVersionConflict):
			h.writeError(w, http.StatusConflict, "Booking was modified concurrently; please retry")
		default:
			log.Printf("level=error component=api msg=\"booking transition failed\" booking_id=%s err=%v", bookingID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to update booking")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, booking)
}

// GetBookingHandler returns a single booking to one of its parties.
func (h *BookingHandlers) GetBookingHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := GetActorID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}

	booking, err := h.service.GetBooking(r.Context(), bookingID, actorID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrBookingNotFound):
			h.writeError(w, http.StatusNotFound, "Booking not found")
		case errors.Is(err, app.ErrUnauthorizedActor):
			h.writeError(w, http.StatusForbidden, "You are not a party to this booking")
		default:
			log.Printf("level=error component=api msg=\"booking fetch failed\" booking_id=%s err=%v", bookingID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to fetch booking")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, booking)
}

// ListBookingsHandler returns a page of the caller's own bookings.
func (h *BookingHandlers) ListBookingsHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := GetActorID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	bookings, err := h.service.ListCustomerBookings(r.Context(), actorID, limit, offset)
	if err != nil {
		log.Printf("level=error component=api msg=\"booking list failed\" customer_id=%s err=%v", actorID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to list bookings")
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}

	h.writeJSON(w, http.StatusOK, bookings)
}

// ValidatePromoHandler is the discount preview endpoint: it validates a code
// against an order without consuming a redemption.
func (h *BookingHandlers) ValidatePromoHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := GetActorID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req domain.ValidatePromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Code == "" || req.ServiceID == uuid.Nil || req.AddressID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "code, service_id and address_id are required")
		return
	}

	result, err := h.service.ValidatePromoCode(r.Context(), actorID, req)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrRateLimited):
			h.writeError(w, http.StatusTooManyRequests, "Too many validation attempts; please wait")
		case errors.Is(err, store.ErrServiceNotFound):
			h.writeError(w, http.StatusNotFound, "Service not found")
		case errors.Is(err, store.ErrAddressNotFound):
			h.writeError(w, http.StatusNotFound, "Address not found")
		case errors.Is(err, app.ErrAddressNotOwned):
			h.writeError(w, http.StatusForbidden, "Address does not belong to you")
		default:
			log.Printf("level=error component=api msg=\"promo validation failed\" customer_id=%s err=%v", actorID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to validate promo code")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// ProviderEarningsHandler returns the caller's completed revenue for a period
// with the commission split applied. Defaults to the trailing 30 days.
func (h *BookingHandlers) ProviderEarningsHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := GetActorID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid 'from' timestamp; use RFC3339")
			return
		}
		from = parsed.UTC()
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid 'to' timestamp; use RFC3339")
			return
		}
		to = parsed.UTC()
	}
	if !from.Before(to) {
		h.writeError(w, http.StatusBadRequest, "'from' must be before 'to'")
		return
	}

	earnings, err := h.service.ProviderEarnings(r.Context(), actorID, from, to)
	if err != nil {
		log.Printf("level=error component=api msg=\"earnings aggregation failed\" provider_id=%s err=%v", actorID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to compute earnings")
		return
	}

	h.writeJSON(w, http.StatusOK, earnings)
}
