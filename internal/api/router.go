/**
 * @description
 * This file sets up the HTTP router for the booking-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// BookingRoutes creates and returns a new router for the booking service.
func BookingRoutes(h *BookingHandlers, jwksURL string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwksURL))

		// Booking lifecycle endpoints.
		r.Post("/bookings", h.CreateBookingHandler)
		r.Get("/bookings", h.ListBookingsHandler)
		r.Get("/bookings/{bookingID}", h.GetBookingHandler)
		r.Post("/bookings/{bookingID}/status", h.TransitionBookingHandler)

		// Promo code preview endpoint.
		r.Post("/promo-codes/validate", h.ValidatePromoHandler)

		// Provider analytics endpoint.
		r.Get("/providers/me/earnings", h.ProviderEarningsHandler)
	})

	return r
}
