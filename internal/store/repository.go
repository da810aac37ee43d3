/**
 * @description
 * This file defines the `Repository` interface, the contract for all data
 * access the booking-service needs. The application layer depends only on this
 * interface, which keeps the lifecycle and pricing logic testable with
 * in-memory stubs and independent of PostgreSQL specifics.
 *
 * The two concurrency-sensitive operations live here by design:
 * - UpdateBookingStatus is version-guarded so two concurrent transitions from
 *   the same prior state cannot both succeed (ErrVersionConflict).
 * - CreateBookingWithPromo performs the conditional redemption-counter
 *   increment inside the same transaction that inserts the booking, so the
 *   last available use of a code cannot be granted twice.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hirafic/booking-service/internal/domain"
)

var (
	ErrBookingNotFound   = errors.New("booking not found")
	ErrServiceNotFound   = errors.New("service not found")
	ErrAddressNotFound   = errors.New("address not found")
	ErrPromoCodeNotFound = errors.New("promo code not found")
	// ErrVersionConflict signals a concurrent write: the booking's version
	// changed between read and write. Callers should re-read and retry.
	ErrVersionConflict = errors.New("booking was modified concurrently")
	// ErrPromoExhausted signals the conditional increment found no remaining
	// uses; the code's total limit was consumed by a concurrent booking.
	ErrPromoExhausted = errors.New("promo code has no remaining uses")
)

// StatusUpdate carries the fields a validated transition writes. Exactly one
// of the timestamp pointers is set for in_progress/completed/cancelled.
type StatusUpdate struct {
	Status             domain.BookingStatus
	StartedAt          *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason *string
}

// RevenueTotals aggregates completed-booking revenue for a provider over a period.
type RevenueTotals struct {
	CompletedCount int64
	GrossRevenue   decimal.Decimal
}

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Booking methods
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error)
	ListBookingsByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]domain.Booking, error)
	CreateBooking(ctx context.Context, booking *domain.Booking) error
	// CreateBookingWithPromo inserts the booking and consumes one redemption of
	// the promo code in a single transaction. Returns ErrPromoExhausted (and
	// inserts nothing) when the code's total-use cap is already consumed.
	CreateBookingWithPromo(ctx context.Context, booking *domain.Booking, promoCodeID uuid.UUID) error
	// UpdateBookingStatus applies a validated transition guarded by the version
	// read with the booking. Returns ErrVersionConflict on a stale version.
	UpdateBookingStatus(ctx context.Context, bookingID uuid.UUID, version int64, update StatusUpdate) error

	// Catalogue methods
	GetServiceByID(ctx context.Context, serviceID uuid.UUID) (*domain.Service, error)
	GetAddressByID(ctx context.Context, addressID uuid.UUID) (*domain.Address, error)

	// Promo code methods
	GetPromoCodeByCode(ctx context.Context, normalizedCode string) (*domain.PromoCode, error)
	CountCustomerRedemptions(ctx context.Context, promoCodeID, customerID uuid.UUID) (int, error)
	CountCustomerCompletedBookings(ctx context.Context, customerID uuid.UUID) (int, error)

	// Analytics methods
	CompletedRevenueByProvider(ctx context.Context, providerID uuid.UUID, from, to time.Time) (*RevenueTotals, error)
}
