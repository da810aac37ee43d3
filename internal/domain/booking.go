/**
 * @description
 * This file defines the core domain models for the booking-service: the Booking
 * entity, its status enum, and the transition table that governs the booking
 * lifecycle. The status set is closed; every status change in the system goes
 * through CanTransition so that an unreachable pair can never be persisted.
 *
 * @notes
 * - Monetary fields use shopspring/decimal rather than floats so that VAT and
 *   discount arithmetic is exact and rounding happens only where we say it does.
 * - The Version field is the optimistic-concurrency token: it is read together
 *   with the booking and compared at write time by the repository.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingStatus enumerates the closed set of booking lifecycle states.
type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusInProgress BookingStatus = "in_progress"
	StatusCompleted  BookingStatus = "completed"
	StatusCancelled  BookingStatus = "cancelled"
	StatusDisputed   BookingStatus = "disputed"
)

// ParseBookingStatus converts a wire string into a BookingStatus.
func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusDisputed:
		return BookingStatus(s), true
	}
	return "", false
}

// transitions is the authoritative table of allowed status changes.
// Completed, Cancelled and Disputed are terminal: no pair leads out of them
// except Completed -> Disputed.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusDisputed},
	StatusCompleted:  {StatusDisputed},
}

// CanTransition reports whether a booking may move from one status to another.
// A same-status pair is not in the table, so repeated requests are rejected
// rather than double-stamping timestamps.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Region identifies the market a booking address belongs to. VAT rates are
// keyed by region and fixed onto the booking at creation time.
type Region string

const (
	RegionSaudiArabia Region = "SA"
	RegionEgypt       Region = "EG"
)

// Booking is the central financial and lifecycle record for a service request.
// Rows are never deleted; cancelled and disputed bookings remain for audit.
type Booking struct {
	ID                  uuid.UUID        `json:"id"`
	CustomerID          uuid.UUID        `json:"customer_id"`
	ProviderID          *uuid.UUID       `json:"provider_id,omitempty"`
	ServiceID           uuid.UUID        `json:"service_id"`
	AddressID           uuid.UUID        `json:"address_id"`
	Status              BookingStatus    `json:"status"`
	ScheduledAt         time.Time        `json:"scheduled_at"`
	BasePrice           decimal.Decimal  `json:"base_price"`
	DiscountAmount      decimal.Decimal  `json:"discount_amount"`
	VATPercentage       decimal.Decimal  `json:"vat_percentage"`
	VATAmount           decimal.Decimal  `json:"vat_amount"`
	TotalAmount         decimal.Decimal  `json:"total_amount"`
	Currency            string           `json:"currency"`
	PromoCodeID         *uuid.UUID       `json:"promo_code_id,omitempty"`
	CancellationReason  *string          `json:"cancellation_reason,omitempty"`
	SpecialInstructions *string          `json:"special_instructions,omitempty"`
	StartedAt           *time.Time       `json:"started_at,omitempty"`
	CompletedAt         *time.Time       `json:"completed_at,omitempty"`
	CancelledAt         *time.Time       `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
	Version             int64            `json:"-"`
}

// IsParty reports whether the given actor is the booking's customer or its
// assigned provider. Only parties to a booking may request transitions.
func (b *Booking) IsParty(actorID uuid.UUID) bool {
	if b.CustomerID == actorID {
		return true
	}
	return b.ProviderID != nil && *b.ProviderID == actorID
}

// Service is the slice of the catalogue the booking core needs: the price the
// tax and discount engines start from, and the category promo allow-lists key on.
type Service struct {
	ID         uuid.UUID       `json:"id"`
	CategoryID uuid.UUID       `json:"category_id"`
	Name       string          `json:"name"`
	BasePrice  decimal.Decimal `json:"base_price"`
	Currency   string          `json:"currency"`
}

// Address carries the region that fixes the booking's VAT rate.
type Address struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
	Region Region    `json:"region"`
	City   string    `json:"city"`
}

// CreateBookingRequest is the DTO for incoming booking creation API requests.
type CreateBookingRequest struct {
	ServiceID           uuid.UUID `json:"service_id"`
	AddressID           uuid.UUID `json:"address_id"`
	ScheduledAt         time.Time `json:"scheduled_at"`
	PromoCode           *string   `json:"promo_code,omitempty"`
	SpecialInstructions *string   `json:"special_instructions,omitempty"`
}

// TransitionRequest is the DTO for booking status change API requests.
// Reason is mandatory when the requested status is cancelled.
type TransitionRequest struct {
	Status string  `json:"status"`
	Reason *string `json:"reason,omitempty"`
}

// ProviderEarnings is the analytics view returned to providers: completed
// revenue for a period with the platform commission split applied.
type ProviderEarnings struct {
	ProviderID      uuid.UUID       `json:"provider_id"`
	PeriodStart     time.Time       `json:"period_start"`
	PeriodEnd       time.Time       `json:"period_end"`
	CompletedCount  int64           `json:"completed_count"`
	GrossRevenue    decimal.Decimal `json:"gross_revenue"`
	Commission      decimal.Decimal `json:"commission"`
	NetEarnings     decimal.Decimal `json:"net_earnings"`
	GrowthPercent   decimal.Decimal `json:"growth_percent"`
	PreviousRevenue decimal.Decimal `json:"previous_revenue"`
}
