/**
 * @description
 * This file contains the core business logic for the booking-service. The
 * `Service` struct orchestrates the booking lifecycle, coordinating the pure
 * pricing and promo engines with the database repository and the message
 * broker.
 *
 * Key features:
 * - Implements the main use cases: booking creation, status transitions, and
 *   promo-code validation previews.
 * - Booking creation fixes the VAT rate from the address region and records
 *   the discount at booking time, so later promo edits never rewrite history.
 * - Status transitions are validated against the domain transition table and
 *   persisted under the optimistic version read with the booking.
 * - Publishes lifecycle events to RabbitMQ for asynchronous consumers.
 *
 * @dependencies
 * - internal/domain, internal/pricing, internal/promo, internal/store
 * - pkg/rabbitmq: For lifecycle event publication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hirafic/booking-service/internal/domain"
	"github.com/hirafic/booking-service/internal/pricing"
	"github.com/hirafic/booking-service/internal/promo"
	"github.com/hirafic/booking-service/internal/store"
	"github.com/hirafic/booking-service/pkg/rabbitmq"
)

var (
	ErrUnauthorizedActor = errors.New("actor is not a party to this booking")
	ErrInvalidTransition = errors.New("requested status change is not allowed from the current status")
	ErrReasonRequired    = errors.New("cancellation requires a reason")
	ErrAddressNotOwned   = errors.New("address does not belong to the customer")
	ErrRateLimited       = errors.New("too many promo validation attempts")
)

// PromoRejectedError is returned when a booking request carries a promo code
// that fails validation. The reason is stable and user-displayable.
type PromoRejectedError struct {
	Reason promo.Reason
}

func (e *PromoRejectedError) Error() string {
	return fmt.Sprintf("promo code rejected: %s", e.Reason)
}

// PromoRateLimiter is the limiter guarding the validation preview endpoint.
type PromoRateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for bookings.
type Service struct {
	repo           store.Repository
	eventProducer  rabbitmq.Publisher
	eventExchange  string
	commissionRate decimal.Decimal

	promoRateLimiter     PromoRateLimiter
	promoRateLimitPerMin int

	now func() time.Time
}

// NewService creates a new booking service instance. commissionRatePercent is
// the single platform-wide commission rate, e.g. 15 for 15%.
func NewService(repo store.Repository, producer rabbitmq.Publisher, eventExchange string, commissionRatePercent decimal.Decimal) *Service {
	return &Service{
		repo:           repo,
		eventProducer:  producer,
		eventExchange:  eventExchange,
		commissionRate: commissionRatePercent,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// SetPromoRateLimiter wires the optional Redis-backed limiter for the promo
// validation preview endpoint.
func (s *Service) SetPromoRateLimiter(limiter PromoRateLimiter, perMinute int) {
	s.promoRateLimiter = limiter
	s.promoRateLimitPerMin = perMinute
}

// CreateBooking composes the pricing and promo engines into a persisted
// booking. The discount applies to the pre-tax base price; VAT is computed on
// the discounted base and is never discounted itself.
func (s *Service) CreateBooking(ctx context.Context, customerID uuid.UUID, req domain.CreateBookingRequest) (*domain.Booking, error) {
	svc, err := s.repo.GetServiceByID(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve service: %w", err)
	}
	addr, err := s.repo.GetAddressByID(ctx, req.AddressID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve address: %w", err)
	}
	if addr.UserID != customerID {
		return nil, ErrAddressNotOwned
	}

	discount := decimal.Zero
	var promoCodeID *uuid.UUID

	if req.PromoCode != nil {
		code, result, err := s.validatePromo(ctx, customerID, *req.PromoCode, svc, addr)
		if err != nil {
			return nil, err
		}
		if !result.IsValid {
			return nil, &PromoRejectedError{Reason: result.Reason}
		}
		discount = result.DiscountAmount
		promoCodeID = &code.ID
	}

	price, err := pricing.ComputePrice(svc.BasePrice.Sub(discount), addr.Region)
	if err != nil {
		// Unsupported region is a configuration fault, not user error.
		return nil, fmt.Errorf("pricing configuration error: %w", err)
	}

	booking := &domain.Booking{
		ID:                  uuid.New(),
		CustomerID:          customerID,
		ServiceID:           svc.ID,
		AddressID:           addr.ID,
		Status:              domain.StatusPending,
		ScheduledAt:         req.ScheduledAt.UTC(),
		BasePrice:           svc.BasePrice,
		DiscountAmount:      discount,
		VATPercentage:       price.VATPercentage,
		VATAmount:           price.VATAmount,
		TotalAmount:         price.Total,
		Currency:            svc.Currency,
		PromoCodeID:         promoCodeID,
		SpecialInstructions: req.SpecialInstructions,
	}

	if promoCodeID != nil {
		err = s.repo.CreateBookingWithPromo(ctx, booking, *promoCodeID)
		if errors.Is(err, store.ErrPromoExhausted) {
			// A concurrent booking consumed the last redemption between our
			// validation read and the conditional increment.
			return nil, &PromoRejectedError{Reason: promo.ReasonTotalLimitReached}
		}
	} else {
		err = s.repo.CreateBooking(ctx, booking)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to persist booking: %w", err)
	}

	if s.eventProducer != nil {
		event := domain.BookingCreatedEvent{
			BookingID:   booking.ID,
			CustomerID:  booking.CustomerID,
			ServiceID:   booking.ServiceID,
			Region:      addr.Region,
			TotalAmount: booking.TotalAmount,
			Currency:    booking.Currency,
			ScheduledAt: booking.ScheduledAt,
			Timestamp:   s.now(),
		}
		if err := s.eventProducer.Publish(ctx, s.eventExchange, "booking.created", event); err != nil {
			log.Printf("level=warn component=app msg=\"booking created event publish failed\" booking_id=%s err=%v", booking.ID, err)
		}
	}

	return booking, nil
}

// TransitionBooking validates and applies a status change requested by a party
// to the booking. The write is guarded by the version read here; a concurrent
// transition surfaces as store.ErrVersionConflict and nothing is applied.
func (s *Service) TransitionBooking(ctx context.Context, bookingID uuid.UUID, requested domain.BookingStatus, actorID uuid.UUID, reason *string) (*domain.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsParty(actorID) {
		return nil, ErrUnauthorizedActor
	}
	if !domain.CanTransition(booking.Status, requested) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.Status, requested)
	}

	update := store.StatusUpdate{Status: requested}
	stamp := s.now()
	switch requested {
	case domain.StatusInProgress:
		update.StartedAt = &stamp
	case domain.StatusCompleted:
		update.CompletedAt = &stamp
	case domain.StatusCancelled:
		if reason == nil || *reason == "" {
			return nil, ErrReasonRequired
		}
		update.CancelledAt = &stamp
		update.CancellationReason = reason
	}

	if err := s.repo.UpdateBookingStatus(ctx, booking.ID, booking.Version, update); err != nil {
		return nil, err
	}

	oldStatus := booking.Status
	booking.Status = requested
	booking.StartedAt = firstSet(booking.StartedAt, update.StartedAt)
	booking.CompletedAt = firstSet(booking.CompletedAt, update.CompletedAt)
	booking.CancelledAt = firstSet(booking.CancelledAt, update.CancelledAt)
	if update.CancellationReason != nil {
		booking.CancellationReason = update.CancellationReason
	}
	booking.Version++

	if s.eventProducer != nil {
		event := domain.BookingStatusChangedEvent{
			BookingID:  booking.ID,
			CustomerID: booking.CustomerID,
			ProviderID: booking.ProviderID,
			OldStatus:  oldStatus,
			NewStatus:  requested,
			ActorID:    actorID,
			Reason:     reason,
			Timestamp:  stamp,
		}
		routingKey := fmt.Sprintf("booking.status.%s", requested)
		if err := s.eventProducer.Publish(ctx, s.eventExchange, routingKey, event); err != nil {
			log.Printf("level=warn component=app msg=\"status event publish failed\" booking_id=%s status=%s err=%v", booking.ID, requested, err)
		}
	}

	return booking, nil
}

// ValidatePromoCode is the read-only discount preview. It never consumes a
// redemption; that only happens inside booking creation.
func (s *Service) ValidatePromoCode(ctx context.Context, customerID uuid.UUID, req domain.ValidatePromoRequest) (promo.ValidationResult, error) {
	if s.promoRateLimiter != nil && s.promoRateLimitPerMin > 0 {
		count, _, err := s.promoRateLimiter.ConsumeRateLimit(ctx, "promo_validate", customerID.String(), s.promoRateLimitPerMin, time.Minute)
		if err != nil {
			log.Printf("level=warn component=app msg=\"promo rate limiter unavailable; allowing request\" err=%v", err)
		} else if count > s.promoRateLimitPerMin {
			return promo.ValidationResult{}, ErrRateLimited
		}
	}

	svc, err := s.repo.GetServiceByID(ctx, req.ServiceID)
	if err != nil {
		return promo.ValidationResult{}, fmt.Errorf("failed to resolve service: %w", err)
	}
	addr, err := s.repo.GetAddressByID(ctx, req.AddressID)
	if err != nil {
		return promo.ValidationResult{}, fmt.Errorf("failed to resolve address: %w", err)
	}
	if addr.UserID != customerID {
		return promo.ValidationResult{}, ErrAddressNotOwned
	}

	_, result, err := s.validatePromo(ctx, customerID, req.Code, svc, addr)
	if err != nil {
		return promo.ValidationResult{}, err
	}
	return result, nil
}

// validatePromo loads the code record and the customer's prior usage, then
// runs the pure validation engine over the pre-tax base price.
func (s *Service) validatePromo(ctx context.Context, customerID uuid.UUID, rawCode string, svc *domain.Service, addr *domain.Address) (*domain.PromoCode, promo.ValidationResult, error) {
	promoCtx := promo.Context{
		CustomerID:  customerID,
		OrderAmount: svc.BasePrice,
		ServiceID:   svc.ID,
		CategoryID:  svc.CategoryID,
		Region:      addr.Region,
		Now:         s.now(),
	}

	code, err := s.repo.GetPromoCodeByCode(ctx, domain.NormalizePromoCode(rawCode))
	if err != nil {
		if errors.Is(err, store.ErrPromoCodeNotFound) {
			return nil, promo.Validate(nil, promoCtx), nil
		}
		return nil, promo.ValidationResult{}, fmt.Errorf("failed to load promo code: %w", err)
	}

	redemptions, err := s.repo.CountCustomerRedemptions(ctx, code.ID, customerID)
	if err != nil {
		return nil, promo.ValidationResult{}, fmt.Errorf("failed to count redemptions: %w", err)
	}
	completed, err := s.repo.CountCustomerCompletedBookings(ctx, customerID)
	if err != nil {
		return nil, promo.ValidationResult{}, fmt.Errorf("failed to count completed bookings: %w", err)
	}
	promoCtx.PriorCustomerRedemptions = redemptions
	promoCtx.PriorCompletedBookings = completed

	return code, promo.Validate(code, promoCtx), nil
}

// GetBooking returns a booking to a party of it.
func (s *Service) GetBooking(ctx context.Context, bookingID, actorID uuid.UUID) (*domain.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsParty(actorID) {
		return nil, ErrUnauthorizedActor
	}
	return booking, nil
}

// ListCustomerBookings returns a page of the customer's own bookings.
func (s *Service) ListCustomerBookings(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]domain.Booking, error) {
	return s.repo.ListBookingsByCustomer(ctx, customerID, limit, offset)
}

// ProviderEarnings aggregates a provider's completed revenue for [from, to),
// applies the commission split, and reports growth against the preceding
// period of equal length.
func (s *Service) ProviderEarnings(ctx context.Context, providerID uuid.UUID, from, to time.Time) (*domain.ProviderEarnings, error) {
	current, err := s.repo.CompletedRevenueByProvider(ctx, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate current period revenue: %w", err)
	}

	span := to.Sub(from)
	previous, err := s.repo.CompletedRevenueByProvider(ctx, providerID, from.Add(-span), from)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate previous period revenue: %w", err)
	}

	split := pricing.Split(current.GrossRevenue, s.commissionRate)

	return &domain.ProviderEarnings{
		ProviderID:      providerID,
		PeriodStart:     from,
		PeriodEnd:       to,
		CompletedCount:  current.CompletedCount,
		GrossRevenue:    current.GrossRevenue,
		Commission:      split.Commission,
		NetEarnings:     split.NetEarnings,
		GrowthPercent:   pricing.GrowthPercent(current.GrossRevenue, previous.GrossRevenue),
		PreviousRevenue: previous.GrossRevenue,
	}, nil
}

func firstSet(existing, incoming *time.Time) *time.Time {
	if existing != nil {
		return existing
	}
	return incoming
}
