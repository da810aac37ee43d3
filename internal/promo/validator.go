/**
 * @description
 * The promo-code validation and discount engine. Validate runs the eligibility
 * checks in a fixed order so that the first failing rule determines the reason
 * a user sees, then computes the discount for codes that pass every check.
 *
 * The engine is pure: every external fact it needs (the code record, prior
 * usage counts, the order context) is supplied by the caller. The redemption
 * counter is NOT advanced here; consuming a use is the repository's atomic
 * conditional increment, scoped to the booking-creation transaction.
 */

package promo

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hirafic/booking-service/internal/domain"
)

// Reason identifies why a promo code was rejected. Reasons are stable
// identifiers a client can map to user-facing copy.
type Reason string

const (
	ReasonNotFound                Reason = "not_found"
	ReasonInactive                Reason = "inactive"
	ReasonNotYetValid             Reason = "not_yet_valid"
	ReasonExpired                 Reason = "expired"
	ReasonTotalLimitReached       Reason = "total_limit_reached"
	ReasonPerCustomerLimitReached Reason = "per_customer_limit_reached"
	ReasonNotFirstOrder           Reason = "not_first_order"
	ReasonMinimumNotMet           Reason = "minimum_not_met"
	ReasonServiceNotApplicable    Reason = "service_not_applicable"
	ReasonCategoryNotApplicable   Reason = "category_not_applicable"
	ReasonRegionNotApplicable     Reason = "region_not_applicable"
)

// Context carries the order being priced and the customer's prior history,
// all resolved by the caller before validation.
type Context struct {
	CustomerID               uuid.UUID
	OrderAmount              decimal.Decimal
	ServiceID                uuid.UUID
	CategoryID               uuid.UUID
	Region                   domain.Region
	PriorCustomerRedemptions int
	PriorCompletedBookings   int
	Now                      time.Time
}

// ValidationResult is the outcome of validating a code against an order.
// When IsValid is false, Reason says why and the amounts are zero/unchanged.
type ValidationResult struct {
	IsValid        bool            `json:"is_valid"`
	Reason         Reason          `json:"reason,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
}

func rejected(reason Reason, orderAmount decimal.Decimal) ValidationResult {
	return ValidationResult{
		IsValid:        false,
		Reason:         reason,
		DiscountAmount: decimal.Zero,
		FinalAmount:    orderAmount,
	}
}

// Validate runs the ordered eligibility checks and, if they all pass, computes
// the discount. code may be nil, meaning lookup found nothing.
func Validate(code *domain.PromoCode, ctx Context) ValidationResult {
	if code == nil {
		return rejected(ReasonNotFound, ctx.OrderAmount)
	}
	if !code.IsActive {
		return rejected(ReasonInactive, ctx.OrderAmount)
	}
	if ctx.Now.Before(code.ValidFrom) {
		return rejected(ReasonNotYetValid, ctx.OrderAmount)
	}
	if ctx.Now.After(code.ValidUntil) {
		return rejected(ReasonExpired, ctx.OrderAmount)
	}
	if code.MaxTotalUses != nil && code.CurrentTotalUses >= *code.MaxTotalUses {
		return rejected(ReasonTotalLimitReached, ctx.OrderAmount)
	}
	if code.MaxUsesPerCustomer != nil && ctx.PriorCustomerRedemptions >= *code.MaxUsesPerCustomer {
		return rejected(ReasonPerCustomerLimitReached, ctx.OrderAmount)
	}
	if code.FirstOrderOnly && ctx.PriorCompletedBookings > 0 {
		return rejected(ReasonNotFirstOrder, ctx.OrderAmount)
	}
	if code.MinimumOrderAmount != nil && ctx.OrderAmount.LessThan(*code.MinimumOrderAmount) {
		return rejected(ReasonMinimumNotMet, ctx.OrderAmount)
	}
	if len(code.ApplicableServices) > 0 && !containsID(code.ApplicableServices, ctx.ServiceID) {
		return rejected(ReasonServiceNotApplicable, ctx.OrderAmount)
	}
	if len(code.ApplicableCategories) > 0 && !containsID(code.ApplicableCategories, ctx.CategoryID) {
		return rejected(ReasonCategoryNotApplicable, ctx.OrderAmount)
	}
	if len(code.ApplicableRegions) > 0 && !containsRegion(code.ApplicableRegions, ctx.Region) {
		return rejected(ReasonRegionNotApplicable, ctx.OrderAmount)
	}

	discount := computeDiscount(code, ctx.OrderAmount)
	return ValidationResult{
		IsValid:        true,
		DiscountAmount: discount,
		FinalAmount:    ctx.OrderAmount.Sub(discount),
	}
}

// computeDiscount assumes the code already passed validation.
func computeDiscount(code *domain.PromoCode, orderAmount decimal.Decimal) decimal.Decimal {
	switch code.DiscountType {
	case domain.DiscountPercentage:
		discount := orderAmount.Mul(code.DiscountValue).Div(decimal.NewFromInt(100))
		if code.MaxDiscountAmount != nil && discount.GreaterThan(*code.MaxDiscountAmount) {
			discount = *code.MaxDiscountAmount
		}
		return discount
	case domain.DiscountFixedAmount:
		// A fixed discount never exceeds the order amount.
		if code.DiscountValue.GreaterThan(orderAmount) {
			return orderAmount
		}
		return code.DiscountValue
	}
	return decimal.Zero
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func containsRegion(regions []domain.Region, region domain.Region) bool {
	for _, candidate := range regions {
		if candidate == region {
			return true
		}
	}
	return false
}
