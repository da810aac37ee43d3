/**
 * @description
 * This file defines the PromoCode entity and the result types produced by the
 * promo validation engine. A promo code is an administrator-managed discount
 * definition; bookings record the code they redeemed so that later edits to a
 * code never retroactively change historical totals.
 *
 * @notes
 * - Codes are stored normalized (trimmed, upper-case, no spaces); lookup is
 *   case-insensitive.
 * - CurrentTotalUses is only ever advanced by the repository's conditional
 *   increment, never by application code doing read-then-write.
 */

package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the two supported discount shapes.
type DiscountType string

const (
	DiscountPercentage  DiscountType = "percentage"
	DiscountFixedAmount DiscountType = "fixed_amount"
)

// PromoCode is a reusable discount definition with usage and eligibility
// constraints. Codes are deactivated, never deleted.
type PromoCode struct {
	ID                   uuid.UUID        `json:"id"`
	Code                 string           `json:"code"`
	DiscountType         DiscountType     `json:"discount_type"`
	DiscountValue        decimal.Decimal  `json:"discount_value"`
	MaxDiscountAmount    *decimal.Decimal `json:"max_discount_amount,omitempty"`
	ValidFrom            time.Time        `json:"valid_from"`
	ValidUntil           time.Time        `json:"valid_until"`
	MaxTotalUses         *int             `json:"max_total_uses,omitempty"`
	MaxUsesPerCustomer   *int             `json:"max_uses_per_customer,omitempty"`
	MinimumOrderAmount   *decimal.Decimal `json:"minimum_order_amount,omitempty"`
	ApplicableServices   []uuid.UUID      `json:"applicable_services,omitempty"`
	ApplicableCategories []uuid.UUID      `json:"applicable_categories,omitempty"`
	ApplicableRegions    []Region         `json:"applicable_regions,omitempty"`
	FirstOrderOnly       bool             `json:"first_order_only"`
	IsActive             bool             `json:"is_active"`
	CurrentTotalUses     int              `json:"current_total_uses"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// NormalizePromoCode canonicalizes a user-supplied code for lookup and storage.
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), " ", ""))
}

// ValidatePromoRequest is the DTO for the discount preview endpoint.
type ValidatePromoRequest struct {
	Code      string    `json:"code"`
	ServiceID uuid.UUID `json:"service_id"`
	AddressID uuid.UUID `json:"address_id"`
}
