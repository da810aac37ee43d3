/**
 * @description
 * Pure money arithmetic for the booking core: region-aware VAT computation,
 * the platform commission split, and the period-over-period growth percentage
 * used by provider analytics.
 *
 * All arithmetic is fixed-point via shopspring/decimal. Rounding to two
 * decimal places (half up) happens exactly once, at VAT computation; totals,
 * splits and growth are exact arithmetic over already-rounded inputs.
 *
 * @notes
 * - Only Saudi Arabia (15%) and Egypt (14%) are supported. An unknown region
 *   is a configuration error surfaced to the caller, never a silent default.
 */

package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hirafic/booking-service/internal/domain"
)

// ErrUnsupportedRegion is returned when no VAT rate is configured for a region.
var ErrUnsupportedRegion = errors.New("unsupported region: no VAT rate configured")

var (
	hundred = decimal.NewFromInt(100)

	vatRates = map[domain.Region]decimal.Decimal{
		domain.RegionSaudiArabia: decimal.NewFromInt(15),
		domain.RegionEgypt:       decimal.NewFromInt(14),
	}
)

// Price is the result of a VAT computation over a base price.
type Price struct {
	BasePrice     decimal.Decimal
	VATPercentage decimal.Decimal
	VATAmount     decimal.Decimal
	Total         decimal.Decimal
}

// VATRate returns the VAT percentage for a region.
func VATRate(region domain.Region) (decimal.Decimal, error) {
	rate, ok := vatRates[region]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrUnsupportedRegion, region)
	}
	return rate, nil
}

// ComputePrice applies the region's VAT to a base price. Any discount must be
// subtracted from the base before calling this; VAT is never discounted.
func ComputePrice(basePrice decimal.Decimal, region domain.Region) (Price, error) {
	rate, err := VATRate(region)
	if err != nil {
		return Price{}, err
	}

	// Round half up to 2 dp here and nowhere else downstream.
	vat := basePrice.Mul(rate).Div(hundred).Round(2)

	return Price{
		BasePrice:     basePrice,
		VATPercentage: rate,
		VATAmount:     vat,
		Total:         basePrice.Add(vat),
	}, nil
}

// CommissionSplit is the platform/provider division of a paid amount.
type CommissionSplit struct {
	Commission  decimal.Decimal
	NetEarnings decimal.Decimal
}

// Split divides a paid amount between the platform and the provider.
// ratePercent is the single configured commission rate, e.g. 15 for 15%.
func Split(paidAmount, ratePercent decimal.Decimal) CommissionSplit {
	commission := paidAmount.Mul(ratePercent).Div(hundred)
	return CommissionSplit{
		Commission:  commission,
		NetEarnings: paidAmount.Sub(commission),
	}
}

// GrowthPercent computes period-over-period growth as a percentage.
// Defined as zero when the previous period had no revenue.
func GrowthPercent(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(hundred)
}
