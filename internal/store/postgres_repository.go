/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface using the pgx driver and connection pool. It handles all SQL
 * queries and the mapping between database rows and domain models.
 *
 * Key features:
 * - Optimistic concurrency on booking status: every status write is guarded
 *   by the version read with the booking and bumps it on success.
 * - The promo redemption counter is advanced with a conditional UPDATE inside
 *   the booking-creation transaction, so a read-then-write race can never
 *   over-grant the last redemption.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver and connection pooling.
 * - internal/domain: The domain models this repository hydrates.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hirafic/booking-service/internal/domain"
)

// PostgresRepository is the PostgreSQL-backed implementation of Repository.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new repository with the given connection pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const bookingColumns = `
	id, customer_id, provider_id, service_id, address_id, status, scheduled_at,
	base_price, discount_amount, vat_percentage, vat_amount, total_amount, currency,
	promo_code_id, cancellation_reason, special_instructions,
	started_at, completed_at, cancelled_at, created_at, updated_at, version
`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.CustomerID, &b.ProviderID, &b.ServiceID, &b.AddressID, &b.Status, &b.ScheduledAt,
		&b.BasePrice, &b.DiscountAmount, &b.VATPercentage, &b.VATAmount, &b.TotalAmount, &b.Currency,
		&b.PromoCodeID, &b.CancellationReason, &b.SpecialInstructions,
		&b.StartedAt, &b.CompletedAt, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBooking retrieves a booking together with its concurrency version.
func (r *PostgresRepository) GetBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	booking, err := scanBooking(r.db.QueryRow(ctx, query, bookingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

// ListBookingsByCustomer returns a customer's bookings, newest first.
func (r *PostgresRepository) ListBookingsByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE customer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, customerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	return bookings, rows.Err()
}

const insertBookingQuery = `
	INSERT INTO bookings (
		id, customer_id, provider_id, service_id, address_id, status, scheduled_at,
		base_price, discount_amount, vat_percentage, vat_amount, total_amount, currency,
		promo_code_id, special_instructions, version
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1)
	RETURNING created_at, updated_at
`

func insertBooking(ctx context.Context, tx pgx.Tx, booking *domain.Booking) error {
	return tx.QueryRow(ctx, insertBookingQuery,
		booking.ID, booking.CustomerID, booking.ProviderID, booking.ServiceID, booking.AddressID,
		booking.Status, booking.ScheduledAt,
		booking.BasePrice, booking.DiscountAmount, booking.VATPercentage, booking.VATAmount,
		booking.TotalAmount, booking.Currency,
		booking.PromoCodeID, booking.SpecialInstructions,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
}

// CreateBooking inserts a booking that did not use a promo code.
func (r *PostgresRepository) CreateBooking(ctx context.Context, booking *domain.Booking) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	booking.Version = 1
	if err := insertBooking(ctx, tx, booking); err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return tx.Commit(ctx)
}

// CreateBookingWithPromo inserts the booking and consumes one redemption of
// the promo code atomically. The conditional UPDATE is the concurrency guard:
// it only advances the counter while uses remain, so two bookings racing for
// the last redemption cannot both get it.
func (r *PostgresRepository) CreateBookingWithPromo(ctx context.Context, booking *domain.Booking, promoCodeID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	incrementQuery := `
		UPDATE promo_codes
		SET current_total_uses = current_total_uses + 1, updated_at = NOW()
		WHERE id = $1
		  AND is_active = TRUE
		  AND (max_total_uses IS NULL OR current_total_uses < max_total_uses)
	`
	tag, err := tx.Exec(ctx, incrementQuery, promoCodeID)
	if err != nil {
		return fmt.Errorf("failed to increment promo code usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPromoExhausted
	}

	booking.Version = 1
	if err := insertBooking(ctx, tx, booking); err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	redemptionQuery := `
		INSERT INTO promo_code_redemptions (promo_code_id, customer_id, booking_id, redeemed_at)
		VALUES ($1, $2, $3, NOW())
	`
	if _, err := tx.Exec(ctx, redemptionQuery, promoCodeID, booking.CustomerID, booking.ID); err != nil {
		return fmt.Errorf("failed to insert redemption record: %w", err)
	}

	return tx.Commit(ctx)
}

// UpdateBookingStatus applies a validated transition. The WHERE clause checks
// the version read with the booking; zero rows affected with an existing
// booking means a concurrent writer got there first. COALESCE keeps an
// already-set lifecycle timestamp immutable.
func (r *PostgresRepository) UpdateBookingStatus(ctx context.Context, bookingID uuid.UUID, version int64, update StatusUpdate) error {
	query := `
		UPDATE bookings
		SET status = $1,
		    started_at = COALESCE(started_at, $2),
		    completed_at = COALESCE(completed_at, $3),
		    cancelled_at = COALESCE(cancelled_at, $4),
		    cancellation_reason = COALESCE(cancellation_reason, $5),
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $6 AND version = $7
	`
	tag, err := r.db.Exec(ctx, query,
		update.Status, update.StartedAt, update.CompletedAt, update.CancelledAt,
		update.CancellationReason, bookingID, version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, bookingID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrBookingNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

// GetServiceByID retrieves a catalogue service.
func (r *PostgresRepository) GetServiceByID(ctx context.Context, serviceID uuid.UUID) (*domain.Service, error) {
	var svc domain.Service
	query := `SELECT id, category_id, name, base_price, currency FROM services WHERE id = $1`
	err := r.db.QueryRow(ctx, query, serviceID).Scan(&svc.ID, &svc.CategoryID, &svc.Name, &svc.BasePrice, &svc.Currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &svc, nil
}

// GetAddressByID retrieves a customer address with its region.
func (r *PostgresRepository) GetAddressByID(ctx context.Context, addressID uuid.UUID) (*domain.Address, error) {
	var addr domain.Address
	query := `SELECT id, user_id, region, city FROM addresses WHERE id = $1`
	err := r.db.QueryRow(ctx, query, addressID).Scan(&addr.ID, &addr.UserID, &addr.Region, &addr.City)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, err
	}
	return &addr, nil
}

// GetPromoCodeByCode retrieves a promo code by its normalized code string.
func (r *PostgresRepository) GetPromoCodeByCode(ctx context.Context, normalizedCode string) (*domain.PromoCode, error) {
	var pc domain.PromoCode
	var discountType string
	var regions []string
	query := `
		SELECT id, code, discount_type, discount_value, max_discount_amount,
		       valid_from, valid_until, max_total_uses, max_uses_per_customer,
		       minimum_order_amount, applicable_services, applicable_categories,
		       applicable_regions, first_order_only, is_active, current_total_uses,
		       created_at, updated_at
		FROM promo_codes
		WHERE code = $1
	`
	err := r.db.QueryRow(ctx, query, normalizedCode).Scan(
		&pc.ID, &pc.Code, &discountType, &pc.DiscountValue, &pc.MaxDiscountAmount,
		&pc.ValidFrom, &pc.ValidUntil, &pc.MaxTotalUses, &pc.MaxUsesPerCustomer,
		&pc.MinimumOrderAmount, &pc.ApplicableServices, &pc.ApplicableCategories,
		&regions, &pc.FirstOrderOnly, &pc.IsActive, &pc.CurrentTotalUses,
		&pc.CreatedAt, &pc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPromoCodeNotFound
		}
		return nil, err
	}
	pc.DiscountType = domain.DiscountType(discountType)
	for _, region := range regions {
		pc.ApplicableRegions = append(pc.ApplicableRegions, domain.Region(region))
	}
	return &pc, nil
}

// CountCustomerRedemptions counts how many times a customer has redeemed a code.
func (r *PostgresRepository) CountCustomerRedemptions(ctx context.Context, promoCodeID, customerID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM promo_code_redemptions WHERE promo_code_id = $1 AND customer_id = $2`
	if err := r.db.QueryRow(ctx, query, promoCodeID, customerID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountCustomerCompletedBookings counts a customer's completed bookings, used
// by the first-order-only promo rule.
func (r *PostgresRepository) CountCustomerCompletedBookings(ctx context.Context, customerID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM bookings WHERE customer_id = $1 AND status = 'completed'`
	if err := r.db.QueryRow(ctx, query, customerID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CompletedRevenueByProvider sums completed-booking totals for a provider in
// the half-open period [from, to).
func (r *PostgresRepository) CompletedRevenueByProvider(ctx context.Context, providerID uuid.UUID, from, to time.Time) (*RevenueTotals, error) {
	var totals RevenueTotals
	query := `
		SELECT COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM bookings
		WHERE provider_id = $1
		  AND status = 'completed'
		  AND completed_at >= $2
		  AND completed_at < $3
	`
	if err := r.db.QueryRow(ctx, query, providerID, from, to).Scan(&totals.CompletedCount, &totals.GrossRevenue); err != nil {
		return nil, err
	}
	return &totals, nil
}
