/**
 * @description
 * Event payloads published to RabbitMQ when a booking is created or changes
 * status. Downstream consumers (push notifications, provider apps, analytics)
 * subscribe to these; the booking core itself never blocks on them.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingCreatedEvent is published on the "booking.created" routing key.
type BookingCreatedEvent struct {
	BookingID   uuid.UUID       `json:"booking_id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	ServiceID   uuid.UUID       `json:"service_id"`
	Region      Region          `json:"region"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	Timestamp   time.Time       `json:"timestamp"`
}

// BookingStatusChangedEvent is published on "booking.status.<new status>".
type BookingStatusChangedEvent struct {
	BookingID  uuid.UUID     `json:"booking_id"`
	CustomerID uuid.UUID     `json:"customer_id"`
	ProviderID *uuid.UUID    `json:"provider_id,omitempty"`
	OldStatus  BookingStatus `json:"old_status"`
	NewStatus  BookingStatus `json:"new_status"`
	ActorID    uuid.UUID     `json:"actor_id"`
	Reason     *string       `json:"reason,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}
