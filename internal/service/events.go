package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ReservationItemEvent struct {
	SKU        string `json:"sku"`
	LocationID string `json:"location_id"`
	Quantity   int32  `json:"quantity"`
}

type ReservationCreatedEvent struct {
	ReservationID uuid.UUID              `json:"reservation_id"`
	Reference     string                 `json:"reference"`
	CustomerID    uuid.UUID              `json:"customer_id"`
	Items         []ReservationItemEvent `json:"items"`
	HoldExpiresAt time.Time              `json:"hold_expires_at"`
	CreatedAt     time.Time              `json:"created_at"`
}

type ReservationScheduledEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	WindowID      uuid.UUID `json:"window_id"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	PickupCode    string    `json:"pickup_code"`
	ScheduledAt   time.Time `json:"scheduled_at"`
}

type ReservationExtendedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	Minutes       int32     `json:"minutes"`
	NewExpiry     time.Time `json:"new_expiry"`
	ExtendedAt    time.Time `json:"extended_at"`
}

type ReservationPickedUpEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	Completed     bool      `json:"completed"`
	PickedUpAt    time.Time `json:"picked_up_at"`
}

type ReservationConfirmedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

type ReservationCancelledEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	ReasonCode    string    `json:"reason_code,omitempty"`
	CancelledAt   time.Time `json:"cancelled_at"`
}

type ReservationExpiredEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	ExpiredAt     time.Time `json:"expired_at"`
}

// EventBus — шлюз уведомлений; публикация всегда после коммита, best-effort
type EventBus interface {
	PublishReservationCreated(ctx context.Context, e ReservationCreatedEvent) error
	PublishReservationScheduled(ctx context.Context, e ReservationScheduledEvent) error
	PublishReservationExtended(ctx context.Context, e ReservationExtendedEvent) error
	PublishReservationPickedUp(ctx context.Context, e ReservationPickedUpEvent) error
	PublishReservationConfirmed(ctx context.Context, e ReservationConfirmedEvent) error
	PublishReservationCancelled(ctx context.Context, e ReservationCancelledEvent) error
	PublishReservationExpired(ctx context.Context, e ReservationExpiredEvent) error
}
