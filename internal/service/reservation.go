package service

import (
	"context"
	"time"

	"pickup-service/internal/models"

	"github.com/google/uuid"
)

type CreateHoldItem struct {
	SKU            string
	LocationID     string
	Quantity       int32
	UnitPriceCents *int64
}

type CreateHoldInput struct {
	Items []CreateHoldItem
	// 0 — берётся длительность по умолчанию из конфигурации
	HoldDurationMinutes int32
}

type ScheduleResult struct {
	PickupWindowID       uuid.UUID
	Date                 string
	StartTime            string
	EndTime              string
	ConfirmationCode     string
	EstimatedWaitMinutes int32
}

type ExtendResult struct {
	NewExpiry           time.Time
	ExtensionsRemaining int32
}

type PickupItemInput struct {
	SKU            string
	RequestedQty   int32
	PickedUpQty    int32
	ShortageReason *string
}

const (
	CompletionHintPartial  = "partial"
	CompletionHintComplete = "complete"
)

type PickupResult struct {
	Status            models.ReservationStatus
	HasRemainingItems bool
	Summary           PickupSummary
}

type CancelInput struct {
	ReasonCode      string
	Notes           *string
	RefundRequested bool
}

type ListFilter struct {
	CustomerID *uuid.UUID
	Status     *models.ReservationStatus
	Limit      int
	Offset     int
}

type PickupSummaryItem struct {
	SKU          string
	ReservedQty  int32
	PickedUpQty  int32
	RemainingQty int32
}

// PickupSummary — производная проекция, никогда не хранится
type PickupSummary struct {
	FullyPickedUp     []PickupSummaryItem
	PartiallyPickedUp []PickupSummaryItem
	RemainingItems    []PickupSummaryItem
}

func BuildPickupSummary(items []models.ReservationItem) PickupSummary {
	var sum PickupSummary
	for _, it := range items {
		entry := PickupSummaryItem{
			SKU:          it.SKU,
			ReservedQty:  it.Quantity,
			PickedUpQty:  it.PickedUpQty,
			RemainingQty: it.Quantity - it.PickedUpQty,
		}
		switch {
		case it.PickedUpQty >= it.Quantity:
			sum.FullyPickedUp = append(sum.FullyPickedUp, entry)
		case it.PickedUpQty > 0:
			sum.PartiallyPickedUp = append(sum.PartiallyPickedUp, entry)
		}
		if entry.RemainingQty > 0 {
			sum.RemainingItems = append(sum.RemainingItems, entry)
		}
	}
	return sum
}

// HasRemaining — остались ли невыданные единицы
func (s PickupSummary) HasRemaining() bool { return len(s.RemainingItems) > 0 }

type StatusProjection struct {
	Reservation      *models.Reservation
	ExpiresInSeconds int64
	Summary          PickupSummary
}

type ReservationService interface {
	CreateHold(ctx context.Context, in CreateHoldInput) (*models.Reservation, error)
	ScheduleWindow(ctx context.Context, reservationID, windowID uuid.UUID) (*ScheduleResult, error)
	ExtendHold(ctx context.Context, reservationID uuid.UUID, minutes int32, reason *string) (*ExtendResult, error)
	ProcessPickup(ctx context.Context, reservationID uuid.UUID, items []PickupItemInput, notes *string, completionHint string) (*PickupResult, error)
	Confirm(ctx context.Context, reservationID uuid.UUID) (*models.Reservation, error)
	Cancel(ctx context.Context, reservationID uuid.UUID, in CancelInput) (*models.Reservation, error)
	GetStatus(ctx context.Context, reservationID uuid.UUID) (*StatusProjection, error)
	ListReservations(ctx context.Context, f ListFilter) ([]models.Reservation, int64, error)

	// ExpireOverdue прогоняется свипером; возвращает число истёкших резервов
	ExpireOverdue(ctx context.Context, limit int) (int, error)
}
