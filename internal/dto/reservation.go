package dto

import (
	"time"

	"pickup-service/internal/models"
	"pickup-service/internal/service"

	"github.com/google/uuid"
)

type ReservationItemRequest struct {
	SKU            string `json:"sku" binding:"required"`
	Quantity       int32  `json:"quantity" binding:"required"`
	LocationID     string `json:"location_id" binding:"required"`
	UnitPriceCents *int64 `json:"unit_price_cents,omitempty"`
}

type CreateReservationRequest struct {
	Items               []ReservationItemRequest `json:"items" binding:"required"`
	HoldDurationMinutes int32                    `json:"hold_duration_minutes,omitempty"`
}

type ScheduleRequest struct {
	WindowID uuid.UUID `json:"window_id" binding:"required"`
}

type ScheduleResponse struct {
	PickupWindowID       uuid.UUID    `json:"pickup_window_id"`
	ScheduledSlot        ScheduledSlot `json:"scheduled_slot"`
	ConfirmationCode     string       `json:"confirmation_code"`
	EstimatedWaitMinutes int32        `json:"estimated_wait_time_minutes,omitempty"`
}

type ScheduledSlot struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type ExtendRequest struct {
	Minutes int32   `json:"minutes" binding:"required"`
	Reason  *string `json:"reason,omitempty"`
}

type ExtendResponse struct {
	NewExpiry           time.Time `json:"new_expiry"`
	ExtensionsRemaining int32     `json:"extensions_remaining"`
}

type PickupItemRequest struct {
	SKU            string  `json:"sku" binding:"required"`
	RequestedQty   int32   `json:"requested_qty" binding:"required"`
	PickedUpQty    int32   `json:"picked_up_qty"`
	ShortageReason *string `json:"reason_for_shortage,omitempty"`
}

type PickupRequest struct {
	Items          []PickupItemRequest `json:"items" binding:"required"`
	Notes          *string             `json:"notes,omitempty"`
	CompletionHint string              `json:"completion_hint,omitempty"`
}

type PickupResponse struct {
	PickupStatus      string        `json:"pickup_status"`
	HasRemainingItems bool          `json:"has_remaining_items"`
	PickupSummary     PickupSummary `json:"pickup_summary"`
}

type CancelRequest struct {
	ReasonCode      string  `json:"reason_code" binding:"required"`
	Notes           *string `json:"notes,omitempty"`
	RefundRequested bool    `json:"refund_requested"`
}

type CancelResponse struct {
	Status string `json:"status"`
}

type PickupSummaryItem struct {
	SKU          string `json:"sku"`
	ReservedQty  int32  `json:"reserved_qty"`
	PickedUpQty  int32  `json:"picked_up_qty"`
	RemainingQty int32  `json:"remaining_qty"`
}

type PickupSummary struct {
	FullyPickedUp     []PickupSummaryItem `json:"fully_picked_up"`
	PartiallyPickedUp []PickupSummaryItem `json:"partially_picked_up"`
	RemainingItems    []PickupSummaryItem `json:"remaining_items"`
}

type ReservationItemResponse struct {
	SKU            string `json:"sku"`
	Quantity       int32  `json:"quantity"`
	LocationID     string `json:"location_id"`
	UnitPriceCents *int64 `json:"unit_price_cents,omitempty"`
	PickedUpQty    int32  `json:"picked_up_qty"`
}

type ExtensionResponse struct {
	ExtendedAt       time.Time `json:"extended_at"`
	ExtensionMinutes int32     `json:"extension_minutes"`
	NewExpiry        time.Time `json:"new_expiry"`
	Reason           *string   `json:"reason,omitempty"`
}

type ReservationResponse struct {
	ID               uuid.UUID                 `json:"id"`
	Reference        string                    `json:"reference"`
	Status           string                    `json:"status"`
	Items            []ReservationItemResponse `json:"items"`
	HoldExpiresAt    time.Time                 `json:"hold_expires_at"`
	ExpiresInSeconds int64                     `json:"expires_in_seconds"`
	PickupWindowID   *uuid.UUID                `json:"pickup_window_id,omitempty"`
	PickupCode       *string                   `json:"pickup_code,omitempty"`
	Extensions       []ExtensionResponse       `json:"extension_history"`
	PickupSummary    *PickupSummary            `json:"pickup_summary,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
}

type ReservationListResponse struct {
	Reservations []ReservationResponse `json:"reservations"`
	Total        int64                 `json:"total"`
}

type WindowResponse struct {
	ID         uuid.UUID `json:"id"`
	LocationID string    `json:"location_id"`
	Date       string    `json:"date"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	Capacity   int32     `json:"capacity"`
	Reserved   int32     `json:"reserved"`
	Status     string    `json:"status"`
	Notes      *string   `json:"notes,omitempty"`
}

type WindowListResponse struct {
	Windows           []WindowResponse `json:"windows"`
	TotalCapacity     int32            `json:"total_capacity"`
	AvailableCapacity int32            `json:"available_capacity"`
	NextAvailableSlot *WindowResponse  `json:"next_available_slot,omitempty"`
}

type TimeSlotRequest struct {
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
}

type CreateWindowsRequest struct {
	LocationID      string            `json:"location_id" binding:"required"`
	Date            string            `json:"date" binding:"required"`
	TimeSlots       []TimeSlotRequest `json:"time_slots" binding:"required"`
	CapacityPerSlot int32             `json:"capacity_per_slot" binding:"required"`
	Notes           *string           `json:"notes,omitempty"`
}

type WindowStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type StockRequest struct {
	SKU        string `json:"sku" binding:"required"`
	LocationID string `json:"location_id" binding:"required"`
	Available  *int32 `json:"available,omitempty"`
	Delta      *int32 `json:"delta,omitempty"`
}

type StockResponse struct {
	SKU        string `json:"sku"`
	LocationID string `json:"location_id"`
	Available  int32  `json:"available"`
	Reserved   int32  `json:"reserved"`
}

func FromSummary(s service.PickupSummary) PickupSummary {
	conv := func(items []service.PickupSummaryItem) []PickupSummaryItem {
		out := make([]PickupSummaryItem, 0, len(items))
		for _, it := range items {
			out = append(out, PickupSummaryItem(it))
		}
		return out
	}
	return PickupSummary{
		FullyPickedUp:     conv(s.FullyPickedUp),
		PartiallyPickedUp: conv(s.PartiallyPickedUp),
		RemainingItems:    conv(s.RemainingItems),
	}
}

func FromReservation(res *models.Reservation, expiresIn int64) ReservationResponse {
	out := ReservationResponse{
		ID:               res.ID,
		Reference:        res.Reference,
		Status:           string(res.Status),
		HoldExpiresAt:    res.HoldExpiresAt.UTC(),
		ExpiresInSeconds: expiresIn,
		PickupWindowID:   res.PickupWindowID,
		PickupCode:       res.PickupCode,
		CreatedAt:        res.CreatedAt.UTC(),
	}
	for _, it := range res.Items {
		out.Items = append(out.Items, ReservationItemResponse{
			SKU:            it.SKU,
			Quantity:       it.Quantity,
			LocationID:     it.LocationID,
			UnitPriceCents: it.UnitPriceCents,
			PickedUpQty:    it.PickedUpQty,
		})
	}
	for _, ext := range res.Extensions {
		out.Extensions = append(out.Extensions, ExtensionResponse{
			ExtendedAt:       ext.ExtendedAt.UTC(),
			ExtensionMinutes: ext.ExtensionMinutes,
			NewExpiry:        ext.NewExpiry.UTC(),
			Reason:           ext.Reason,
		})
	}
	if len(res.Pickups) > 0 {
		sum := FromSummary(service.BuildPickupSummary(res.Items))
		out.PickupSummary = &sum
	}
	return out
}

func FromWindow(w *models.PickupWindow) WindowResponse {
	return WindowResponse{
		ID:         w.ID,
		LocationID: w.LocationID,
		Date:       w.Date,
		StartTime:  w.StartTime,
		EndTime:    w.EndTime,
		Capacity:   w.Capacity,
		Reserved:   w.Reserved,
		Status:     string(w.Status),
		Notes:      w.Notes,
	}
}
