package service

import (
	"context"
	"time"

	"pickup-service/internal/models"

	"github.com/google/uuid"
)

type TimeSlotInput struct {
	StartTime string
	EndTime   string
}

type CreateWindowsInput struct {
	LocationID      string
	Date            string // YYYY-MM-DD
	Slots           []TimeSlotInput
	CapacityPerSlot int32
	Notes           *string
}

// WindowAvailability — проекция ёмкости для клиента
type WindowAvailability struct {
	Windows           []models.PickupWindow
	TotalCapacity     int32
	AvailableCapacity int32
	NextAvailableSlot *models.PickupWindow
}

// WindowCache — кэш проекций доступности (redis); nil допустим, кэш опционален
type WindowCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type WindowService interface {
	CreateWindows(ctx context.Context, in CreateWindowsInput) ([]models.PickupWindow, error)
	ListWindows(ctx context.Context, locationID, date string) (*WindowAvailability, error)
	SetWindowStatus(ctx context.Context, windowID uuid.UUID, status models.WindowStatus) (*models.PickupWindow, error)

	SetStock(ctx context.Context, sku, locationID string, available int32) (*models.StockLevel, error)
	AdjustStock(ctx context.Context, sku, locationID string, delta int32) (*models.StockLevel, error)
}
