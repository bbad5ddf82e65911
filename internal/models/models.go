package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы резерва — значения совпадают с wire-форматом клиента
type ReservationStatus string

const (
	ReservationStatusHeld          ReservationStatus = "held"
	ReservationStatusScheduled     ReservationStatus = "scheduled"
	ReservationStatusConfirmed     ReservationStatus = "confirmed"
	ReservationStatusPartialPickup ReservationStatus = "partial_pickup"
	ReservationStatusCompleted     ReservationStatus = "completed"
	ReservationStatusCancelled     ReservationStatus = "cancelled"
	ReservationStatusExpired       ReservationStatus = "expired"
)

// IsTerminal: из терминального статуса переходов нет
func (s ReservationStatus) IsTerminal() bool {
	switch s {
	case ReservationStatusCompleted, ReservationStatusCancelled, ReservationStatusExpired:
		return true
	}
	return false
}

// CanTransitionTo проверяет допустимость перехода по машине состояний.
// Все мутации статуса идут через ReservationService, здесь только правило.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	switch s {
	case ReservationStatusHeld:
		return next == ReservationStatusScheduled || next == ReservationStatusCancelled || next == ReservationStatusExpired
	case ReservationStatusScheduled:
		return next == ReservationStatusConfirmed || next == ReservationStatusPartialPickup ||
			next == ReservationStatusCompleted || next == ReservationStatusCancelled || next == ReservationStatusExpired
	case ReservationStatusConfirmed:
		return next == ReservationStatusPartialPickup || next == ReservationStatusCompleted ||
			next == ReservationStatusCancelled || next == ReservationStatusExpired
	case ReservationStatusPartialPickup:
		return next == ReservationStatusCompleted || next == ReservationStatusCancelled
	}
	return false
}

type Reservation struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Reference  string    `gorm:"type:text;not null;uniqueIndex"`
	CustomerID uuid.UUID `gorm:"type:uuid;not null;index"`

	Status        ReservationStatus `gorm:"type:text;not null;default:'held';index"`
	HoldExpiresAt time.Time         `gorm:"not null;index"`

	PickupWindowID  *uuid.UUID `gorm:"type:uuid;index"`
	PickupCode      *string    `gorm:"type:text"`
	CancelReason    *string    `gorm:"type:text"`
	RefundRequested bool       `gorm:"not null;default:false"`

	// Оптимистичная блокировка: каждая мутация статуса/срока бампает версию
	Version int64 `gorm:"not null;default:1"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Items      []ReservationItem `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE"`
	Extensions []ExtensionRecord `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE"`
	Pickups    []PickupRecord    `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE"`
	Audit      []AuditEntry      `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE"`
}

func (Reservation) TableName() string { return "reservations" }

type ReservationItem struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ReservationID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_reservation_items_sku"`
	SKU           string    `gorm:"type:text;not null;uniqueIndex:ux_reservation_items_sku"`
	LocationID    string    `gorm:"type:text;not null;index"`
	Quantity      int32     `gorm:"not null"` // CHECK quantity > 0 в миграции
	UnitPriceCents *int64   `gorm:""`

	// Накопленное количество, выданное покупателю; никогда не превышает Quantity
	PickedUpQty int32 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (ReservationItem) TableName() string { return "reservation_items" }

// ExtensionRecord — append-only, максимум одна запись на резерв
type ExtensionRecord struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ReservationID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	ExtendedAt       time.Time `gorm:"not null"`
	ExtensionMinutes int32     `gorm:"not null"`
	NewExpiry        time.Time `gorm:"not null"`
	Reason           *string   `gorm:"type:text"`
}

func (ExtensionRecord) TableName() string { return "reservation_extensions" }

// PickupRecord — одна строка на SKU за каждое событие выдачи
type PickupRecord struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ReservationID  uuid.UUID `gorm:"type:uuid;not null;index"`
	SKU            string    `gorm:"type:text;not null"`
	RequestedQty   int32     `gorm:"not null"`
	PickedUpQty    int32     `gorm:"not null"`
	ShortageReason *string   `gorm:"type:text"`
	Notes          *string   `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"not null;default:now();index"`
}

func (PickupRecord) TableName() string { return "reservation_pickups" }

type AuditEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ReservationID uuid.UUID `gorm:"type:uuid;not null;index"`
	Action        string    `gorm:"type:text;not null"`
	Details       string    `gorm:"type:text"`
	Actor         string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"not null;default:now();index"`
}

func (AuditEntry) TableName() string { return "reservation_audit" }

type WindowStatus string

const (
	WindowStatusActive   WindowStatus = "active"
	WindowStatusInactive WindowStatus = "inactive"
	WindowStatusFull     WindowStatus = "full"
)

type PickupWindow struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	LocationID string    `gorm:"type:text;not null;index:ix_windows_location_date"`
	Date       string    `gorm:"type:date;not null;index:ix_windows_location_date"` // YYYY-MM-DD
	StartTime  string    `gorm:"type:text;not null"`                               // HH:MM
	EndTime    string    `gorm:"type:text;not null"`

	Capacity int32        `gorm:"not null"` // CHECK capacity > 0 в миграции
	Reserved int32        `gorm:"not null;default:0"`
	Status   WindowStatus `gorm:"type:text;not null;default:'active';index"`
	Notes    *string      `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (PickupWindow) TableName() string { return "pickup_windows" }

// StockLevel — складской остаток по (sku, location).
// available/reserved мутируются только условными UPDATE в StockRepo.
type StockLevel struct {
	SKU        string `gorm:"type:text;primaryKey"`
	LocationID string `gorm:"type:text;primaryKey"`
	Available  int32  `gorm:"not null;default:0"`
	Reserved   int32  `gorm:"not null;default:0"`

	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (StockLevel) TableName() string { return "stock_levels" }
