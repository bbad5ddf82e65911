package repository

import (
	"context"
	"errors"

	"pickup-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WindowRepo interface {
	BulkCreate(ctx context.Context, windows []models.PickupWindow) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PickupWindow, error)
	ListByLocationDate(ctx context.Context, locationID, date string) ([]models.PickupWindow, error)

	// Единственные операции, которым разрешено трогать reserved.
	// TryReserveSlot: reserved += 1, если окно active и есть ёмкость;
	// при заполнении статус сам становится 'full'.
	TryReserveSlot(ctx context.Context, id uuid.UUID) (bool, error)
	// ReleaseSlot: reserved -= 1 (если было > 0); 'full' откатывается в 'active'.
	ReleaseSlot(ctx context.Context, id uuid.UUID) (bool, error)

	// Переключение active/inactive мерчантом; 'full' руками не выставить
	SetStatus(ctx context.Context, id uuid.UUID, status models.WindowStatus) (bool, error)
}

type windowRepo struct{ db *gorm.DB }

func NewWindowRepo(db *gorm.DB) WindowRepo { return &windowRepo{db: db} }

func (r *windowRepo) BulkCreate(ctx context.Context, windows []models.PickupWindow) error {
	if len(windows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&windows).Error
}

func (r *windowRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PickupWindow, error) {
	var w models.PickupWindow
	err := r.db.WithContext(ctx).First(&w, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &w, err
}

func (r *windowRepo) ListByLocationDate(ctx context.Context, locationID, date string) ([]models.PickupWindow, error) {
	var list []models.PickupWindow
	err := r.db.WithContext(ctx).
		Where("location_id = ? AND date = ?", locationID, date).
		Order("start_time ASC").
		Find(&list).Error
	return list, err
}

func (r *windowRepo) TryReserveSlot(ctx context.Context, id uuid.UUID) (bool, error) {
	// атомарно: инкремент с проверкой ёмкости, fail closed
	tx := r.db.WithContext(ctx).Exec(`
UPDATE pickup_windows
SET reserved = reserved + 1,
    status = CASE WHEN reserved + 1 >= capacity THEN 'full' ELSE status END,
    updated_at = now()
WHERE id = @id
  AND status = 'active'
  AND reserved < capacity
`, map[string]any{"id": id})
	return tx.RowsAffected > 0, tx.Error
}

func (r *windowRepo) ReleaseSlot(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE pickup_windows
SET reserved = reserved - 1,
    status = CASE WHEN status = 'full' THEN 'active' ELSE status END,
    updated_at = now()
WHERE id = @id
  AND reserved > 0
`, map[string]any{"id": id})
	return tx.RowsAffected > 0, tx.Error
}

func (r *windowRepo) SetStatus(ctx context.Context, id uuid.UUID, status models.WindowStatus) (bool, error) {
	if status != models.WindowStatusActive && status != models.WindowStatusInactive {
		return false, nil
	}
	// заполненное окно нельзя перевести в active, пока reserved == capacity
	tx := r.db.WithContext(ctx).Exec(`
UPDATE pickup_windows
SET status = @status,
    updated_at = now()
WHERE id = @id
  AND NOT (@status = 'active' AND reserved >= capacity)
`, map[string]any{"id": id, "status": status})
	return tx.RowsAffected > 0, tx.Error
}
