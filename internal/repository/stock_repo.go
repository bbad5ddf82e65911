package repository

import (
	"context"
	"errors"

	"pickup-service/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockRepo interface {
	Get(ctx context.Context, sku, locationID string) (*models.StockLevel, error)
	SetAvailable(ctx context.Context, sku, locationID string, available int32) error
	AdjustAvailable(ctx context.Context, sku, locationID string, delta int32) (bool, error)

	// Резервирование остатка (атомарно):
	// TryReserve: if available >= qty then available -= qty; reserved += qty
	TryReserve(ctx context.Context, sku, locationID string, qty int32) (bool, error)
	// Release: reserved -= qty; available += qty (возврат в пул)
	Release(ctx context.Context, sku, locationID string, qty int32) (bool, error)
	// Consume: reserved -= qty (выдано покупателю, в пул не возвращается)
	Consume(ctx context.Context, sku, locationID string, qty int32) (bool, error)
}

type stockRepo struct{ db *gorm.DB }

func NewStockRepo(db *gorm.DB) StockRepo { return &stockRepo{db: db} }

func (r *stockRepo) Get(ctx context.Context, sku, locationID string) (*models.StockLevel, error) {
	var s models.StockLevel
	err := r.db.WithContext(ctx).First(&s, "sku = ? AND location_id = ?", sku, locationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &s, err
}

func (r *stockRepo) SetAvailable(ctx context.Context, sku, locationID string, available int32) error {
	rec := models.StockLevel{SKU: sku, LocationID: locationID, Available: available}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sku"}, {Name: "location_id"}},
			DoUpdates: clause.Assignments(map[string]any{"available": available}),
		}).
		Create(&rec).Error
}

func (r *stockRepo) AdjustAvailable(ctx context.Context, sku, locationID string, delta int32) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE stock_levels
SET available = available + @delta,
    updated_at = now()
WHERE sku = @sku AND location_id = @loc
  AND available + @delta >= 0
`, map[string]any{"sku": sku, "loc": locationID, "delta": delta})
	return tx.RowsAffected > 0, tx.Error
}

func (r *stockRepo) TryReserve(ctx context.Context, sku, locationID string, qty int32) (bool, error) {
	// атомарно: available -= qty, reserved += qty, если хватает
	tx := r.db.WithContext(ctx).Exec(`
UPDATE stock_levels
SET available = available - @q,
    reserved  = reserved  + @q,
    updated_at = now()
WHERE sku = @sku AND location_id = @loc
  AND available >= @q
`, map[string]any{"sku": sku, "loc": locationID, "q": qty})
	return tx.RowsAffected > 0, tx.Error
}

func (r *stockRepo) Release(ctx context.Context, sku, locationID string, qty int32) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE stock_levels
SET reserved  = reserved  - @q,
    available = available + @q,
    updated_at = now()
WHERE sku = @sku AND location_id = @loc
  AND reserved >= @q
`, map[string]any{"sku": sku, "loc": locationID, "q": qty})
	return tx.RowsAffected > 0, tx.Error
}

func (r *stockRepo) Consume(ctx context.Context, sku, locationID string, qty int32) (bool, error) {
	// списываем резерв окончательно
	tx := r.db.WithContext(ctx).Exec(`
UPDATE stock_levels
SET reserved  = reserved  - @q,
    updated_at = now()
WHERE sku = @sku AND location_id = @loc
  AND reserved >= @q
`, map[string]any{"sku": sku, "loc": locationID, "q": qty})
	return tx.RowsAffected > 0, tx.Error
}
