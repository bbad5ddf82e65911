package repository

import (
	"context"
	"errors"
	"time"

	"pickup-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReservationListFilter struct {
	CustomerID *uuid.UUID
	Status     *models.ReservationStatus
	Limit      int
	Offset     int
}

type ReservationRepo interface {
	Create(ctx context.Context, res *models.Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	GetByIDForCustomer(ctx context.Context, id, customerID uuid.UUID) (*models.Reservation, error)
	List(ctx context.Context, f ReservationListFilter) ([]*models.Reservation, int64, error)

	// UpdateVersioned — единственный путь мутации резерва: CAS по version.
	// false без ошибки = кто-то успел раньше (или резерв не найден).
	UpdateVersioned(ctx context.Context, id uuid.UUID, version int64, fields map[string]any) (bool, error)

	// AddPickedUpQty атомарно накапливает выдачу, не позволяя превысить quantity
	AddPickedUpQty(ctx context.Context, reservationID uuid.UUID, sku string, qty int32) (bool, error)

	AppendExtension(ctx context.Context, rec *models.ExtensionRecord) error
	AppendPickups(ctx context.Context, recs []models.PickupRecord) error
	AppendAudit(ctx context.Context, entry *models.AuditEntry) error

	// Кандидаты для свипера: активные резервы с истёкшим сроком
	ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)

	ReferenceExists(ctx context.Context, ref string) (bool, error)
	PickupCodeExists(ctx context.Context, code string) (bool, error)

	WithTx(ctx context.Context, fn func(res ReservationRepo, win WindowRepo, stock StockRepo) error) error
}

type reservationRepo struct{ db *gorm.DB }

func NewReservationRepo(db *gorm.DB) ReservationRepo { return &reservationRepo{db: db} }

func (r *reservationRepo) Create(ctx context.Context, res *models.Reservation) error {
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *reservationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.WithContext(ctx).
		Preload("Items").Preload("Extensions").Preload("Pickups").
		First(&res, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &res, err
}

func (r *reservationRepo) GetByIDForCustomer(ctx context.Context, id, customerID uuid.UUID) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.WithContext(ctx).
		Preload("Items").Preload("Extensions").Preload("Pickups").
		First(&res, "id = ? AND customer_id = ?", id, customerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &res, err
}

func (r *reservationRepo) List(ctx context.Context, f ReservationListFilter) ([]*models.Reservation, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Reservation{})

	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var list []*models.Reservation
	err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Preload("Items").Find(&list).Error
	return list, total, err
}

func (r *reservationRepo) UpdateVersioned(ctx context.Context, id uuid.UUID, version int64, fields map[string]any) (bool, error) {
	upd := map[string]any{"version": gorm.Expr("version + 1"), "updated_at": gorm.Expr("now()")}
	for k, v := range fields {
		upd[k] = v
	}
	tx := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND version = ?", id, version).
		Updates(upd)
	return tx.RowsAffected > 0, tx.Error
}

func (r *reservationRepo) AddPickedUpQty(ctx context.Context, reservationID uuid.UUID, sku string, qty int32) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE reservation_items
SET picked_up_qty = picked_up_qty + @q
WHERE reservation_id = @rid
  AND sku = @sku
  AND picked_up_qty + @q <= quantity
`, map[string]any{"rid": reservationID, "sku": sku, "q": qty})
	return tx.RowsAffected > 0, tx.Error
}

func (r *reservationRepo) AppendExtension(ctx context.Context, rec *models.ExtensionRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *reservationRepo) AppendPickups(ctx context.Context, recs []models.PickupRecord) error {
	if len(recs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&recs).Error
}

func (r *reservationRepo) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *reservationRepo) ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("status IN ? AND hold_expires_at <= ?",
			[]models.ReservationStatus{
				models.ReservationStatusHeld,
				models.ReservationStatusScheduled,
				models.ReservationStatusConfirmed,
			}, now).
		Order("hold_expires_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *reservationRepo) WithTx(ctx context.Context, fn func(res ReservationRepo, win WindowRepo, stock StockRepo) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&reservationRepo{db: tx}, &windowRepo{db: tx}, &stockRepo{db: tx})
	})
}

func (r *reservationRepo) ReferenceExists(ctx context.Context, ref string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&models.Reservation{}).Where("reference = ?", ref).Count(&cnt).Error
	return cnt > 0, err
}

func (r *reservationRepo) PickupCodeExists(ctx context.Context, code string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&models.Reservation{}).Where("pickup_code = ?", code).Count(&cnt).Error
	return cnt > 0, err
}
