package migrate

import (
	"context"

	"pickup-service/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions       bool // pgcrypto
	CreateChecks           bool // CHECK-constraint'ы на количества и ёмкость
	CreateIndexes          bool // частичные/уникальные индексы
	CreateUpdatedAtTrigger bool // триггеры updated_at
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateUpdatedAtTrigger: true,
	}
}

func MigrateReservationDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("Начало миграции базы резервов")

	if opt.CreateExtensions {
		if err := db.WithContext(ctx).Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
			log.Error("pgcrypto error", zap.Error(err))
			return err
		}
	}

	log.Info("Создание таблиц: reservations, reservation_items, pickup_windows, stock_levels")
	if err := db.WithContext(ctx).AutoMigrate(
		&models.Reservation{},
		&models.ReservationItem{},
		&models.ExtensionRecord{},
		&models.PickupRecord{},
		&models.AuditEntry{},
		&models.PickupWindow{},
		&models.StockLevel{},
	); err != nil {
		log.Error("AutoMigrate error", zap.Error(err))
		return err
	}

	if opt.CreateChecks {
		if err := db.WithContext(ctx).Exec(`
ALTER TABLE reservation_items DROP CONSTRAINT IF EXISTS chk_reservation_items_qty;
ALTER TABLE reservation_items ADD CONSTRAINT chk_reservation_items_qty
  CHECK (quantity > 0 AND picked_up_qty >= 0 AND picked_up_qty <= quantity);

ALTER TABLE pickup_windows DROP CONSTRAINT IF EXISTS chk_pickup_windows_capacity;
ALTER TABLE pickup_windows ADD CONSTRAINT chk_pickup_windows_capacity
  CHECK (capacity > 0 AND reserved >= 0 AND reserved <= capacity);

ALTER TABLE stock_levels DROP CONSTRAINT IF EXISTS chk_stock_levels_counts;
ALTER TABLE stock_levels ADD CONSTRAINT chk_stock_levels_counts
  CHECK (available >= 0 AND reserved >= 0);
`).Error; err != nil {
			log.Error("checks error", zap.Error(err))
			return err
		}
	}

	if opt.CreateIndexes {
		// pickup_code уникален среди живых резервов; NULL не участвует
		if err := db.WithContext(ctx).Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS ux_reservations_pickup_code
  ON reservations (pickup_code) WHERE pickup_code IS NOT NULL;
`).Error; err != nil {
			log.Error("indexes error", zap.Error(err))
			return err
		}
	}

	if opt.CreateUpdatedAtTrigger {
		if err := db.WithContext(ctx).Exec(`
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_reservations_updated ON reservations;
CREATE TRIGGER trg_reservations_updated BEFORE UPDATE ON reservations
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_pickup_windows_updated ON pickup_windows;
CREATE TRIGGER trg_pickup_windows_updated BEFORE UPDATE ON pickup_windows
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_stock_levels_updated ON stock_levels;
CREATE TRIGGER trg_stock_levels_updated BEFORE UPDATE ON stock_levels
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`).Error; err != nil {
			log.Error("triggers error", zap.Error(err))
			return err
		}
	}

	log.Info("Миграция базы резервов завершена")
	return nil
}
