package repository_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pickup-service/internal/migrate"
	"pickup-service/internal/models"
	"pickup-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Интеграционные тесты требуют живой Postgres:
//
//	TEST_DB_DSN="host=localhost user=postgres password=postgres dbname=pickup_test sslmode=disable" go test ./test/...
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is not set, skipping integration tests")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	if err := migrate.MigrateReservationDB(context.Background(), db, zap.NewNop(), migrate.DefaultMigrateOptions()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, table := range []string{
		"reservation_audit", "reservation_pickups", "reservation_extensions",
		"reservation_items", "reservations", "pickup_windows", "stock_levels",
	} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("cleanup %s: %v", table, err)
		}
	}

	return db
}

func TestReservationRepo_CreateAndGet(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewReservationRepo(db)
	ctx := context.Background()

	res := &models.Reservation{
		Reference:     "PU-TEST0001",
		CustomerID:    uuid.New(),
		Status:        models.ReservationStatusHeld,
		HoldExpiresAt: time.Now().Add(30 * time.Minute),
		Items: []models.ReservationItem{
			{SKU: "SKU-1", LocationID: "store-1", Quantity: 2},
			{SKU: "SKU-2", LocationID: "store-1", Quantity: 1},
		},
	}

	if err := repo.Create(ctx, res); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.ID == uuid.Nil {
		t.Fatal("Expected generated ID")
	}

	got, err := repo.GetByID(ctx, res.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Reference != "PU-TEST0001" || len(got.Items) != 2 {
		t.Fatalf("GetByID mismatch: %+v", got)
	}
	if got.Version != 1 {
		t.Fatalf("Expected initial version 1, got %d", got.Version)
	}

	// чужой customer ничего не видит
	other, err := repo.GetByIDForCustomer(ctx, res.ID, uuid.New())
	if err != nil {
		t.Fatalf("GetByIDForCustomer: %v", err)
	}
	if other != nil {
		t.Fatal("Expected nil for foreign customer")
	}

	exists, err := repo.ReferenceExists(ctx, "PU-TEST0001")
	if err != nil || !exists {
		t.Fatalf("ReferenceExists: %v / %v", exists, err)
	}
}

func TestReservationRepo_UpdateVersionedCAS(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewReservationRepo(db)
	ctx := context.Background()

	res := &models.Reservation{
		Reference:     "PU-TEST0002",
		CustomerID:    uuid.New(),
		Status:        models.ReservationStatusHeld,
		HoldExpiresAt: time.Now().Add(30 * time.Minute),
		Items:         []models.ReservationItem{{SKU: "SKU-1", LocationID: "store-1", Quantity: 1}},
	}
	if err := repo.Create(ctx, res); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ok, err := repo.UpdateVersioned(ctx, res.ID, 1, map[string]any{
		"status": models.ReservationStatusScheduled,
	})
	if err != nil || !ok {
		t.Fatalf("UpdateVersioned against current version: ok=%v err=%v", ok, err)
	}

	// устаревшая версия проигрывает
	ok, err = repo.UpdateVersioned(ctx, res.ID, 1, map[string]any{
		"status": models.ReservationStatusCancelled,
	})
	if err != nil {
		t.Fatalf("UpdateVersioned stale: %v", err)
	}
	if ok {
		t.Fatal("Stale version must not win the CAS")
	}

	got, _ := repo.GetByID(ctx, res.ID)
	if got.Status != models.ReservationStatusScheduled {
		t.Fatalf("Expected scheduled, got %s", got.Status)
	}
	if got.Version != 2 {
		t.Fatalf("Expected version bump to 2, got %d", got.Version)
	}
}

func TestReservationRepo_AddPickedUpQtyBound(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewReservationRepo(db)
	ctx := context.Background()

	res := &models.Reservation{
		Reference:     "PU-TEST0003",
		CustomerID:    uuid.New(),
		Status:        models.ReservationStatusScheduled,
		HoldExpiresAt: time.Now().Add(30 * time.Minute),
		Items:         []models.ReservationItem{{SKU: "SKU-1", LocationID: "store-1", Quantity: 2}},
	}
	if err := repo.Create(ctx, res); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ok, err := repo.AddPickedUpQty(ctx, res.ID, "SKU-1", 2)
	if err != nil || !ok {
		t.Fatalf("AddPickedUpQty within bound: ok=%v err=%v", ok, err)
	}

	// превышение зарезервированного отклоняется на уровне SQL
	ok, err = repo.AddPickedUpQty(ctx, res.ID, "SKU-1", 1)
	if err != nil {
		t.Fatalf("AddPickedUpQty over bound: %v", err)
	}
	if ok {
		t.Fatal("Expected over-pickup to be rejected")
	}
}

func TestReservationRepo_ExtensionUniquePerReservation(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewReservationRepo(db)
	ctx := context.Background()

	res := &models.Reservation{
		Reference:     "PU-TEST0004",
		CustomerID:    uuid.New(),
		Status:        models.ReservationStatusHeld,
		HoldExpiresAt: time.Now().Add(30 * time.Minute),
		Items:         []models.ReservationItem{{SKU: "SKU-1", LocationID: "store-1", Quantity: 1}},
	}
	if err := repo.Create(ctx, res); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec := &models.ExtensionRecord{
		ReservationID:    res.ID,
		ExtendedAt:       time.Now(),
		ExtensionMinutes: 15,
		NewExpiry:        res.HoldExpiresAt.Add(15 * time.Minute),
	}
	if err := repo.AppendExtension(ctx, rec); err != nil {
		t.Fatalf("AppendExtension: %v", err)
	}

	second := &models.ExtensionRecord{
		ReservationID:    res.ID,
		ExtendedAt:       time.Now(),
		ExtensionMinutes: 15,
		NewExpiry:        res.HoldExpiresAt.Add(30 * time.Minute),
	}
	if err := repo.AppendExtension(ctx, second); err == nil {
		t.Fatal("Expected unique index violation on second extension")
	}
}

func TestReservationRepo_ListExpiredIDs(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewReservationRepo(db)
	ctx := context.Background()

	mk := func(ref string, status models.ReservationStatus, expires time.Time) uuid.UUID {
		res := &models.Reservation{
			Reference:     ref,
			CustomerID:    uuid.New(),
			Status:        status,
			HoldExpiresAt: expires,
			Items:         []models.ReservationItem{{SKU: "SKU-1", LocationID: "store-1", Quantity: 1}},
		}
		if err := repo.Create(ctx, res); err != nil {
			t.Fatalf("Create %s: %v", ref, err)
		}
		return res.ID
	}

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	overdueHeld := mk("PU-EXP00001", models.ReservationStatusHeld, past)
	overdueScheduled := mk("PU-EXP00002", models.ReservationStatusScheduled, past)
	mk("PU-EXP00003", models.ReservationStatusHeld, future)          // ещё активен
	mk("PU-EXP00004", models.ReservationStatusCompleted, past)       // терминальный не истекает
	mk("PU-EXP00005", models.ReservationStatusPartialPickup, past)   // частичная выдача не истекает

	ids, err := repo.ListExpiredIDs(ctx, time.Now(), 10)
	if err != nil {
		t.Fatalf("ListExpiredIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Expected 2 overdue ids, got %d", len(ids))
	}
	found := map[uuid.UUID]bool{}
	for _, id := range ids {
		found[id] = true
	}
	if !found[overdueHeld] || !found[overdueScheduled] {
		t.Fatalf("Expected held+scheduled overdue, got %v", ids)
	}
}

func TestWindowRepo_CapacityLedger(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewWindowRepo(db)
	ctx := context.Background()

	windows := []models.PickupWindow{{
		LocationID: "store-1",
		Date:       "2026-03-11",
		StartTime:  "10:00",
		EndTime:    "11:00",
		Capacity:   2,
		Status:     models.WindowStatusActive,
	}}
	if err := repo.BulkCreate(ctx, windows); err != nil {
		t.Fatalf("BulkCreate: %v", err)
	}
	id := windows[0].ID

	// две брони входят, третья нет
	for i := 0; i < 2; i++ {
		ok, err := repo.TryReserveSlot(ctx, id)
		if err != nil || !ok {
			t.Fatalf("TryReserveSlot #%d: ok=%v err=%v", i+1, ok, err)
		}
	}

	win, _ := repo.GetByID(ctx, id)
	if win.Reserved != 2 || win.Status != models.WindowStatusFull {
		t.Fatalf("Expected full window with reserved=2, got %+v", win)
	}

	ok, err := repo.TryReserveSlot(ctx, id)
	if err != nil {
		t.Fatalf("TryReserveSlot over capacity: %v", err)
	}
	if ok {
		t.Fatal("Expected reservation into full window to fail")
	}

	// освобождение возвращает окно в active
	ok, err = repo.ReleaseSlot(ctx, id)
	if err != nil || !ok {
		t.Fatalf("ReleaseSlot: ok=%v err=%v", ok, err)
	}
	win, _ = repo.GetByID(ctx, id)
	if win.Reserved != 1 || win.Status != models.WindowStatusActive {
		t.Fatalf("Expected active window with reserved=1, got %+v", win)
	}
}

func TestWindowRepo_ConcurrentReserveNeverOversells(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewWindowRepo(db)
	ctx := context.Background()

	windows := []models.PickupWindow{{
		LocationID: "store-1",
		Date:       "2026-03-12",
		StartTime:  "10:00",
		EndTime:    "11:00",
		Capacity:   5,
		Status:     models.WindowStatusActive,
	}}
	if err := repo.BulkCreate(ctx, windows); err != nil {
		t.Fatalf("BulkCreate: %v", err)
	}
	id := windows[0].ID

	const workers = 20
	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.TryReserveSlot(ctx, id)
			if err != nil {
				t.Errorf("TryReserveSlot: %v", err)
				return
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 5 {
		t.Fatalf("Expected exactly 5 successful reservations, got %d", wins.Load())
	}
	win, _ := repo.GetByID(ctx, id)
	if win.Reserved != 5 || win.Status != models.WindowStatusFull {
		t.Fatalf("Expected reserved=5 full, got %+v", win)
	}
}

func TestWindowRepo_SetStatus(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewWindowRepo(db)
	ctx := context.Background()

	windows := []models.PickupWindow{{
		LocationID: "store-1",
		Date:       "2026-03-11",
		StartTime:  "12:00",
		EndTime:    "13:00",
		Capacity:   1,
		Status:     models.WindowStatusActive,
	}}
	if err := repo.BulkCreate(ctx, windows); err != nil {
		t.Fatalf("BulkCreate: %v", err)
	}
	id := windows[0].ID

	if _, err := repo.SetStatus(ctx, id, models.WindowStatusInactive); err != nil {
		t.Fatalf("SetStatus inactive: %v", err)
	}
	win, _ := repo.GetByID(ctx, id)
	if win.Status != models.WindowStatusInactive {
		t.Fatalf("Expected inactive, got %s", win.Status)
	}

	// заполняем окно и пытаемся насильно включить
	if _, err := repo.SetStatus(ctx, id, models.WindowStatusActive); err != nil {
		t.Fatalf("SetStatus active: %v", err)
	}
	if ok, _ := repo.TryReserveSlot(ctx, id); !ok {
		t.Fatal("TryReserveSlot into capacity-1 window failed")
	}
	win, _ = repo.GetByID(ctx, id)
	if win.Status != models.WindowStatusFull {
		t.Fatalf("Expected full after last slot, got %s", win.Status)
	}

	ok, err := repo.SetStatus(ctx, id, models.WindowStatusActive)
	if err != nil {
		t.Fatalf("SetStatus on full window: %v", err)
	}
	if ok {
		t.Fatal("Full window must not be forced back to active while at capacity")
	}
}

func TestStockRepo_ReserveReleaseConsume(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewStockRepo(db)
	ctx := context.Background()

	if err := repo.SetAvailable(ctx, "SKU-1", "store-1", 5); err != nil {
		t.Fatalf("SetAvailable: %v", err)
	}

	ok, err := repo.TryReserve(ctx, "SKU-1", "store-1", 3)
	if err != nil || !ok {
		t.Fatalf("TryReserve: ok=%v err=%v", ok, err)
	}

	lvl, err := repo.Get(ctx, "SKU-1", "store-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if lvl.Available != 2 || lvl.Reserved != 3 {
		t.Fatalf("Expected 2/3, got %d/%d", lvl.Available, lvl.Reserved)
	}

	// нехватка остатка ничего не меняет
	ok, err = repo.TryReserve(ctx, "SKU-1", "store-1", 10)
	if err != nil {
		t.Fatalf("TryReserve insufficient: %v", err)
	}
	if ok {
		t.Fatal("Expected insufficient stock to be rejected")
	}

	// выдача списывает только reserved
	if ok, err := repo.Consume(ctx, "SKU-1", "store-1", 2); err != nil || !ok {
		t.Fatalf("Consume: ok=%v err=%v", ok, err)
	}
	// возврат оставшегося в пул
	if ok, err := repo.Release(ctx, "SKU-1", "store-1", 1); err != nil || !ok {
		t.Fatalf("Release: ok=%v err=%v", ok, err)
	}

	lvl, _ = repo.Get(ctx, "SKU-1", "store-1")
	if lvl.Available != 3 || lvl.Reserved != 0 {
		t.Fatalf("Expected 3/0 after consume+release, got %d/%d", lvl.Available, lvl.Reserved)
	}
}
