package service

import (
	"context"

	"pickup-service/internal/repository"
)

type StockRequest struct {
	SKU        string
	LocationID string
	Quantity   int32
}

// InventoryProvider — порт каталога/склада. Движок резервов рассматривает его
// как двухфазного участника: decrement на создании холда, restore на
// отмене/истечении, consume на фактической выдаче.
type InventoryProvider interface {
	// Reserve — всё или ничего: при нехватке любого остатка ничего не списывается
	Reserve(ctx context.Context, items []StockRequest) error
	Release(ctx context.Context, items []StockRequest) error
	Consume(ctx context.Context, items []StockRequest) error
}

// StockInventory — адаптер поверх собственной таблицы stock_levels.
// В многосервисной конфигурации на его место встаёт клиент внешнего каталога.
type StockInventory struct {
	repo *repository.Repository
}

func NewStockInventory(repo *repository.Repository) *StockInventory {
	return &StockInventory{repo: repo}
}

func (p *StockInventory) Reserve(ctx context.Context, items []StockRequest) error {
	return p.repo.WithTx(func(tx *repository.Repository) error {
		for _, it := range items {
			ok, err := tx.Stock.TryReserve(ctx, it.SKU, it.LocationID, it.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				// откат всей транзакции, ничего не списано
				return ErrInsufficientStock
			}
		}
		return nil
	})
}

func (p *StockInventory) Release(ctx context.Context, items []StockRequest) error {
	return p.repo.WithTx(func(tx *repository.Repository) error {
		for _, it := range items {
			if it.Quantity <= 0 {
				continue
			}
			if _, err := tx.Stock.Release(ctx, it.SKU, it.LocationID, it.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *StockInventory) Consume(ctx context.Context, items []StockRequest) error {
	return p.repo.WithTx(func(tx *repository.Repository) error {
		for _, it := range items {
			if it.Quantity <= 0 {
				continue
			}
			if _, err := tx.Stock.Consume(ctx, it.SKU, it.LocationID, it.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}
