package repository

import "gorm.io/gorm"

type Repository struct {
	DB           *gorm.DB
	Reservations ReservationRepo
	Windows      WindowRepo
	Stock        StockRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:           db,
		Reservations: NewReservationRepo(db),
		Windows:      NewWindowRepo(db),
		Stock:        NewStockRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

// Глобальная транзакция на весь набор репо
func (r *Repository) WithTx(fn func(tx *Repository) error) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}
