package service

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrReservationNotFound = errors.New("reservation not found")
	ErrWindowNotFound      = errors.New("pickup window not found")

	ErrEmptyItems      = errors.New("empty items")
	ErrInvalidQuantity = errors.New("quantity must be > 0")
	ErrInvalidDuration = errors.New("duration out of allowed range")
	ErrInvalidSlot     = errors.New("invalid time slot")
	ErrUnknownSKU      = errors.New("sku is not part of the reservation")

	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrWindowFull              = errors.New("pickup window is full")
	ErrWindowNotActive         = errors.New("pickup window is not active")
	ErrReservationExpired      = errors.New("reservation expired")
	ErrNotHeld                 = errors.New("reservation is not in held status")
	ErrNotActive               = errors.New("reservation is not active")
	ErrExtensionLimit          = errors.New("extension limit reached")
	ErrQuantityExceedsReserved = errors.New("quantity exceeds reserved amount")

	// внутренний: проигранная CAS-гонка, движок ретраит один раз
	ErrVersionConflict = errors.New("reservation version conflict")

	ErrCodeGeneration = errors.New("failed to generate unique code")
)
