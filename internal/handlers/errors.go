package handlers

import (
	"errors"
	"net/http"

	"pickup-service/internal/dto"
	"pickup-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func conflictCode(err error) (string, bool) {
	switch {
	case errors.Is(err, service.ErrWindowFull):
		return "window_full", true
	case errors.Is(err, service.ErrWindowNotActive):
		return "window_not_active", true
	case errors.Is(err, service.ErrReservationExpired):
		return "reservation_expired", true
	case errors.Is(err, service.ErrNotHeld):
		return "reservation_not_held", true
	case errors.Is(err, service.ErrNotActive):
		return "reservation_not_active", true
	case errors.Is(err, service.ErrExtensionLimit):
		return "extension_limit_reached", true
	case errors.Is(err, service.ErrQuantityExceedsReserved):
		return "quantity_exceeds_reserved", true
	case errors.Is(err, service.ErrInsufficientStock):
		return "insufficient_stock", true
	}
	return "", false
}

func isValidationErr(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidDuration) ||
		errors.Is(err, service.ErrInvalidSlot) ||
		errors.Is(err, service.ErrUnknownSKU)
}

// respondServiceError маппит сентинелы сервиса в HTTP-статусы.
// state — авторитетное состояние ресурса, вкладывается в конфликтный ответ,
// чтобы клиент перечитал его вместо слепого ретрая.
func respondServiceError(c *gin.Context, log *zap.Logger, err error, state any) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("unauthorized"))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.NewForbiddenError("forbidden"))
	case errors.Is(err, service.ErrReservationNotFound):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError("reservation not found"))
	case errors.Is(err, service.ErrWindowNotFound):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError("pickup window not found"))
	case isValidationErr(err):
		c.JSON(http.StatusBadRequest, dto.NewValidationError(err.Error()))
	default:
		if code, ok := conflictCode(err); ok {
			c.JSON(http.StatusConflict, dto.NewConflictError(code, err.Error(), state))
			return
		}
		log.Error("internal service error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
	}
}
