package middleware

import (
	"context"
	"net/http"

	"pickup-service/internal/dto"
	"pickup-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Gin context keys for caller identity
const (
	CtxUserID   = "user_id"
	CtxUserRole = "user_role"
)

// IdentityRequired читает identity, проставленную шлюзом после терминации
// токена: X-User-Id / X-User-Role. Аутентификация — внешний коллаборатор.
func IdentityRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-Id")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("missing X-User-Id header"))
			return
		}
		uid, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid X-User-Id header"))
			return
		}

		role := service.Role(c.GetHeader("X-User-Role"))
		if role == "" {
			role = service.RoleCustomer
		}

		c.Set(CtxUserID, uid)
		c.Set(CtxUserRole, role)
		c.Next()
	}
}

// ServiceContext собирает context для вызова сервисного слоя
func ServiceContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if v, ok := c.Get(CtxUserID); ok {
		if uid, ok := v.(uuid.UUID); ok {
			ctx = service.WithUserID(ctx, uid)
		}
	}
	if v, ok := c.Get(CtxUserRole); ok {
		if role, ok := v.(service.Role); ok {
			ctx = service.WithRole(ctx, role)
		}
	}
	return ctx
}
