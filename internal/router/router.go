package router

import (
	"pickup-service/internal/handlers"
	"pickup-service/internal/middleware"
	"pickup-service/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func Router(resSvc service.ReservationService, winSvc service.WindowService, log *zap.Logger) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-User-Id", "X-User-Role"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	resHandler := handlers.NewReservationHandler(resSvc, log)
	winHandler := handlers.NewWindowHandler(winSvc, log)

	api := r.Group("/api/v1")
	api.Use(middleware.IdentityRequired())
	{
		reservations := api.Group("/reservations")
		{
			reservations.POST("", resHandler.Create)
			reservations.GET("", resHandler.List)
			reservations.GET("/:id", resHandler.Get)
			reservations.POST("/:id/schedule", resHandler.Schedule)
			reservations.POST("/:id/extend", resHandler.Extend)
			reservations.POST("/:id/pickup", resHandler.Pickup)
			reservations.POST("/:id/confirm", resHandler.Confirm)
			reservations.POST("/:id/cancel", resHandler.Cancel)
		}

		windows := api.Group("/pickup-windows")
		{
			windows.GET("", winHandler.List)
			windows.POST("", winHandler.Create)
			windows.PATCH("/:id/status", winHandler.SetStatus)
		}

		api.POST("/stock", winHandler.UpsertStock)
	}

	return r
}
