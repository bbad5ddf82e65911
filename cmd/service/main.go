package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pickup-service/config"
	"pickup-service/internal/cache"
	"pickup-service/internal/database"
	"pickup-service/internal/logger"
	"pickup-service/internal/producer"
	"pickup-service/internal/repository"
	"pickup-service/internal/router"
	"pickup-service/internal/service"
	"pickup-service/internal/sweeper"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	repos := repository.New(db)

	// Кафка опциональна: без брокеров сервис работает, события не публикуются
	var events service.EventBus
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic != "" {
		p := producer.NewReservationProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer p.Close()
		events = p
	} else {
		log.Warn("kafka is not configured, event publishing disabled")
	}

	var winCache service.WindowCache
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Error("redis unavailable, availability cache disabled", zap.Error(err))
		} else {
			defer rc.Close()
			winCache = rc
		}
	}

	stock := service.NewStockInventory(repos)
	resSvc := service.NewReservationService(repos, stock, events, winCache, log, cfg.DefaultHoldMinutes)
	winSvc := service.NewWindowService(repos, winCache, cfg.Redis.TTLSeconds, log)

	sw := sweeper.New(resSvc, cfg.SweepInterval, log)
	sw.Start(context.Background())
	defer sw.Stop()

	r := router.Router(resSvc, winSvc, log)

	srv := &http.Server{
		Addr:    cfg.Port,
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Starting pickup HTTP server", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Shutting down pickup HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("Pickup HTTP server stopped gracefully")
}
