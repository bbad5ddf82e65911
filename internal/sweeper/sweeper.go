package sweeper

import (
	"context"
	"time"

	"pickup-service/internal/service"

	"go.uber.org/zap"
)

const defaultBatchSize = 100

// Sweeper переводит просроченные резервы в expired независимо от активности
// клиента. Переход идёт тем же CAS-путём, что и у движка, поэтому несколько
// экземпляров свипера безопасны.
type Sweeper struct {
	svc      service.ReservationService
	interval time.Duration
	batch    int
	log      *zap.Logger
	stopCh   chan struct{}
}

func New(svc service.ReservationService, interval time.Duration, log *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{
		svc:      svc,
		interval: interval,
		batch:    defaultBatchSize,
		log:      log,
		stopCh:   make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.log.Info("starting expiry sweeper", zap.Duration("interval", s.interval))
	go s.run(ctx)
}

func (s *Sweeper) Stop() {
	s.log.Info("stopping expiry sweeper")
	close(s.stopCh)
}

func (s *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// первый проход сразу при старте
	s.sweepOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.sweepOnce(ctx)
		case <-s.stopCh:
			s.log.Info("expiry sweeper stopped")
			return
		case <-ctx.Done():
			s.log.Info("expiry sweeper cancelled")
			return
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	sweepCtx := service.WithSystemActor(ctx)
	n, err := s.svc.ExpireOverdue(sweepCtx, s.batch)
	if err != nil {
		s.log.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("expired overdue reservations", zap.Int("count", n))
	}
}
