package sweeper

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"pickup-service/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type mockReservationService struct {
	service.ReservationService
	expireCalls atomic.Int32
	expireFunc  func(ctx context.Context, limit int) (int, error)
}

func (m *mockReservationService) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	m.expireCalls.Add(1)
	if m.expireFunc != nil {
		return m.expireFunc(ctx, limit)
	}
	return 0, nil
}

func TestSweeper_RunsImmediatelyAndStops(t *testing.T) {
	svc := &mockReservationService{}

	sw := New(svc, time.Hour, zap.NewNop())
	sw.Start(context.Background())

	// первый проход выполняется сразу, до первого тика
	deadline := time.After(time.Second)
	for svc.expireCalls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("Expected an immediate sweep after start")
		case <-time.After(5 * time.Millisecond):
		}
	}

	sw.Stop()
}

func TestSweeper_PeriodicSweep(t *testing.T) {
	svc := &mockReservationService{}

	sw := New(svc, 10*time.Millisecond, zap.NewNop())
	sw.Start(context.Background())
	defer sw.Stop()

	deadline := time.After(time.Second)
	for svc.expireCalls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("Expected at least 3 sweeps, got %d", svc.expireCalls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSweeper_UsesSystemActor(t *testing.T) {
	svc := &mockReservationService{}

	done := make(chan struct{}, 1)
	svc.expireFunc = func(ctx context.Context, limit int) (int, error) {
		if uid, ok := service.UserIDFromContext(ctx); !ok || uid != uuid.Nil {
			t.Errorf("Expected system actor in sweep context, got %v ok=%v", uid, ok)
		}
		if limit <= 0 {
			t.Errorf("Expected positive batch limit, got %d", limit)
		}
		select {
		case done <- struct{}{}:
		default:
		}
		return 1, nil
	}

	sw := New(svc, time.Hour, zap.NewNop())
	sw.Start(context.Background())
	defer sw.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Sweep did not run")
	}
}
