package service

import (
	"context"
	"encoding/json"
	"time"

	"pickup-service/internal/models"
	"pickup-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const slotTimeLayout = "15:04"

type windowService struct {
	repo     *repository.Repository
	cache    WindowCache
	cacheTTL time.Duration
	log      *zap.Logger
	now      func() time.Time
}

func NewWindowService(repo *repository.Repository, cache WindowCache, cacheTTLSeconds int, log *zap.Logger) WindowService {
	if cacheTTLSeconds <= 0 {
		cacheTTLSeconds = 30
	}
	return &windowService{
		repo:     repo,
		cache:    cache,
		cacheTTL: time.Duration(cacheTTLSeconds) * time.Second,
		log:      log,
		now:      time.Now,
	}
}

func availabilityCacheKey(locationID, date string) string {
	return "windows:" + locationID + ":" + date
}

func validDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

func validSlot(slot TimeSlotInput) bool {
	start, err := time.Parse(slotTimeLayout, slot.StartTime)
	if err != nil {
		return false
	}
	end, err := time.Parse(slotTimeLayout, slot.EndTime)
	if err != nil {
		return false
	}
	return start.Before(end)
}

func (s *windowService) requireStaff(ctx context.Context) (uuid.UUID, error) {
	uid, role, err := requireAuth(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if !isStaff(role) {
		return uuid.Nil, ErrForbidden
	}
	return uid, nil
}

func (s *windowService) CreateWindows(ctx context.Context, in CreateWindowsInput) ([]models.PickupWindow, error) {
	if _, err := s.requireStaff(ctx); err != nil {
		return nil, err
	}

	if in.LocationID == "" || !validDate(in.Date) || len(in.Slots) == 0 {
		return nil, ErrInvalidSlot
	}
	if in.CapacityPerSlot <= 0 {
		return nil, ErrInvalidQuantity
	}
	for _, slot := range in.Slots {
		if !validSlot(slot) {
			return nil, ErrInvalidSlot
		}
	}

	now := s.now()
	windows := make([]models.PickupWindow, 0, len(in.Slots))
	for _, slot := range in.Slots {
		windows = append(windows, models.PickupWindow{
			LocationID: in.LocationID,
			Date:       in.Date,
			StartTime:  slot.StartTime,
			EndTime:    slot.EndTime,
			Capacity:   in.CapacityPerSlot,
			Status:     models.WindowStatusActive,
			Notes:      in.Notes,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	if err := s.repo.Windows.BulkCreate(ctx, windows); err != nil {
		return nil, err
	}

	s.invalidate(ctx, in.LocationID, in.Date)
	return windows, nil
}

func (s *windowService) ListWindows(ctx context.Context, locationID, date string) (*WindowAvailability, error) {
	if locationID == "" || !validDate(date) {
		return nil, ErrInvalidSlot
	}

	key := availabilityCacheKey(locationID, date)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil && raw != "" {
			var cached WindowAvailability
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	windows, err := s.repo.Windows.ListByLocationDate(ctx, locationID, date)
	if err != nil {
		return nil, err
	}

	out := &WindowAvailability{Windows: windows}
	for i := range windows {
		w := &windows[i]
		if w.Status == models.WindowStatusInactive {
			continue
		}
		out.TotalCapacity += w.Capacity
		free := w.Capacity - w.Reserved
		if free > 0 {
			out.AvailableCapacity += free
			if out.NextAvailableSlot == nil {
				out.NextAvailableSlot = w
			}
		}
	}

	if s.cache != nil {
		if data, err := json.Marshal(out); err == nil {
			if err := s.cache.Set(ctx, key, string(data), s.cacheTTL); err != nil {
				s.log.Warn("availability cache set failed", zap.Error(err))
			}
		}
	}

	return out, nil
}

func (s *windowService) SetWindowStatus(ctx context.Context, windowID uuid.UUID, status models.WindowStatus) (*models.PickupWindow, error) {
	if _, err := s.requireStaff(ctx); err != nil {
		return nil, err
	}
	if status != models.WindowStatusActive && status != models.WindowStatusInactive {
		return nil, ErrWindowNotActive
	}

	win, err := s.repo.Windows.GetByID(ctx, windowID)
	if err != nil {
		return nil, err
	}
	if win == nil {
		return nil, ErrWindowNotFound
	}

	if _, err := s.repo.Windows.SetStatus(ctx, windowID, status); err != nil {
		return nil, err
	}

	s.invalidate(ctx, win.LocationID, win.Date)
	return s.repo.Windows.GetByID(ctx, windowID)
}

func (s *windowService) SetStock(ctx context.Context, sku, locationID string, available int32) (*models.StockLevel, error) {
	if _, err := s.requireStaff(ctx); err != nil {
		return nil, err
	}
	if sku == "" || locationID == "" || available < 0 {
		return nil, ErrInvalidQuantity
	}

	if err := s.repo.Stock.SetAvailable(ctx, sku, locationID, available); err != nil {
		return nil, err
	}
	return s.repo.Stock.Get(ctx, sku, locationID)
}

func (s *windowService) AdjustStock(ctx context.Context, sku, locationID string, delta int32) (*models.StockLevel, error) {
	if _, err := s.requireStaff(ctx); err != nil {
		return nil, err
	}
	if sku == "" || locationID == "" {
		return nil, ErrInvalidQuantity
	}

	if _, err := s.repo.Stock.AdjustAvailable(ctx, sku, locationID, delta); err != nil {
		return nil, err
	}
	return s.repo.Stock.Get(ctx, sku, locationID)
}

func (s *windowService) invalidate(ctx context.Context, locationID, date string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, availabilityCacheKey(locationID, date)); err != nil {
		s.log.Warn("availability cache invalidate failed", zap.Error(err))
	}
}
