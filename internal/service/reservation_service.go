package service

import (
	"context"
	"errors"
	"time"

	"pickup-service/internal/models"
	"pickup-service/internal/repository"

	"github.com/google/uuid"
	"github.com/nanorand/nanorand"
	"go.uber.org/zap"
)

const (
	minHoldMinutes   = 5
	maxHoldMinutes   = 240
	minExtendMinutes = 5
	maxExtendMinutes = 120

	codeAttempts = 5
)

// статусы, из которых резерв может истечь по времени
func canExpire(s models.ReservationStatus) bool {
	return s == models.ReservationStatusHeld ||
		s == models.ReservationStatusScheduled ||
		s == models.ReservationStatusConfirmed
}

type reservationService struct {
	repo        *repository.Repository
	stock       InventoryProvider
	events      EventBus
	cache       WindowCache
	log         *zap.Logger
	now         func() time.Time
	defaultHold time.Duration
}

func NewReservationService(repo *repository.Repository, stock InventoryProvider, events EventBus, cache WindowCache, log *zap.Logger, defaultHoldMinutes int) ReservationService {
	if defaultHoldMinutes <= 0 {
		defaultHoldMinutes = 30
	}
	return &reservationService{
		repo:        repo,
		stock:       stock,
		events:      events,
		cache:       cache,
		log:         log,
		now:         time.Now,
		defaultHold: time.Duration(defaultHoldMinutes) * time.Minute,
	}
}

// transition — единственная точка смены статуса: правило машины состояний
// проверяется здесь, поверх CAS по версии
func (s *reservationService) transition(ctx context.Context, tr repository.ReservationRepo, res *models.Reservation, next models.ReservationStatus, extra map[string]any) (bool, error) {
	if next != res.Status && !res.Status.CanTransitionTo(next) {
		return false, ErrNotActive
	}
	fields := map[string]any{"status": next}
	for k, v := range extra {
		fields[k] = v
	}
	return tr.UpdateVersioned(ctx, res.ID, res.Version, fields)
}

// любое изменение занятости окна делает кэшированную проекцию доступности
// устаревшей, сбрасываем её сразу
func (s *reservationService) invalidateAvailability(ctx context.Context, win *models.PickupWindow) {
	if s.cache == nil || win == nil {
		return
	}
	if err := s.cache.Del(ctx, availabilityCacheKey(win.LocationID, win.Date)); err != nil {
		s.log.Warn("availability cache invalidate failed", zap.Error(err))
	}
}

func (s *reservationService) invalidateWindowByID(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	win, err := s.repo.Windows.GetByID(ctx, id)
	if err != nil || win == nil {
		return
	}
	s.invalidateAvailability(ctx, win)
}

func requireAuth(ctx context.Context) (uuid.UUID, Role, error) {
	uid, ok := UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, "", ErrUnauthorized
	}
	role, _ := RoleFromContext(ctx) // если нет — считаем customer по умолчанию
	if role == "" {
		role = RoleCustomer
	}
	return uid, role, nil
}

// getForCaller: staff видит любой резерв, customer — только свой
func (s *reservationService) getForCaller(ctx context.Context, id, uid uuid.UUID, role Role) (*models.Reservation, error) {
	var (
		res *models.Reservation
		err error
	)
	if isStaff(role) {
		res, err = s.repo.Reservations.GetByID(ctx, id)
	} else {
		res, err = s.repo.Reservations.GetByIDForCustomer(ctx, id, uid)
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrReservationNotFound
	}
	return res, nil
}

func (s *reservationService) newReference(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		rng, err := nanorand.Gen(8)
		if err != nil {
			return "", err
		}
		ref := "PU-" + rng
		exists, err := s.repo.Reservations.ReferenceExists(ctx, ref)
		if err != nil {
			return "", err
		}
		if !exists {
			return ref, nil
		}
	}
	return "", ErrCodeGeneration
}

// newPickupCode: шестизначный одноразовый код, проверка коллизий по хранилищу
func (s *reservationService) newPickupCode(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := nanorand.Gen(6)
		if err != nil {
			return "", err
		}
		exists, err := s.repo.Reservations.PickupCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeGeneration
}

func stockRequests(items []models.ReservationItem) []StockRequest {
	reqs := make([]StockRequest, 0, len(items))
	for _, it := range items {
		reqs = append(reqs, StockRequest{SKU: it.SKU, LocationID: it.LocationID, Quantity: it.Quantity})
	}
	return reqs
}

func remainingRequests(items []models.ReservationItem) []StockRequest {
	reqs := make([]StockRequest, 0, len(items))
	for _, it := range items {
		if left := it.Quantity - it.PickedUpQty; left > 0 {
			reqs = append(reqs, StockRequest{SKU: it.SKU, LocationID: it.LocationID, Quantity: left})
		}
	}
	return reqs
}

func (s *reservationService) CreateHold(ctx context.Context, in CreateHoldInput) (*models.Reservation, error) {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	if len(in.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if it.SKU == "" || it.LocationID == "" {
			return nil, ErrEmptyItems
		}
	}

	hold := s.defaultHold
	if in.HoldDurationMinutes != 0 {
		if in.HoldDurationMinutes < minHoldMinutes || in.HoldDurationMinutes > maxHoldMinutes {
			return nil, ErrInvalidDuration
		}
		hold = time.Duration(in.HoldDurationMinutes) * time.Minute
	}

	ref, err := s.newReference(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	res := &models.Reservation{
		Reference:     ref,
		CustomerID:    userID,
		Status:        models.ReservationStatusHeld,
		HoldExpiresAt: now.Add(hold),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, it := range in.Items {
		res.Items = append(res.Items, models.ReservationItem{
			SKU:            it.SKU,
			LocationID:     it.LocationID,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
			CreatedAt:      now,
		})
	}

	// двухфазно: сперва списание остатков, затем вставка холда;
	// при неудаче вставки — компенсирующий возврат
	if err := s.stock.Reserve(ctx, stockRequests(res.Items)); err != nil {
		return nil, err
	}

	err = s.repo.Reservations.WithTx(ctx, func(tr repository.ReservationRepo, _ repository.WindowRepo, _ repository.StockRepo) error {
		if err := tr.Create(ctx, res); err != nil {
			return err
		}
		return tr.AppendAudit(ctx, &models.AuditEntry{
			ReservationID: res.ID,
			Action:        "created",
			Details:       "hold placed until " + res.HoldExpiresAt.UTC().Format(time.RFC3339),
			Actor:         userID.String(),
			CreatedAt:     now,
		})
	})
	if err != nil {
		if relErr := s.stock.Release(ctx, stockRequests(res.Items)); relErr != nil {
			s.log.Error("compensating stock release failed",
				zap.String("reference", ref), zap.Error(relErr))
		}
		return nil, err
	}

	if s.events != nil {
		evItems := make([]ReservationItemEvent, 0, len(res.Items))
		for _, it := range res.Items {
			evItems = append(evItems, ReservationItemEvent{SKU: it.SKU, LocationID: it.LocationID, Quantity: it.Quantity})
		}
		_ = s.events.PublishReservationCreated(ctx, ReservationCreatedEvent{
			ReservationID: res.ID,
			Reference:     res.Reference,
			CustomerID:    res.CustomerID,
			Items:         evItems,
			HoldExpiresAt: res.HoldExpiresAt,
			CreatedAt:     res.CreatedAt,
		})
	}

	return res, nil
}

func (s *reservationService) ScheduleWindow(ctx context.Context, reservationID, windowID uuid.UUID) (*ScheduleResult, error) {
	out, err := s.scheduleOnce(ctx, reservationID, windowID)
	if errors.Is(err, ErrVersionConflict) {
		// одна повторная попытка после проигранной гонки
		out, err = s.scheduleOnce(ctx, reservationID, windowID)
		if errors.Is(err, ErrVersionConflict) {
			err = ErrNotHeld
		}
	}
	return out, err
}

func (s *reservationService) scheduleOnce(ctx context.Context, reservationID, windowID uuid.UUID) (*ScheduleResult, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.getForCaller(ctx, reservationID, userID, role)
	if err != nil {
		return nil, err
	}

	if canExpire(res.Status) && !s.now().Before(res.HoldExpiresAt) {
		s.expireByID(ctx, res.ID)
		return nil, ErrReservationExpired
	}
	if res.Status != models.ReservationStatusHeld {
		return nil, ErrNotHeld
	}

	win, err := s.repo.Windows.GetByID(ctx, windowID)
	if err != nil {
		return nil, err
	}
	if win == nil {
		return nil, ErrWindowNotFound
	}
	switch win.Status {
	case models.WindowStatusInactive:
		return nil, ErrWindowNotActive
	case models.WindowStatusFull:
		return nil, ErrWindowFull
	}

	code, err := s.newPickupCode(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = s.repo.Reservations.WithTx(ctx, func(tr repository.ReservationRepo, tw repository.WindowRepo, _ repository.StockRepo) error {
		// авторитетная проверка ёмкости — условный инкремент, не read-then-write
		ok, err := tw.TryReserveSlot(ctx, windowID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWindowFull
		}

		ok, err = s.transition(ctx, tr, res, models.ReservationStatusScheduled, map[string]any{
			"pickup_window_id": windowID,
			"pickup_code":      code,
		})
		if err != nil {
			return err
		}
		if !ok {
			// откат транзакции вернёт и слот
			return ErrVersionConflict
		}

		return tr.AppendAudit(ctx, &models.AuditEntry{
			ReservationID: res.ID,
			Action:        "scheduled",
			Details:       "window " + windowID.String() + " " + win.Date + " " + win.StartTime + "-" + win.EndTime,
			Actor:         userID.String(),
			CreatedAt:     now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAvailability(ctx, win)

	if s.events != nil {
		_ = s.events.PublishReservationScheduled(ctx, ReservationScheduledEvent{
			ReservationID: res.ID,
			CustomerID:    res.CustomerID,
			WindowID:      windowID,
			Date:          win.Date,
			StartTime:     win.StartTime,
			EndTime:       win.EndTime,
			PickupCode:    code,
			ScheduledAt:   now,
		})
	}

	return &ScheduleResult{
		PickupWindowID:       windowID,
		Date:                 win.Date,
		StartTime:            win.StartTime,
		EndTime:              win.EndTime,
		ConfirmationCode:     code,
		EstimatedWaitMinutes: win.Reserved * 2, // грубая оценка очереди по занятости слота
	}, nil
}

func (s *reservationService) ExtendHold(ctx context.Context, reservationID uuid.UUID, minutes int32, reason *string) (*ExtendResult, error) {
	out, err := s.extendOnce(ctx, reservationID, minutes, reason)
	if errors.Is(err, ErrVersionConflict) {
		out, err = s.extendOnce(ctx, reservationID, minutes, reason)
		if errors.Is(err, ErrVersionConflict) {
			err = ErrNotActive
		}
	}
	return out, err
}

func (s *reservationService) extendOnce(ctx context.Context, reservationID uuid.UUID, minutes int32, reason *string) (*ExtendResult, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	if minutes < minExtendMinutes || minutes > maxExtendMinutes {
		return nil, ErrInvalidDuration
	}

	res, err := s.getForCaller(ctx, reservationID, userID, role)
	if err != nil {
		return nil, err
	}

	if len(res.Extensions) > 0 {
		return nil, ErrExtensionLimit
	}
	if res.Status != models.ReservationStatusHeld && res.Status != models.ReservationStatusScheduled {
		return nil, ErrNotActive
	}
	if !s.now().Before(res.HoldExpiresAt) {
		s.expireByID(ctx, res.ID)
		return nil, ErrReservationExpired
	}

	now := s.now()
	newExpiry := res.HoldExpiresAt.Add(time.Duration(minutes) * time.Minute)

	err = s.repo.Reservations.WithTx(ctx, func(tr repository.ReservationRepo, _ repository.WindowRepo, _ repository.StockRepo) error {
		// уникальный индекс по reservation_id страхует лимит на уровне БД
		if err := tr.AppendExtension(ctx, &models.ExtensionRecord{
			ReservationID:    res.ID,
			ExtendedAt:       now,
			ExtensionMinutes: minutes,
			NewExpiry:        newExpiry,
			Reason:           reason,
		}); err != nil {
			return err
		}

		ok, err := tr.UpdateVersioned(ctx, res.ID, res.Version, map[string]any{
			"hold_expires_at": newExpiry,
		})
		if err != nil {
			return err
		}
		if !ok {
			return ErrVersionConflict
		}

		return tr.AppendAudit(ctx, &models.AuditEntry{
			ReservationID: res.ID,
			Action:        "extended",
			Details:       "new expiry " + newExpiry.UTC().Format(time.RFC3339),
			Actor:         userID.String(),
			CreatedAt:     now,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		_ = s.events.PublishReservationExtended(ctx, ReservationExtendedEvent{
			ReservationID: res.ID,
			CustomerID:    res.CustomerID,
			Minutes:       minutes,
			NewExpiry:     newExpiry,
			ExtendedAt:    now,
		})
	}

	return &ExtendResult{NewExpiry: newExpiry, ExtensionsRemaining: 0}, nil
}

func (s *reservationService) ProcessPickup(ctx context.Context, reservationID uuid.UUID, items []PickupItemInput, notes *string, completionHint string) (*PickupResult, error) {
	out, err := s.pickupOnce(ctx, reservationID, items, notes, completionHint)
	if errors.Is(err, ErrVersionConflict) {
		out, err = s.pickupOnce(ctx, reservationID, items, notes, completionHint)
		if errors.Is(err, ErrVersionConflict) {
			err = ErrNotActive
		}
	}
	return out, err
}

func (s *reservationService) pickupOnce(ctx context.Context, reservationID uuid.UUID, items []PickupItemInput, notes *string, completionHint string) (*PickupResult, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if !isStaff(role) {
		return nil, ErrForbidden
	}
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}

	res, err := s.repo.Reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrReservationNotFound
	}

	switch res.Status {
	case models.ReservationStatusScheduled, models.ReservationStatusConfirmed:
		if !s.now().Before(res.HoldExpiresAt) {
			s.expireByID(ctx, res.ID)
			return nil, ErrReservationExpired
		}
	case models.ReservationStatusPartialPickup:
		// частично выданный резерв не истекает, выдачу можно продолжать
	default:
		return nil, ErrNotActive
	}

	bySKU := make(map[string]*models.ReservationItem, len(res.Items))
	for i := range res.Items {
		bySKU[res.Items[i].SKU] = &res.Items[i]
	}

	for _, in := range items {
		item, ok := bySKU[in.SKU]
		if !ok {
			return nil, ErrUnknownSKU
		}
		if in.RequestedQty <= 0 || in.PickedUpQty < 0 || in.PickedUpQty > in.RequestedQty {
			return nil, ErrInvalidQuantity
		}
		if in.RequestedQty > item.Quantity-item.PickedUpQty {
			return nil, ErrQuantityExceedsReserved
		}
	}

	now := s.now()
	var consumed []StockRequest
	records := make([]models.PickupRecord, 0, len(items))
	for _, in := range items {
		records = append(records, models.PickupRecord{
			ReservationID:  res.ID,
			SKU:            in.SKU,
			RequestedQty:   in.RequestedQty,
			PickedUpQty:    in.PickedUpQty,
			ShortageReason: in.ShortageReason,
			Notes:          notes,
			CreatedAt:      now,
		})
	}

	err = s.repo.Reservations.WithTx(ctx, func(tr repository.ReservationRepo, _ repository.WindowRepo, _ repository.StockRepo) error {
		for _, in := range items {
			if in.PickedUpQty == 0 {
				continue
			}
			// условный инкремент не даст выдать больше зарезервированного
			ok, err := tr.AddPickedUpQty(ctx, res.ID, in.SKU, in.PickedUpQty)
			if err != nil {
				return err
			}
			if !ok {
				return ErrQuantityExceedsReserved
			}
			item := bySKU[in.SKU]
			item.PickedUpQty += in.PickedUpQty
			consumed = append(consumed, StockRequest{SKU: in.SKU, LocationID: item.LocationID, Quantity: in.PickedUpQty})
		}

		if err := tr.AppendPickups(ctx, records); err != nil {
			return err
		}

		newStatus := models.ReservationStatusCompleted
		for _, it := range res.Items {
			if it.PickedUpQty < it.Quantity {
				newStatus = models.ReservationStatusPartialPickup
				break
			}
		}

		ok, err := s.transition(ctx, tr, res, newStatus, nil)
		if err != nil {
			return err
		}
		if !ok {
			return ErrVersionConflict
		}
		res.Status = newStatus

		return tr.AppendAudit(ctx, &models.AuditEntry{
			ReservationID: res.ID,
			Action:        "pickup_processed",
			Details:       "hint=" + completionHint + " status=" + string(newStatus),
			Actor:         userID.String(),
			CreatedAt:     now,
		})
	})
	if err != nil {
		return nil, err
	}

	// выданное списываем с резерва склада уже вне транзакции
	if len(consumed) > 0 {
		if err := s.stock.Consume(ctx, consumed); err != nil {
			s.log.Error("stock consume failed after pickup",
				zap.String("reservation_id", res.ID.String()), zap.Error(err))
		}
	}

	summary := BuildPickupSummary(res.Items)

	if s.events != nil {
		_ = s.events.PublishReservationPickedUp(ctx, ReservationPickedUpEvent{
			ReservationID: res.ID,
			CustomerID:    res.CustomerID,
			Completed:     res.Status == models.ReservationStatusCompleted,
			PickedUpAt:    now,
		})
	}

	return &PickupResult{
		Status:            res.Status,
		HasRemainingItems: summary.HasRemaining(),
		Summary:           summary,
	}, nil
}

func (s *reservationService) Confirm(ctx context.Context, reservationID uuid.UUID) (*models.Reservation, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if !isStaff(role) {
		return nil, ErrForbidden
	}

	res, err := s.repo.Reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrReservationNotFound
	}

	if res.Status != models.ReservationStatusScheduled {
		return nil, ErrNotActive
	}
	if !s.now().Before(res.HoldExpiresAt) {
		s.expireByID(ctx, res.ID)
		return nil, ErrReservationExpired
	}

	now := s.now()
	err = s.repo.Reservations.WithTx(ctx, func(tr repository.ReservationRepo, _ repository.WindowRepo, _ repository.StockRepo) error {
		ok, err := s.transition(ctx, tr, res, models.ReservationStatusConfirmed, nil)
		if err != nil {
			return err
		}
		if !ok {
			return ErrVersionConflict
		}
		return tr.AppendAudit(ctx, &models.AuditEntry{
			ReservationID: res.ID,
			Action:        "confirmed",
			Actor:         userID.String(),
			CreatedAt:     now,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		_ = s.events.PublishReservationConfirmed(ctx, ReservationConfirmedEvent{
			ReservationID: res.ID,
			CustomerID:    res.CustomerID,
			ConfirmedAt:   now,
		})
	}

	return s.repo.Reservations.GetByID(ctx, reservationID)
}

func (s *reservationService) Cancel(ctx context.Context, reservationID uuid.UUID, in CancelInput) (*models.Reservation, error) {
	out, err := s.cancelOnce(ctx, reservationID, in)
	if errors.Is(err, ErrVersionConflict) {
		out, err = s.cancelOnce(ctx, reservationID, in)
	}
	return out, err
}

func (s *reservationService) cancelOnce(ctx context.Context, reservationID uuid.UUID, in CancelInput) (*models.Reservation, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.getForCaller(ctx, reservationID, userID, role)
	if err != nil {
		return nil, err
	}

	// идемпотентность: повторная отмена (и отмена любого терминального) — no-op
	if res.Status.IsTerminal() {
		return res, nil
	}

	releaseSlot := res.PickupWindowID != nil &&
		(res.Status == models.ReservationStatusScheduled || res.Status == models.ReservationStatusConfirmed)

	now := s.now()
	err = s.repo.Reservations.WithTx(ctx, func(tr repository.ReservationRepo, tw repository.WindowRepo, _ repository.StockRepo) error {
		ok, err := s.transition(ctx, tr, res, models.ReservationStatusCancelled, map[string]any{
			"cancel_reason":    in.ReasonCode,
			"refund_requested": in.RefundRequested,
		})
		if err != nil {
			return err
		}
		if !ok {
			return ErrVersionConflict
		}

		if releaseSlot {
			if _, err := tw.ReleaseSlot(ctx, *res.PickupWindowID); err != nil {
				return err
			}
		}

		details := "reason=" + in.ReasonCode
		if in.Notes != nil {
			details += " notes=" + *in.Notes
		}
		return tr.AppendAudit(ctx, &models.AuditEntry{
			ReservationID: res.ID,
			Action:        "cancelled",
			Details:       details,
			Actor:         userID.String(),
			CreatedAt:     now,
		})
	})
	if err != nil {
		return nil, err
	}

	if releaseSlot {
		s.invalidateWindowByID(ctx, *res.PickupWindowID)
	}

	// возврат невыданных остатков в пул
	if reqs := remainingRequests(res.Items); len(reqs) > 0 {
		if err := s.stock.Release(ctx, reqs); err != nil {
			s.log.Error("stock release failed after cancel",
				zap.String("reservation_id", res.ID.String()), zap.Error(err))
		}
	}

	if s.events != nil {
		_ = s.events.PublishReservationCancelled(ctx, ReservationCancelledEvent{
			ReservationID: res.ID,
			CustomerID:    res.CustomerID,
			ReasonCode:    in.ReasonCode,
			CancelledAt:   now,
		})
	}

	return s.repo.Reservations.GetByID(ctx, reservationID)
}

func (s *reservationService) GetStatus(ctx context.Context, reservationID uuid.UUID) (*StatusProjection, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.getForCaller(ctx, reservationID, userID, role)
	if err != nil {
		return nil, err
	}

	// ленивое истечение на чтении; свипер подстрахует резервы, которые никто не читает
	if canExpire(res.Status) && !s.now().Before(res.HoldExpiresAt) {
		s.expireByID(ctx, res.ID)
		res, err = s.getForCaller(ctx, reservationID, userID, role)
		if err != nil {
			return nil, err
		}
	}

	var expiresIn int64
	if canExpire(res.Status) {
		if d := res.HoldExpiresAt.Sub(s.now()); d > 0 {
			expiresIn = int64(d.Seconds())
		}
	}

	return &StatusProjection{
		Reservation:      res,
		ExpiresInSeconds: expiresIn,
		Summary:          BuildPickupSummary(res.Items),
	}, nil
}

func (s *reservationService) ListReservations(ctx context.Context, f ListFilter) ([]models.Reservation, int64, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, 0, err
	}

	if !isStaff(role) {
		f.CustomerID = &userID
	}

	listPtr, total, err := s.repo.Reservations.List(ctx, repository.ReservationListFilter{
		CustomerID: f.CustomerID,
		Status:     f.Status,
		Limit:      f.Limit,
		Offset:     f.Offset,
	})
	if err != nil {
		return nil, 0, err
	}

	list := make([]models.Reservation, len(listPtr))
	for i, r := range listPtr {
		list[i] = *r
	}
	return list, total, nil
}

func (s *reservationService) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	ids, err := s.repo.Reservations.ListExpiredIDs(ctx, s.now(), limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		if s.expireByID(ctx, id) {
			expired++
		}
	}
	return expired, nil
}

// expireByID переводит резерв в expired тем же CAS-путём, что и остальные
// мутации: параллельные свиперы и успевший extend/complete теряют гонку молча.
func (s *reservationService) expireByID(ctx context.Context, id uuid.UUID) bool {
	res, err := s.repo.Reservations.GetByID(ctx, id)
	if err != nil {
		s.log.Error("expire: load failed", zap.String("reservation_id", id.String()), zap.Error(err))
		return false
	}
	if res == nil || !canExpire(res.Status) || s.now().Before(res.HoldExpiresAt) {
		return false
	}

	releaseSlot := res.PickupWindowID != nil &&
		(res.Status == models.ReservationStatusScheduled || res.Status == models.ReservationStatusConfirmed)

	now := s.now()
	err = s.repo.Reservations.WithTx(ctx, func(tr repository.ReservationRepo, tw repository.WindowRepo, _ repository.StockRepo) error {
		ok, err := s.transition(ctx, tr, res, models.ReservationStatusExpired, nil)
		if err != nil {
			return err
		}
		if !ok {
			return ErrVersionConflict
		}

		if releaseSlot {
			if _, err := tw.ReleaseSlot(ctx, *res.PickupWindowID); err != nil {
				return err
			}
		}

		return tr.AppendAudit(ctx, &models.AuditEntry{
			ReservationID: res.ID,
			Action:        "expired",
			Details:       "hold expired at " + res.HoldExpiresAt.UTC().Format(time.RFC3339),
			Actor:         "system",
			CreatedAt:     now,
		})
	})
	if err != nil {
		if !errors.Is(err, ErrVersionConflict) {
			s.log.Error("expire: transition failed", zap.String("reservation_id", id.String()), zap.Error(err))
		}
		return false
	}

	if releaseSlot {
		s.invalidateWindowByID(ctx, *res.PickupWindowID)
	}

	if reqs := remainingRequests(res.Items); len(reqs) > 0 {
		if err := s.stock.Release(ctx, reqs); err != nil {
			s.log.Error("stock release failed after expiry",
				zap.String("reservation_id", res.ID.String()), zap.Error(err))
		}
	}

	if s.events != nil {
		_ = s.events.PublishReservationExpired(ctx, ReservationExpiredEvent{
			ReservationID: res.ID,
			CustomerID:    res.CustomerID,
			ExpiredAt:     now,
		})
	}

	return true
}
