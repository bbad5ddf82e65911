package handlers

import (
	"net/http"
	"strconv"

	"pickup-service/internal/dto"
	"pickup-service/internal/middleware"
	"pickup-service/internal/models"
	"pickup-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReservationHandler struct {
	svc service.ReservationService
	log *zap.Logger
}

func NewReservationHandler(svc service.ReservationService, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{svc: svc, log: log}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid reservation id"))
		return uuid.Nil, false
	}
	return id, true
}

// authoritativeState подкладывает актуальную проекцию резерва в конфликтный ответ
func (h *ReservationHandler) authoritativeState(c *gin.Context, id uuid.UUID) any {
	proj, err := h.svc.GetStatus(middleware.ServiceContext(c), id)
	if err != nil {
		return nil
	}
	out := dto.FromReservation(proj.Reservation, proj.ExpiresInSeconds)
	return out
}

func (h *ReservationHandler) Create(c *gin.Context) {
	var req dto.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid create reservation request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body"))
		return
	}

	in := service.CreateHoldInput{HoldDurationMinutes: req.HoldDurationMinutes}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.CreateHoldItem{
			SKU:            it.SKU,
			LocationID:     it.LocationID,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		})
	}

	res, err := h.svc.CreateHold(middleware.ServiceContext(c), in)
	if err != nil {
		respondServiceError(c, h.log, err, nil)
		return
	}

	c.JSON(http.StatusCreated, dto.FromReservation(res, 0))
}

func (h *ReservationHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	proj, err := h.svc.GetStatus(middleware.ServiceContext(c), id)
	if err != nil {
		respondServiceError(c, h.log, err, nil)
		return
	}

	c.JSON(http.StatusOK, dto.FromReservation(proj.Reservation, proj.ExpiresInSeconds))
}

func (h *ReservationHandler) List(c *gin.Context) {
	f := service.ListFilter{}
	if s := c.Query("status"); s != "" {
		st := models.ReservationStatus(s)
		f.Status = &st
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		f.Limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
		f.Offset = v
	}

	list, total, err := h.svc.ListReservations(middleware.ServiceContext(c), f)
	if err != nil {
		respondServiceError(c, h.log, err, nil)
		return
	}

	out := dto.ReservationListResponse{Total: total}
	for i := range list {
		out.Reservations = append(out.Reservations, dto.FromReservation(&list[i], 0))
	}
	c.JSON(http.StatusOK, out)
}

func (h *ReservationHandler) Schedule(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body"))
		return
	}

	res, err := h.svc.ScheduleWindow(middleware.ServiceContext(c), id, req.WindowID)
	if err != nil {
		respondServiceError(c, h.log, err, h.authoritativeState(c, id))
		return
	}

	c.JSON(http.StatusOK, dto.ScheduleResponse{
		PickupWindowID: res.PickupWindowID,
		ScheduledSlot: dto.ScheduledSlot{
			Date:      res.Date,
			StartTime: res.StartTime,
			EndTime:   res.EndTime,
		},
		ConfirmationCode:     res.ConfirmationCode,
		EstimatedWaitMinutes: res.EstimatedWaitMinutes,
	})
}

func (h *ReservationHandler) Extend(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.ExtendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body"))
		return
	}

	res, err := h.svc.ExtendHold(middleware.ServiceContext(c), id, req.Minutes, req.Reason)
	if err != nil {
		respondServiceError(c, h.log, err, h.authoritativeState(c, id))
		return
	}

	c.JSON(http.StatusOK, dto.ExtendResponse{
		NewExpiry:           res.NewExpiry.UTC(),
		ExtensionsRemaining: res.ExtensionsRemaining,
	})
}

func (h *ReservationHandler) Pickup(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.PickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body"))
		return
	}

	items := make([]service.PickupItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, service.PickupItemInput{
			SKU:            it.SKU,
			RequestedQty:   it.RequestedQty,
			PickedUpQty:    it.PickedUpQty,
			ShortageReason: it.ShortageReason,
		})
	}

	res, err := h.svc.ProcessPickup(middleware.ServiceContext(c), id, items, req.Notes, req.CompletionHint)
	if err != nil {
		respondServiceError(c, h.log, err, h.authoritativeState(c, id))
		return
	}

	c.JSON(http.StatusOK, dto.PickupResponse{
		PickupStatus:      string(res.Status),
		HasRemainingItems: res.HasRemainingItems,
		PickupSummary:     dto.FromSummary(res.Summary),
	})
}

func (h *ReservationHandler) Confirm(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	res, err := h.svc.Confirm(middleware.ServiceContext(c), id)
	if err != nil {
		respondServiceError(c, h.log, err, h.authoritativeState(c, id))
		return
	}

	c.JSON(http.StatusOK, dto.FromReservation(res, 0))
}

func (h *ReservationHandler) Cancel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body"))
		return
	}

	res, err := h.svc.Cancel(middleware.ServiceContext(c), id, service.CancelInput{
		ReasonCode:      req.ReasonCode,
		Notes:           req.Notes,
		RefundRequested: req.RefundRequested,
	})
	if err != nil {
		respondServiceError(c, h.log, err, nil)
		return
	}

	c.JSON(http.StatusOK, dto.CancelResponse{Status: string(res.Status)})
}
