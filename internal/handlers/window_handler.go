package handlers

import (
	"net/http"

	"pickup-service/internal/dto"
	"pickup-service/internal/middleware"
	"pickup-service/internal/models"
	"pickup-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type WindowHandler struct {
	svc service.WindowService
	log *zap.Logger
}

func NewWindowHandler(svc service.WindowService, log *zap.Logger) *WindowHandler {
	return &WindowHandler{svc: svc, log: log}
}

func (h *WindowHandler) List(c *gin.Context) {
	locationID := c.Query("location_id")
	date := c.Query("date")
	if locationID == "" || date == "" {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("location_id and date are required"))
		return
	}

	av, err := h.svc.ListWindows(middleware.ServiceContext(c), locationID, date)
	if err != nil {
		respondServiceError(c, h.log, err, nil)
		return
	}

	out := dto.WindowListResponse{
		TotalCapacity:     av.TotalCapacity,
		AvailableCapacity: av.AvailableCapacity,
	}
	for i := range av.Windows {
		out.Windows = append(out.Windows, dto.FromWindow(&av.Windows[i]))
	}
	if av.NextAvailableSlot != nil {
		w := dto.FromWindow(av.NextAvailableSlot)
		out.NextAvailableSlot = &w
	}
	c.JSON(http.StatusOK, out)
}

func (h *WindowHandler) Create(c *gin.Context) {
	var req dto.CreateWindowsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid create windows request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body"))
		return
	}

	in := service.CreateWindowsInput{
		LocationID:      req.LocationID,
		Date:            req.Date,
		CapacityPerSlot: req.CapacityPerSlot,
		Notes:           req.Notes,
	}
	for _, s := range req.TimeSlots {
		in.Slots = append(in.Slots, service.TimeSlotInput{StartTime: s.StartTime, EndTime: s.EndTime})
	}

	windows, err := h.svc.CreateWindows(middleware.ServiceContext(c), in)
	if err != nil {
		respondServiceError(c, h.log, err, nil)
		return
	}

	out := make([]dto.WindowResponse, 0, len(windows))
	for i := range windows {
		out = append(out, dto.FromWindow(&windows[i]))
	}
	c.JSON(http.StatusCreated, gin.H{"windows": out})
}

func (h *WindowHandler) SetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid window id"))
		return
	}

	var req dto.WindowStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body"))
		return
	}

	win, err := h.svc.SetWindowStatus(middleware.ServiceContext(c), id, models.WindowStatus(req.Status))
	if err != nil {
		respondServiceError(c, h.log, err, nil)
		return
	}

	c.JSON(http.StatusOK, dto.FromWindow(win))
}

func (h *WindowHandler) UpsertStock(c *gin.Context) {
	var req dto.StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body"))
		return
	}
	if req.Available == nil && req.Delta == nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("either available or delta must be set"))
		return
	}

	var (
		lvl *models.StockLevel
		err error
	)
	if req.Available != nil {
		lvl, err = h.svc.SetStock(middleware.ServiceContext(c), req.SKU, req.LocationID, *req.Available)
	} else {
		lvl, err = h.svc.AdjustStock(middleware.ServiceContext(c), req.SKU, req.LocationID, *req.Delta)
	}
	if err != nil {
		respondServiceError(c, h.log, err, nil)
		return
	}

	c.JSON(http.StatusOK, dto.StockResponse{
		SKU:        lvl.SKU,
		LocationID: lvl.LocationID,
		Available:  lvl.Available,
		Reserved:   lvl.Reserved,
	})
}
