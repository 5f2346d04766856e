package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wardstock/stocktake/internal/domain/models"
	"github.com/wardstock/stocktake/internal/service/counting"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CountingHandler exposes the counting workflow over HTTP.
type CountingHandler struct {
	svc    counting.CountingService
	logger *zap.Logger
}

// NewCountingHandler constructs the HTTP handler adapter.
func NewCountingHandler(svc counting.CountingService, logger *zap.Logger) *CountingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CountingHandler{svc: svc, logger: logger}
}

// View returns the counting page payload for one device.
func (h *CountingHandler) View(c *gin.Context) {
	filter := models.ViewFilter{
		Zone:           c.Query("zone"),
		Keyword:        c.Query("q"),
		HideCompleted:  boolQuery(c, "hide_done", false),
		SortByLocation: boolQuery(c, "sort", true),
	}

	view, err := h.svc.View(c.Request.Context(), OperatorFrom(c), c.Query("device"), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Save records a quantity for one existing inventory line.
func (h *CountingHandler) Save(c *gin.Context) {
	var req models.SaveCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid save payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.svc.SaveCount(c.Request.Context(), OperatorFrom(c), req); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

// AddItem appends a new inventory line to the device's table.
func (h *CountingHandler) AddItem(c *gin.Context) {
	var req models.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid add item payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.svc.AddItem(c.Request.Context(), OperatorFrom(c), req); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "created"})
}

// Export streams the device's table as an .xlsx download.
func (h *CountingHandler) Export(c *gin.Context) {
	data, filename, err := h.svc.Export(c.Request.Context(), c.Query("device"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *CountingHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, counting.ErrOperatorRequired) || errors.Is(err, counting.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, counting.ErrRowLocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("spreadsheet operation failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "spreadsheet unavailable"})
	}
}

// boolQuery reads a boolean query parameter, keeping the default when the
// value is absent or malformed.
func boolQuery(c *gin.Context, name string, def bool) bool {
	raw, ok := c.GetQuery(name)
	if !ok {
		return def
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return value
}
