package handler

import (
	"net/http"

	"stockpos/internal/dto"
	"stockpos/internal/middleware"
	"stockpos/internal/service"

	"github.com/gin-gonic/gin"
)

const dashboardLowStockLimit = 5

type InventoryHandler struct{ svc service.InventoryService }

func NewInventoryHandler(svc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// Restock godoc
// @Summary Add stock to a product
// @Tags inventory
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param body body dto.RestockRequest true "Quantity and reason"
// @Success 200 {object} dto.RestockResponse
// @Router /v1/inventory/products/{id}/restock [post]
func (h *InventoryHandler) Restock(c *gin.Context) {
	id, ok := idParam(c, "Product")
	if !ok {
		return
	}
	var req dto.RestockRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.svc.Restock(c.Request.Context(), service.RestockCommand{
		ProductID: id,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		UserID:    middleware.GetUserID(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Movements(c *gin.Context) {
	var filter dto.MovementFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListMovements(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// LowStock lists every product under the threshold.
func (h *InventoryHandler) LowStock(c *gin.Context) {
	h.lowStock(c, 0)
}

// LowStockTop is the dashboard widget: the five emptiest products.
func (h *InventoryHandler) LowStockTop(c *gin.Context) {
	h.lowStock(c, dashboardLowStockLimit)
}

func (h *InventoryHandler) lowStock(c *gin.Context, limit int) {
	resp, err := h.svc.LowStock(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
