package handler

import (
	"net/http"
	"time"

	"stockpos/internal/dto"
	"stockpos/internal/middleware"
	"stockpos/internal/service"

	"github.com/gin-gonic/gin"
)

const msgSaleFailed = "An error occurred while processing the sale."

type SalesHandler struct{ svc service.SaleService }

func NewSalesHandler(svc service.SaleService) *SalesHandler {
	return &SalesHandler{svc: svc}
}

// Create godoc
// @Summary Record a sale
// @Description Locks the product row, checks stock, decrements it and records the sale and its stock movement in one transaction.
// @Tags sales
// @Security BearerAuth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param body body dto.SaleRequest true "Sale"
// @Success 201 {object} dto.SaleConfirmation
// @Failure 400 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError "insufficient stock, carries available"
// @Failure 503 {object} apierror.APIError
// @Router /v1/sales [post]
func (h *SalesHandler) Create(c *gin.Context) {
	var req dto.SaleRequest
	if err := c.ShouldBind(&req); err != nil {
		// Only a body that cannot be read at all gets here; field values are
		// judged by ParseSaleForm.
		writeError(c, service.ErrSaleFormIncomplete)
		return
	}
	productID, quantity, err := service.ParseSaleForm(req.ProductID.String(), req.Quantity.String())
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.svc.ProcessSale(c.Request.Context(), service.SaleCommand{
		ProductID: productID,
		Quantity:  quantity,
		UserID:    middleware.GetUserID(c),
	})
	if err != nil {
		writeErrorWith(c, err, msgSaleFailed)
		return
	}
	c.JSON(http.StatusCreated, dto.SaleConfirmation{
		SaleID:            res.Sale.ID,
		ProductID:         res.Sale.ProductID,
		ProductName:       res.ProductName,
		UserID:            res.Sale.UserID,
		Quantity:          res.Sale.QuantitySold,
		UnitPrice:         res.Sale.UnitPrice,
		TotalAmount:       res.Sale.TotalAmount,
		RemainingQuantity: res.RemainingQuantity,
		SaleTime:          res.Sale.SaleTime.Format(time.RFC3339),
		Message:           res.Message,
	})
}

// SellableProducts godoc
// @Summary Products offered on the sale form
// @Tags sales
// @Security BearerAuth
// @Produce json
// @Success 200 {array} dto.SellableProduct
// @Router /v1/sales/products [get]
func (h *SalesHandler) SellableProducts(c *gin.Context) {
	resp, err := h.svc.SellableProducts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// History godoc
// @Summary Sales history, newest first
// @Tags sales
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page"
// @Success 200 {object} dto.SaleHistoryResponse
// @Router /v1/sales [get]
func (h *SalesHandler) History(c *gin.Context) {
	var filter dto.SalesHistoryFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.History(c.Request.Context(), filter.Page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
