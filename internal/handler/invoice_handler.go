package handler

import (
	"net/http"

	"github.com/itqanpos/ITQN/internal/service"
	"github.com/itqanpos/ITQN/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/invoices/number", h.GenerateInvoiceNumber)
	router.GET("/sales/:id", h.GetSale)
}

// GenerateInvoiceNumber reserves the next invoice number of the caller's tenant
// @Summary      Generate invoice number
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.InvoiceNumberResponse}
// @Failure      401  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/number [post]
func (h *InvoiceHandler) GenerateInvoiceNumber(c *gin.Context) {
	userID, tenantID, ok := requireActor(c)
	if !ok {
		return
	}

	number, err := h.invoiceService.GenerateInvoiceNumber(c.Request.Context(), tenantID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, number))
}

// GetSale returns an issued invoice
// @Summary      Get sale
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sale ID"
// @Success      200  {object}  response.Response{data=service.SaleResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/sales/{id} [get]
func (h *InvoiceHandler) GetSale(c *gin.Context) {
	_, tenantID, ok := requireActor(c)
	if !ok {
		return
	}

	sale, err := h.invoiceService.GetSale(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}
