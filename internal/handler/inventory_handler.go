package handler

import (
	"net/http"

	"github.com/itqanpos/ITQN/internal/middleware"
	"github.com/itqanpos/ITQN/internal/model"
	"github.com/itqanpos/ITQN/internal/service"
	"github.com/itqanpos/ITQN/pkg/pagination"
	"github.com/itqanpos/ITQN/pkg/response"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	inventoryService service.InventoryService
}

func NewInventoryHandler(inventoryService service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	stockKeepers := middleware.RequireRole(model.RoleOwner, model.RoleAdmin, model.RoleManager)

	products := router.Group("/products")
	{
		products.GET("", h.GetProducts)
		products.POST("", stockKeepers, h.CreateProduct)
		products.POST("/:id/restock", stockKeepers, h.Restock)
		products.GET("/:id/inventory-logs", h.ListLogs)
	}
}

// GetProducts handles retrieving paginated inventory statuses
// @Summary      Get products
// @Description  Retrieves a paginated list of products with current stock
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        search  query     string  false  "Search by product name or SKU"
// @Success      200     {object}  response.Response{data=response.Page}
// @Router       /api/products [get]
func (h *InventoryHandler) GetProducts(c *gin.Context) {
	_, tenantID, ok := requireActor(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	products, total, err := h.inventoryService.GetProducts(c.Request.Context(), tenantID, p.Page, p.Limit, c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, products, p.Page, p.Limit, total))
}

// CreateProduct creates a new inventory product entry
// @Summary      Create product
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateProductRequest  true  "Create Product Payload"
// @Success      201      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/products [post]
func (h *InventoryHandler) CreateProduct(c *gin.Context) {
	userID, tenantID, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := h.inventoryService.CreateProduct(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// Restock adds received units to a product
// @Summary      Restock product
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Product ID"
// @Param        payload  body      service.RestockRequest  true  "Restock Payload"
// @Success      200      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/products/{id}/restock [post]
func (h *InventoryHandler) Restock(c *gin.Context) {
	userID, tenantID, ok := requireActor(c)
	if !ok {
		return
	}
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := h.inventoryService.Restock(c.Request.Context(), tenantID, productID, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// ListLogs returns the stock movement trail of a product
// @Summary      List inventory logs
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Product ID"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Page}
// @Failure      404    {object}  response.Response
// @Router       /api/products/{id}/inventory-logs [get]
func (h *InventoryHandler) ListLogs(c *gin.Context) {
	_, tenantID, ok := requireActor(c)
	if !ok {
		return
	}
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}
	p := pagination.Parse(c)

	logs, total, err := h.inventoryService.ListLogs(c.Request.Context(), tenantID, productID, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, logs, p.Page, p.Limit, total))
}
