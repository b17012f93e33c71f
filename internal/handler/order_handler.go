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

// IdempotencyKeyHeader makes a checkout safe to resend.
const IdempotencyKeyHeader = "Idempotency-Key"

type OrderHandler struct {
	orderService       service.OrderService
	fulfillmentService service.FulfillmentService
}

func NewOrderHandler(orderService service.OrderService, fulfillmentService service.FulfillmentService) *OrderHandler {
	return &OrderHandler{orderService: orderService, fulfillmentService: fulfillmentService}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrder)
		orders.PUT("/:id/approve", middleware.RequireRole(model.ApproverRoles...), h.ApproveOrder)
		orders.PUT("/:id/reject", middleware.RequireRole(model.ApproverRoles...), h.RejectOrder)
	}
	router.POST("/checkout", h.Checkout)
}

// CreateOrder stores a pending order
// @Summary      Create order
// @Description  Validates items against the catalog, snapshots prices and stores a pending order
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateOrderRequest  true  "Order Payload"
// @Success      201      {object}  response.Response{data=service.OrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, tenantID, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// ListOrders returns the tenant's orders, newest first
// @Summary      List orders
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "pending, approved, rejected or completed"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=response.Page}
// @Router       /api/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	_, tenantID, ok := requireActor(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), tenantID, service.OrderFilter{
		Status: c.Query("status"),
		Page:   p.Page,
		Limit:  p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, orders, p.Page, p.Limit, total))
}

// GetOrder returns one order with its items
// @Summary      Get order
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	_, tenantID, ok := requireActor(c)
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ApproveOrder fulfills a pending order
// @Summary      Approve order
// @Description  Issues the invoice and applies stock, ledger and commission effects atomically
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.FulfillmentResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/orders/{id}/approve [put]
func (h *OrderHandler) ApproveOrder(c *gin.Context) {
	userID, tenantID, ok := requireActor(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.fulfillmentService.Approve(c.Request.Context(), tenantID, orderID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// RejectOrder rejects a pending order
// @Summary      Reject order
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true   "Order ID"
// @Param        payload  body      service.RejectOrderRequest  false  "Rejection reason"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/orders/{id}/reject [put]
func (h *OrderHandler) RejectOrder(c *gin.Context) {
	userID, tenantID, ok := requireActor(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.RejectOrderRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	order, err := h.fulfillmentService.Reject(c.Request.Context(), tenantID, orderID, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// Checkout creates and fulfills an order in one step
// @Summary      Checkout
// @Description  Point-of-sale checkout. Resending the same Idempotency-Key returns the original sale.
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string                      false  "Client generated key"
// @Param        payload          body      service.CreateOrderRequest  true   "Order Payload"
// @Success      201              {object}  response.Response{data=service.FulfillmentResponse}
// @Success      200              {object}  response.Response{data=service.FulfillmentResponse}
// @Failure      400              {object}  response.Response
// @Failure      409              {object}  response.Response
// @Router       /api/checkout [post]
func (h *OrderHandler) Checkout(c *gin.Context) {
	userID, tenantID, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.fulfillmentService.Checkout(c.Request.Context(), tenantID, userID, req, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, response.Success(status, result))
}
