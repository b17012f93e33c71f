package handler

import (
	"net/http"

	"github.com/itqanpos/ITQN/internal/middleware"
	"github.com/itqanpos/ITQN/internal/model"
	"github.com/itqanpos/ITQN/internal/service"
	"github.com/itqanpos/ITQN/pkg/response"

	"github.com/gin-gonic/gin"
)

type TreasuryHandler struct {
	treasuryService service.TreasuryService
}

func NewTreasuryHandler(treasuryService service.TreasuryService) *TreasuryHandler {
	return &TreasuryHandler{treasuryService: treasuryService}
}

func (h *TreasuryHandler) RegisterRoutes(router *gin.RouterGroup) {
	treasury := router.Group("/treasury")
	treasury.Use(middleware.RequireRole(model.RoleOwner, model.RoleAdmin, model.RoleManager))
	{
		treasury.GET("", h.GetBalance)
		treasury.GET("/daily", h.ListDaily)
		treasury.POST("/expenses", h.RecordExpense)
		treasury.POST("/opening", h.SeedOpening)
	}
}

// GetBalance returns the running cash balance
// @Summary      Get treasury balance
// @Tags         treasury
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.TreasuryBalanceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/treasury [get]
func (h *TreasuryHandler) GetBalance(c *gin.Context) {
	_, tenantID, ok := requireActor(c)
	if !ok {
		return
	}

	balance, err := h.treasuryService.GetBalance(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, balance))
}

// ListDaily returns daily rollups in a date range
// @Summary      List daily treasury rollups
// @Tags         treasury
// @Security     BearerAuth
// @Produce      json
// @Param        from  query     string  false  "First date, YYYY-MM-DD"
// @Param        to    query     string  false  "Last date, YYYY-MM-DD"
// @Success      200   {object}  response.Response{data=[]service.DailyTreasuryResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/treasury/daily [get]
func (h *TreasuryHandler) ListDaily(c *gin.Context) {
	_, tenantID, ok := requireActor(c)
	if !ok {
		return
	}

	rows, err := h.treasuryService.ListDaily(c.Request.Context(), tenantID, c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

// RecordExpense takes cash out of the drawer
// @Summary      Record expense
// @Tags         treasury
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RecordExpenseRequest  true  "Expense Payload"
// @Success      201      {object}  response.Response{data=service.TreasuryBalanceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/treasury/expenses [post]
func (h *TreasuryHandler) RecordExpense(c *gin.Context) {
	userID, tenantID, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.RecordExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	balance, err := h.treasuryService.RecordExpense(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, balance))
}

// SeedOpening sets the opening cash balance
// @Summary      Seed opening balance
// @Tags         treasury
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SeedOpeningRequest  true  "Opening Payload"
// @Success      201      {object}  response.Response{data=service.TreasuryBalanceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/treasury/opening [post]
func (h *TreasuryHandler) SeedOpening(c *gin.Context) {
	userID, tenantID, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.SeedOpeningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	balance, err := h.treasuryService.SeedOpening(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, balance))
}
