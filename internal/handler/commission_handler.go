package handler

import (
	"net/http"

	"github.com/itqanpos/ITQN/internal/middleware"
	"github.com/itqanpos/ITQN/internal/model"
	"github.com/itqanpos/ITQN/internal/service"
	"github.com/itqanpos/ITQN/pkg/pagination"
	"github.com/itqanpos/ITQN/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type CommissionHandler struct {
	commissionService service.CommissionService
}

func NewCommissionHandler(commissionService service.CommissionService) *CommissionHandler {
	return &CommissionHandler{commissionService: commissionService}
}

func (h *CommissionHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/commissions", h.ListCommissions)
}

// ListCommissions lists commissions; non-approvers only see their own
// @Summary      List commissions
// @Tags         commissions
// @Security     BearerAuth
// @Produce      json
// @Param        actor_id  query     string  false  "Filter by actor"
// @Param        status    query     string  false  "pending or paid"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Number of items per page (default 20)"
// @Success      200       {object}  response.Response{data=response.Page}
// @Failure      400       {object}  response.Response
// @Router       /api/commissions [get]
func (h *CommissionHandler) ListCommissions(c *gin.Context) {
	userID, tenantID, ok := requireActor(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	actorID := c.Query("actor_id")
	if !lo.Contains(model.ApproverRoles, c.GetString(middleware.ContextUserRole)) {
		actorID = userID.String()
	}

	commissions, total, err := h.commissionService.List(c.Request.Context(), tenantID, service.CommissionFilter{
		ActorID: actorID,
		Status:  c.Query("status"),
		Page:    p.Page,
		Limit:   p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, commissions, p.Page, p.Limit, total))
}
