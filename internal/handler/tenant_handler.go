package handler

import (
	"net/http"

	"github.com/itqanpos/ITQN/internal/service"
	"github.com/itqanpos/ITQN/pkg/response"

	"github.com/gin-gonic/gin"
)

type TenantHandler struct {
	tenantService service.TenantService
}

func NewTenantHandler(tenantService service.TenantService) *TenantHandler {
	return &TenantHandler{tenantService: tenantService}
}

// RegisterPublicRoutes binds the unauthenticated onboarding endpoint
func (h *TenantHandler) RegisterPublicRoutes(router *gin.RouterGroup) {
	router.POST("/tenants", h.Provision)
}

// Provision onboards a new tenant and its owner account
// @Summary      Provision tenant
// @Description  Creates the tenant, its owner, sequence counters, main treasury account and today's rollup in one transaction
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ProvisionTenantRequest  true  "Tenant Payload"
// @Success      201      {object}  response.Response{data=service.TenantResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/tenants [post]
func (h *TenantHandler) Provision(c *gin.Context) {
	var req service.ProvisionTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tenant, err := h.tenantService.Provision(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tenant))
}
