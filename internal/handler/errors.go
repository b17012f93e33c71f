package handler

import (
	"net/http"

	ierr "github.com/itqanpos/ITQN/internal/errors"
	"github.com/itqanpos/ITQN/internal/middleware"
	"github.com/itqanpos/ITQN/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError writes err with the status of its kind. Internal errors are
// not described to clients.
func respondError(c *gin.Context, err error) {
	status := ierr.HTTPStatusFromErr(err)
	msg := ierr.DisplayMessage(err)
	if status == http.StatusInternalServerError {
		msg = "Internal server error"
	}
	c.JSON(status, response.Error(status, msg))
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}

// requireActor returns the caller's user and tenant or aborts with 401.
func requireActor(c *gin.Context) (userID, tenantID uuid.UUID, ok bool) {
	userID, tenantID, ok = middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
	}
	return userID, tenantID, ok
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}
