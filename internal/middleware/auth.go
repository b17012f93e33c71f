package middleware

import (
	"net/http"
	"strings"

	"github.com/itqanpos/ITQN/internal/auth"
	"github.com/itqanpos/ITQN/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Context keys set by Authenticate.
const (
	ContextUserID   = "userID"
	ContextTenantID = "tenantID"
	ContextUserRole = "userRole"
)

const accessTokenCookie = "access_token"

// SetTokenCookie stores the access token as an HttpOnly cookie.
func SetTokenCookie(c *gin.Context, token string, maxAge int, secure bool) {
	// cross-origin deployments need SameSite=None, which browsers only accept with Secure
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(accessTokenCookie, token, maxAge, "/", "", secure, true)
}

// ClearTokenCookie removes the access token cookie.
func ClearTokenCookie(c *gin.Context, secure bool) {
	c.SetCookie(accessTokenCookie, "", -1, "/", "", secure, true)
}

// Authenticate validates the JWT from the access_token cookie or the
// Authorization header and scopes the request to the token's tenant.
func Authenticate(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie(accessTokenCookie)
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		identity, err := auth.ParseToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token: "+err.Error()))
			return
		}

		c.Set(ContextUserID, identity.UserID)
		c.Set(ContextTenantID, identity.TenantID)
		c.Set(ContextUserRole, identity.Role)

		c.Next()
	}
}

// RequireRole must run after Authenticate. It rejects roles outside allowedRoles.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextUserRole)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Role not found in token"))
			return
		}
		if !lo.Contains(allowedRoles, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}
		c.Next()
	}
}

// Actor returns the authenticated user and tenant of the request.
func Actor(c *gin.Context) (userID, tenantID uuid.UUID, ok bool) {
	userID, uok := c.Value(ContextUserID).(uuid.UUID)
	tenantID, tok := c.Value(ContextTenantID).(uuid.UUID)
	return userID, tenantID, uok && tok
}
