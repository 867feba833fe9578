package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/you/dispatchsvc/domain"
)

// Context keys set by AuthMiddleware
const (
	ContextUserID  = "user_id"
	ContextRole    = "user_role"
	contextRequest = "request_context"
)

// AuthMiddleware creates authentication middleware
func AuthMiddleware(tokenSvc domain.TokenService) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		// Get Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortJSON(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		// Check Bearer token format
		tokenParts := strings.SplitN(authHeader, " ", 2)
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			abortJSON(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := tokenSvc.ValidateAccessToken(tokenParts[1])
		if err != nil {
			switch err {
			case domain.ErrTokenExpired:
				abortJSON(c, http.StatusUnauthorized, "Token expired")
			case domain.ErrTokenInvalid, domain.ErrTokenMalformed:
				abortJSON(c, http.StatusUnauthorized, "Invalid token")
			default:
				abortJSON(c, http.StatusUnauthorized, "Token validation failed")
			}
			return
		}

		rc := domain.RequestContext{UserID: claims.UserID, Role: claims.Role}
		c.Set(contextRequest, rc)
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)

		c.Next()
	})
}

// CurrentUser returns the identity stored by AuthMiddleware
func CurrentUser(c *gin.Context) (domain.RequestContext, bool) {
	v, ok := c.Get(contextRequest)
	if !ok {
		return domain.RequestContext{}, false
	}
	rc, ok := v.(domain.RequestContext)
	return rc, ok && rc.UserID != 0
}

// SetCurrentUser stores an identity on the context, for handlers mounted without AuthMiddleware in tests
func SetCurrentUser(c *gin.Context, rc domain.RequestContext) {
	c.Set(contextRequest, rc)
	c.Set(ContextUserID, rc.UserID)
	c.Set(ContextRole, rc.Role)
}

func abortJSON(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
