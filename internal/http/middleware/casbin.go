package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/dispatchsvc/domain"
)

// CasbinMW wraps the policy enforcer for middleware
type CasbinMW struct {
	enforcer domain.PolicyEnforcer
	log      *zap.Logger
}

// NewCasbinMW creates new casbin middleware wrapper
func NewCasbinMW(enforcer domain.PolicyEnforcer, log *zap.Logger) *CasbinMW {
	return &CasbinMW{enforcer: enforcer, log: log}
}

// Enforce returns the casbin authorization middleware. It must run after AuthMiddleware.
func (mw *CasbinMW) Enforce() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		rc, ok := CurrentUser(c)
		if !ok || rc.Role == "" {
			abortJSON(c, http.StatusUnauthorized, "User ID or role not found in token")
			return
		}

		path := c.Request.URL.Path
		method := c.Request.Method

		// Casbin subjects are roles prefixed with "role_"
		allowed, err := mw.enforcer.Enforce("role_"+rc.Role, path, method)
		if err != nil {
			mw.log.Error("authorization check failed", zap.String("path", path), zap.Error(err))
			abortJSON(c, http.StatusInternalServerError, "Authorization check failed")
			return
		}
		if !allowed {
			mw.log.Warn("access denied",
				zap.Uint("user_id", rc.UserID),
				zap.String("role", rc.Role),
				zap.String("method", method),
				zap.String("path", path),
			)
			abortJSON(c, http.StatusForbidden, "Access Denied")
			return
		}

		c.Next()
	})
}
