package middleware

import (
	"net/http"

	"go-presence/internal/domain"
	"go-presence/internal/shared/apperror"
	"go-presence/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RBACService is satisfied by anything exposing Enforce(domain.EnforceRequest).
type RBACService interface {
	Enforce(req domain.EnforceRequest) (bool, error)
}

func enforceRequest(c *gin.Context, resource, action string) (domain.EnforceRequest, bool) {
	role := c.GetString("role")
	companyID := c.GetString("company_id")
	if role == "" || companyID == "" {
		return domain.EnforceRequest{}, false
	}
	return domain.EnforceRequest{
		Role:      role,
		CompanyID: companyID,
		Resource:  resource,
		Action:    action,
	}, true
}

func RBACAuthorize(service RBACService, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := enforceRequest(c, resource, action)
		if !ok {
			response.Error(c, http.StatusUnauthorized, apperror.CodeUnauthorized, "missing auth context", nil)
			c.Abort()
			return
		}

		allowed, err := service.Enforce(req)
		if err != nil {
			zap.L().Named("middleware.rbac").Error("enforce failed", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, apperror.CodeInternalError, apperror.ErrInternal.Message, nil)
			c.Abort()
			return
		}

		if !allowed {
			response.Error(c, http.StatusForbidden, apperror.CodeForbidden, apperror.ErrForbidden.Message, map[string]any{
				"required": resource + ":" + action,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RBACFlag records whether the caller holds resource:action under key and
// always continues; handlers decide what the flag unlocks.
func RBACFlag(service RBACService, resource, action, key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed := false
		if req, ok := enforceRequest(c, resource, action); ok {
			var err error
			allowed, err = service.Enforce(req)
			if err != nil {
				zap.L().Named("middleware.rbac").Warn("permission check failed", zap.String("permission", resource+":"+action), zap.Error(err))
				allowed = false
			}
		}
		c.Set(key, allowed)
		c.Next()
	}
}
