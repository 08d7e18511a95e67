package authz

import (
	apierrors "github.com/UofT-ClubHub/Campus-Compass-sub000/internal/errors"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Middleware gates routes on the caller's role.
type Middleware struct {
	enforcer *Enforcer
	logger   *logrus.Logger
}

// NewMiddleware creates a new authorization middleware
func NewMiddleware(enforcer *Enforcer, logger *logrus.Logger) *Middleware {
	return &Middleware{
		enforcer: enforcer,
		logger:   logger,
	}
}

// Require aborts the request unless the caller's role grants action on resource.
func (m *Middleware) Require(resource Resource, action Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			utils.RespondAPIError(c, apierrors.ErrUnauthorized)
			return
		}

		allowed, err := m.enforcer.Enforce(id, resource, action)
		if err != nil {
			utils.RespondAPIError(c, apierrors.ErrInternalServer)
			return
		}

		if !allowed {
			m.logger.WithFields(logrus.Fields{
				"memberID": id.MemberID,
				"resource": resource,
				"action":   action,
				"method":   c.Request.Method,
				"path":     c.Request.URL.Path,
			}).Warn("Access denied")
			utils.RespondAPIError(c, apierrors.ErrForbidden)
			return
		}

		c.Next()
	}
}
