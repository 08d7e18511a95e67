// Package middleware holds the gin middleware shared by every route group.
package middleware

import (
	"errors"
	"strings"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/auth/jwt"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/authz"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
	apierrors "github.com/UofT-ClubHub/Campus-Compass-sub000/internal/errors"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/model"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// JWTAuthMiddleware verifies the bearer token and resolves the caller's
// identity from their member document. Roles always come from the store, so a
// demoted executive loses access on their next request.
func JWTAuthMiddleware(jwter *jwt.Manager, store docstore.Store, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			utils.RespondAPIError(c, apierrors.ErrUnauthorized.WithMessage("missing or invalid Authorization header"))
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims, err := jwter.Verify(tokenStr)
		if err != nil {
			utils.RespondAPIError(c, apierrors.ErrInvalidToken)
			return
		}

		member, err := model.LoadMember(c.Request.Context(), store, claims.MemberID)
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				utils.RespondAPIError(c, apierrors.ErrInvalidToken)
				return
			}
			logger.WithFields(logrus.Fields{
				"memberID":  claims.MemberID,
				"requestID": c.GetString(RequestIDKey),
				"error":     err.Error(),
			}).Error("Failed to load member for token")
			utils.RespondAPIError(c, apierrors.ErrInternalServer)
			return
		}

		authz.SetIdentity(c, authz.Identity{
			MemberID:    member.ID,
			IsAdmin:     member.IsAdmin,
			IsExecutive: member.IsExecutive,
		})
		c.Next()
	}
}
