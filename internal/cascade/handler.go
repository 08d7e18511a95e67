package cascade

import (
	"net/http"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/authz"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CascadeHandler handles HTTP requests that delete organizations and posts.
type CascadeHandler struct {
	service *Service
	logger  *logrus.Logger
}

// NewCascadeHandler creates a new CascadeHandler.
func NewCascadeHandler(service *Service, logger *logrus.Logger) *CascadeHandler {
	return &CascadeHandler{service, logger}
}

// RegisterCascadeRoutes registers deletion routes with JWT and role middleware.
func RegisterCascadeRoutes(handler *CascadeHandler,
	routerGroup *gin.RouterGroup,
	jwtMiddleware gin.HandlerFunc,
	authzMiddleware *authz.Middleware) {
	group := routerGroup.Group("")
	group.Use(jwtMiddleware)

	group.DELETE("/organizations/:orgID", authzMiddleware.Require(authz.ResourceOrganizations, authz.ActionDelete), handler.DeleteOrganization)
	group.DELETE("/posts/:postID", authzMiddleware.Require(authz.ResourcePosts, authz.ActionDelete), handler.DeletePost)
}

// DeleteOrganization handles DELETE /organizations/:orgID
func (h *CascadeHandler) DeleteOrganization(c *gin.Context) {
	id, _ := authz.GetIdentity(c)
	res, err := h.service.DeleteOrganization(c.Request.Context(), id, c.Param("orgID"))
	if err != nil {
		h.logger.Error("DeleteOrganization error: ", err)
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, res)
}

// DeletePost handles DELETE /posts/:postID
func (h *CascadeHandler) DeletePost(c *gin.Context) {
	id, _ := authz.GetIdentity(c)
	res, err := h.service.DeletePost(c.Request.Context(), id, c.Param("postID"))
	if err != nil {
		h.logger.Error("DeletePost error: ", err)
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, res)
}
