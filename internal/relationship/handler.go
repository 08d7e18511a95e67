package relationship

import (
	"net/http"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/authz"
	apierrors "github.com/UofT-ClubHub/Campus-Compass-sub000/internal/errors"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RelationshipHandler handles HTTP requests for relationship changes.
type RelationshipHandler struct {
	service *Service
	logger  *logrus.Logger
}

// NewRelationshipHandler creates a new RelationshipHandler.
func NewRelationshipHandler(service *Service, logger *logrus.Logger) *RelationshipHandler {
	return &RelationshipHandler{service, logger}
}

// RegisterRelationshipRoutes registers relationship routes with JWT and role middleware.
func RegisterRelationshipRoutes(handler *RelationshipHandler,
	routerGroup *gin.RouterGroup,
	jwtMiddleware gin.HandlerFunc,
	authzMiddleware *authz.Middleware) {
	group := routerGroup.Group("")
	group.Use(jwtMiddleware)

	group.POST("/follow", authzMiddleware.Require(authz.ResourceFollows, authz.ActionWrite), handler.ToggleFollow)
	group.POST("/likes", authzMiddleware.Require(authz.ResourceLikes, authz.ActionWrite), handler.ToggleLike)
	group.PUT("/organizations/:orgID/executives", authzMiddleware.Require(authz.ResourceOrganizations, authz.ActionManage), handler.SetExecutives)
	group.PUT("/members/:memberID/managed-organizations", authzMiddleware.Require(authz.ResourceMembers, authz.ActionManage), handler.SetManagedOrganizations)
}

// ToggleFollow handles POST /follow
func (h *RelationshipHandler) ToggleFollow(c *gin.Context) {
	id, _ := authz.GetIdentity(c)
	var req ToggleFollowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondAPIError(c, apierrors.ErrInvalidBody)
		return
	}
	res, err := h.service.ToggleFollow(c.Request.Context(), id.MemberID, req.OrganizationID)
	if err != nil {
		h.logger.Error("ToggleFollow error: ", err)
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, res)
}

// ToggleLike handles POST /likes
func (h *RelationshipHandler) ToggleLike(c *gin.Context) {
	id, _ := authz.GetIdentity(c)
	var req ToggleLikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondAPIError(c, apierrors.ErrInvalidBody)
		return
	}
	res, err := h.service.ToggleLike(c.Request.Context(), id.MemberID, req.PostID)
	if err != nil {
		h.logger.Error("ToggleLike error: ", err)
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, res)
}

// SetExecutives handles PUT /organizations/:orgID/executives
func (h *RelationshipHandler) SetExecutives(c *gin.Context) {
	id, _ := authz.GetIdentity(c)
	var req SetExecutivesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondAPIError(c, apierrors.ErrInvalidBody)
		return
	}
	res, err := h.service.SetExecutivesAs(c.Request.Context(), id, c.Param("orgID"), req.Executives)
	if err != nil {
		h.logger.Error("SetExecutives error: ", err)
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, res)
}

// SetManagedOrganizations handles PUT /members/:memberID/managed-organizations
func (h *RelationshipHandler) SetManagedOrganizations(c *gin.Context) {
	id, _ := authz.GetIdentity(c)
	var req SetManagedOrganizationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondAPIError(c, apierrors.ErrInvalidBody)
		return
	}
	res, err := h.service.SetManagedOrganizations(c.Request.Context(), id, c.Param("memberID"), req.Organizations)
	if err != nil {
		h.logger.Error("SetManagedOrganizations error: ", err)
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, res)
}
