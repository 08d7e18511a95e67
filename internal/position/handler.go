package position

import (
	"net/http"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/authz"
	apierrors "github.com/UofT-ClubHub/Campus-Compass-sub000/internal/errors"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/model"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PositionHandler handles HTTP requests for organization positions.
type PositionHandler struct {
	service *Service
	logger  *logrus.Logger
}

// NewPositionHandler creates a new PositionHandler.
func NewPositionHandler(service *Service, logger *logrus.Logger) *PositionHandler {
	return &PositionHandler{service, logger}
}

// RegisterPositionRoutes registers position routes with JWT and role middleware.
func RegisterPositionRoutes(handler *PositionHandler,
	routerGroup *gin.RouterGroup,
	jwtMiddleware gin.HandlerFunc,
	authzMiddleware *authz.Middleware) {
	positions := routerGroup.Group("/organizations/:orgID/positions")
	positions.Use(jwtMiddleware)

	positions.GET("", authzMiddleware.Require(authz.ResourcePositions, authz.ActionRead), handler.ListPositions)
	positions.GET("/:positionID", authzMiddleware.Require(authz.ResourcePositions, authz.ActionRead), handler.GetPosition)
	positions.POST("", authzMiddleware.Require(authz.ResourcePositions, authz.ActionWrite), handler.CreatePosition)
	positions.PUT("/:positionID", authzMiddleware.Require(authz.ResourcePositions, authz.ActionWrite), handler.UpsertPosition)
	positions.DELETE("/:positionID", authzMiddleware.Require(authz.ResourcePositions, authz.ActionDelete), handler.DeletePosition)
}

// partitionParam reads ?partition=, defaulting to open.
func partitionParam(c *gin.Context) (model.Partition, bool) {
	p, err := model.ParsePartition(c.DefaultQuery("partition", string(model.PartitionOpen)))
	if err != nil {
		utils.RespondAPIError(c, apierrors.ErrInvalidPartition)
		return "", false
	}
	return p, true
}

// CreatePosition handles POST /organizations/:orgID/positions
func (h *PositionHandler) CreatePosition(c *gin.Context) {
	id, _ := authz.GetIdentity(c)
	var raw map[string]interface{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		utils.RespondAPIError(c, apierrors.ErrInvalidBody)
		return
	}
	view, err := h.service.Create(c.Request.Context(), id, c.Param("orgID"), raw)
	if err != nil {
		h.logger.Error("CreatePosition error: ", err)
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusCreated, view)
}

// UpsertPosition handles PUT /organizations/:orgID/positions/:positionID?partition=
func (h *PositionHandler) UpsertPosition(c *gin.Context) {
	id, _ := authz.GetIdentity(c)
	partition, ok := partitionParam(c)
	if !ok {
		return
	}
	var raw map[string]interface{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		utils.RespondAPIError(c, apierrors.ErrInvalidBody)
		return
	}
	view, err := h.service.Upsert(c.Request.Context(), id, c.Param("orgID"), c.Param("positionID"), raw, partition)
	if err != nil {
		h.logger.Error("UpsertPosition error: ", err)
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, view)
}

// DeletePosition handles DELETE /organizations/:orgID/positions/:positionID?partition=
func (h *PositionHandler) DeletePosition(c *gin.Context) {
	id, _ := authz.GetIdentity(c)
	partition, ok := partitionParam(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, c.Param("orgID"), c.Param("positionID"), partition); err != nil {
		h.logger.Error("DeletePosition error: ", err)
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, gin.H{"message": "position deleted successfully"})
}

// GetPosition handles GET /organizations/:orgID/positions/:positionID?partition=
func (h *PositionHandler) GetPosition(c *gin.Context) {
	partition, ok := partitionParam(c)
	if !ok {
		return
	}
	view, err := h.service.Get(c.Request.Context(), c.Param("orgID"), c.Param("positionID"), partition)
	if err != nil {
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, view)
}

// ListPositions handles GET /organizations/:orgID/positions?partition=
func (h *PositionHandler) ListPositions(c *gin.Context) {
	partition, ok := partitionParam(c)
	if !ok {
		return
	}
	views, err := h.service.List(c.Request.Context(), c.Param("orgID"), partition)
	if err != nil {
		h.logger.Error("ListPositions error: ", err)
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, views)
}
