package pending

import (
	"net/http"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/authz"
	apierrors "github.com/UofT-ClubHub/Campus-Compass-sub000/internal/errors"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PendingHandler handles HTTP requests for pending organization requests.
type PendingHandler struct {
	service *Service
	logger  *logrus.Logger
}

// NewPendingHandler creates a new PendingHandler.
func NewPendingHandler(service *Service, logger *logrus.Logger) *PendingHandler {
	return &PendingHandler{service, logger}
}

// RegisterPendingRoutes registers pending organization routes with JWT and role middleware.
func RegisterPendingRoutes(handler *PendingHandler,
	routerGroup *gin.RouterGroup,
	jwtMiddleware gin.HandlerFunc,
	authzMiddleware *authz.Middleware) {
	group := routerGroup.Group("/pending-organizations")
	group.Use(jwtMiddleware)

	group.POST("", authzMiddleware.Require(authz.ResourcePendingRequests, authz.ActionSubmit), handler.Submit)
	group.GET("", authzMiddleware.Require(authz.ResourcePendingRequests, authz.ActionList), handler.ListPending)
	group.GET("/mine", authzMiddleware.Require(authz.ResourcePendingRequests, authz.ActionRead), handler.ListMine)
	group.POST("/:requestID/decision", authzMiddleware.Require(authz.ResourcePendingRequests, authz.ActionDecide), handler.Decide)
}

// Submit handles POST /pending-organizations
func (h *PendingHandler) Submit(c *gin.Context) {
	id, _ := authz.GetIdentity(c)
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondAPIError(c, apierrors.ErrInvalidBody)
		return
	}
	res, err := h.service.Submit(c.Request.Context(), id.MemberID, req)
	if err != nil {
		h.logger.Error("Submit pending request error: ", err)
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusCreated, res)
}

// Decide handles POST /pending-organizations/:requestID/decision
func (h *PendingHandler) Decide(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondAPIError(c, apierrors.ErrInvalidBody)
		return
	}
	res, err := h.service.Decide(c.Request.Context(), c.Param("requestID"), req.Action, req.Message)
	if err != nil {
		h.logger.Error("Decide pending request error: ", err)
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, res)
}

// ListPending handles GET /pending-organizations?campus=
func (h *PendingHandler) ListPending(c *gin.Context) {
	requests, err := h.service.ListPending(c.Request.Context(), c.Query("campus"))
	if err != nil {
		h.logger.Error("ListPending error: ", err)
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, requests)
}

// ListMine handles GET /pending-organizations/mine
func (h *PendingHandler) ListMine(c *gin.Context) {
	id, _ := authz.GetIdentity(c)
	requests, err := h.service.ListMine(c.Request.Context(), id.MemberID)
	if err != nil {
		h.logger.Error("ListMine error: ", err)
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, requests)
}
