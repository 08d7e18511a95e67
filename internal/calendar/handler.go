package calendar

import (
	"errors"
	"net/http"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/authz"
	apierrors "github.com/UofT-ClubHub/Campus-Compass-sub000/internal/errors"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CalendarHandler handles HTTP requests for personal calendar events.
type CalendarHandler struct {
	service *Service
	logger  *logrus.Logger
}

// NewCalendarHandler creates a new CalendarHandler.
func NewCalendarHandler(service *Service, logger *logrus.Logger) *CalendarHandler {
	return &CalendarHandler{service, logger}
}

// RegisterCalendarRoutes registers calendar routes with JWT and role middleware.
func RegisterCalendarRoutes(handler *CalendarHandler,
	routerGroup *gin.RouterGroup,
	jwtMiddleware gin.HandlerFunc,
	authzMiddleware *authz.Middleware) {
	group := routerGroup.Group("/calendar")
	group.Use(jwtMiddleware)

	group.GET("", authzMiddleware.Require(authz.ResourceCalendar, authz.ActionRead), handler.ListMine)
	group.GET("/:eventID", authzMiddleware.Require(authz.ResourceCalendar, authz.ActionRead), handler.Get)
	group.POST("", authzMiddleware.Require(authz.ResourceCalendar, authz.ActionWrite), handler.Create)
	group.POST("/from-post", authzMiddleware.Require(authz.ResourceCalendar, authz.ActionWrite), handler.CreateFromPost)
	group.PUT("/:eventID", authzMiddleware.Require(authz.ResourceCalendar, authz.ActionWrite), handler.Update)
	group.DELETE("/:eventID", authzMiddleware.Require(authz.ResourceCalendar, authz.ActionDelete), handler.Delete)
}

// Create handles POST /calendar
func (h *CalendarHandler) Create(c *gin.Context) {
	id, _ := authz.GetIdentity(c)
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondAPIError(c, apierrors.ErrInvalidBody)
		return
	}
	event, err := h.service.Create(c.Request.Context(), id.MemberID, req)
	if err != nil {
		h.logger.Error("Create calendar event error: ", err)
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusCreated, event)
}

// Get handles GET /calendar/:eventID
func (h *CalendarHandler) Get(c *gin.Context) {
	id, _ := authz.GetIdentity(c)
	event, err := h.service.Get(c.Request.Context(), id.MemberID, c.Param("eventID"))
	if err != nil {
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, event)
}

// Update handles PUT /calendar/:eventID
func (h *CalendarHandler) Update(c *gin.Context) {
	id, _ := authz.GetIdentity(c)
	var req EventUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondAPIError(c, apierrors.ErrInvalidBody)
		return
	}
	event, err := h.service.Update(c.Request.Context(), id.MemberID, c.Param("eventID"), req)
	if err != nil {
		h.logger.Error("Update calendar event error: ", err)
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, event)
}

// Delete handles DELETE /calendar/:eventID
func (h *CalendarHandler) Delete(c *gin.Context) {
	id, _ := authz.GetIdentity(c)
	if err := h.service.Delete(c.Request.Context(), id.MemberID, c.Param("eventID")); err != nil {
		h.logger.Error("Delete calendar event error: ", err)
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, gin.H{"message": "calendar event deleted successfully"})
}

// CreateFromPost handles POST /calendar/from-post
func (h *CalendarHandler) CreateFromPost(c *gin.Context) {
	id, _ := authz.GetIdentity(c)
	var req CreateFromPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondAPIError(c, apierrors.ErrInvalidBody)
		return
	}
	event, err := h.service.CreateFromPost(c.Request.Context(), id.MemberID, req.PostID)
	if err != nil {
		var dup *DuplicateEventError
		if errors.As(err, &dup) {
			c.AbortWithStatusJSON(http.StatusConflict, utils.APIResponse[gin.H]{
				Success:   false,
				Data:      gin.H{"eventId": dup.EventID},
				ErrorCode: apierrors.ErrDuplicateCalendarEvent.Code,
				ErrorMsg:  apierrors.ErrDuplicateCalendarEvent.Message,
			})
			return
		}
		h.logger.Error("CreateFromPost error: ", err)
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusCreated, event)
}

// ListMine handles GET /calendar
func (h *CalendarHandler) ListMine(c *gin.Context) {
	id, _ := authz.GetIdentity(c)
	events, err := h.service.ListMine(c.Request.Context(), id.MemberID)
	if err != nil {
		h.logger.Error("ListMine error: ", err)
		utils.RespondAPIError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, events)
}
