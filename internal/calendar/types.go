package calendar

import (
	"time"

	apierrors "github.com/UofT-ClubHub/Campus-Compass-sub000/internal/errors"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/model"
)

const (
	opCreateFromPost = "calendar_create_from_post"
	opPostDeleted    = "calendar_post_deleted"
	opCreate         = "calendar_create"
	opUpdate         = "calendar_update"
	opDelete         = "calendar_delete"
)

// DefaultTitle is used when the source post has no title.
const DefaultTitle = "Untitled Event"

// CreateFromPostRequest is the request body for adding a post to the caller's calendar.
type CreateFromPostRequest struct {
	PostID string `json:"postId" binding:"required"`
}

// EventRequest is the request body for an event the member adds by hand.
type EventRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Date        string `json:"date" binding:"required"`
	StartTime   string `json:"startTime"`
	Location    string `json:"location"`
}

// EventUpdateRequest lists the fields to change. Nil fields keep their value.
type EventUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	StartTime   *string `json:"startTime"`
	Location    *string `json:"location"`
}

func (r EventUpdateRequest) apply(e *model.CalendarEvent) {
	if r.Title != nil {
		e.Title = *r.Title
	}
	if r.Description != nil {
		e.Description = *r.Description
	}
	if r.Date != nil {
		e.Date = *r.Date
	}
	if r.StartTime != nil {
		e.StartTime = *r.StartTime
	}
	if r.Location != nil {
		e.Location = *r.Location
	}
}

// EventView is a calendar event as reported to callers.
type EventView struct {
	ID             string    `json:"id"`
	OwnerMemberID  string    `json:"ownerMemberId"`
	SourcePostID   string    `json:"sourcePostId,omitempty"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Date           string    `json:"date"`
	StartTime      string    `json:"startTime,omitempty"`
	Location       string    `json:"location,omitempty"`
	OrganizationID string    `json:"organizationId,omitempty"`
	PostDeleted    bool      `json:"postDeleted"`
	CreatedAt      time.Time `json:"createdAt"`
}

func newEventView(e *model.CalendarEvent) *EventView {
	return &EventView{
		ID:             e.ID,
		OwnerMemberID:  e.OwnerMemberID,
		SourcePostID:   e.SourcePostID,
		Title:          e.Title,
		Description:    e.Description,
		Date:           e.Date,
		StartTime:      e.StartTime,
		Location:       e.Location,
		OrganizationID: e.OrganizationID,
		PostDeleted:    e.PostDeleted,
		CreatedAt:      e.CreatedAt,
	}
}

// DuplicateEventError is returned when the member already has an event for
// the post. It wraps ErrDuplicateCalendarEvent.
type DuplicateEventError struct {
	EventID string
}

func (e *DuplicateEventError) Error() string {
	return apierrors.ErrDuplicateCalendarEvent.Message
}

func (e *DuplicateEventError) Unwrap() error {
	return apierrors.ErrDuplicateCalendarEvent
}
