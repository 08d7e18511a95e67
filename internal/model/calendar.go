package model

import (
	"time"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
)

// CalendarEvent is a member's personal calendar entry. Entries derived from a
// post are snapshots; PostDeleted is set once the source post is gone.
type CalendarEvent struct {
	ID      string `mapstructure:"-"`
	Version int64  `mapstructure:"-"`

	OwnerMemberID  string    `mapstructure:"owner_member_id" validate:"required"`
	SourcePostID   string    `mapstructure:"source_post_id"`
	Title          string    `mapstructure:"title" validate:"required"`
	Description    string    `mapstructure:"description"`
	Date           string    `mapstructure:"date" validate:"required,datetime=2006-01-02"`
	StartTime      string    `mapstructure:"start_time" validate:"omitempty,datetime=15:04"`
	Location       string    `mapstructure:"location"`
	OrganizationID string    `mapstructure:"organization_id"`
	PostDeleted    bool      `mapstructure:"post_deleted"`
	CreatedAt      time.Time `mapstructure:"created_at"`
	UpdatedAt      time.Time `mapstructure:"updated_at"`
}

// DecodeCalendarEvent converts a stored document into a CalendarEvent.
func DecodeCalendarEvent(doc *docstore.Document) (*CalendarEvent, error) {
	var e CalendarEvent
	if err := decodeFields(doc.Fields, &e); err != nil {
		return nil, err
	}
	e.ID = doc.ID
	e.Version = doc.Version
	return &e, nil
}

// ToFields encodes the event for a full write.
func (e *CalendarEvent) ToFields() docstore.Fields {
	return docstore.Fields{
		FieldOwnerMemberID:  e.OwnerMemberID,
		FieldSourcePostID:   e.SourcePostID,
		"title":             e.Title,
		"description":       e.Description,
		"date":              e.Date,
		"start_time":        e.StartTime,
		"location":          e.Location,
		FieldOrganizationID: e.OrganizationID,
		FieldPostDeleted:    e.PostDeleted,
		"created_at":        e.CreatedAt.UTC(),
		FieldUpdatedAt:      e.UpdatedAt.UTC(),
	}
}
