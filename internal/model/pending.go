package model

import (
	"time"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
)

// RequestStatus is the state of a pending organization request. Approved and
// rejected are terminal.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Terminal reports whether no further decision is allowed.
func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// PendingOrganizationRequest is a member's proposal to create an organization.
type PendingOrganizationRequest struct {
	ID      string `mapstructure:"-"`
	Version int64  `mapstructure:"-"`

	RequesterID     string        `mapstructure:"requester_id" validate:"required"`
	Name            string        `mapstructure:"name" validate:"notblank"`
	Campus          string        `mapstructure:"campus" validate:"notblank"`
	Description     string        `mapstructure:"description" validate:"notblank"`
	Department      string        `mapstructure:"department"`
	Image           string        `mapstructure:"image"`
	Instagram       string        `mapstructure:"instagram"`
	Status          RequestStatus `mapstructure:"status" validate:"oneof=pending approved rejected"`
	DecisionMessage string        `mapstructure:"decision_message"`
	CreatedAt       time.Time     `mapstructure:"created_at"`
	DecidedAt       *time.Time    `mapstructure:"decided_at"`
}

// DecodePendingRequest converts a stored document into a request.
func DecodePendingRequest(doc *docstore.Document) (*PendingOrganizationRequest, error) {
	var r PendingOrganizationRequest
	if err := decodeFields(doc.Fields, &r); err != nil {
		return nil, err
	}
	r.ID = doc.ID
	r.Version = doc.Version
	return &r, nil
}

// ToFields encodes the request for a full write.
func (r *PendingOrganizationRequest) ToFields() docstore.Fields {
	return docstore.Fields{
		FieldRequesterID:     r.RequesterID,
		"name":               r.Name,
		"campus":             r.Campus,
		"description":        r.Description,
		"department":         r.Department,
		"image":              r.Image,
		"instagram":          r.Instagram,
		FieldStatus:          string(r.Status),
		FieldDecisionMessage: r.DecisionMessage,
		"created_at":         r.CreatedAt.UTC(),
		FieldDecidedAt:       optionalTime(r.DecidedAt),
	}
}
