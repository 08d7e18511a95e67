package pending

import (
	"time"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/model"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/relationship"
)

const (
	opSubmit = "pending_submit"
	opDecide = "pending_decide"
	opList   = "pending_list"
)

// DefaultRequestLimit is how many pending requests a member may hold right
// after a submission.
const DefaultRequestLimit = 5

// Decision actions.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// SubmitRequest is the request body for proposing a new organization.
type SubmitRequest struct {
	Name        string `json:"name"`
	Campus      string `json:"campus"`
	Description string `json:"description"`
	Department  string `json:"department"`
	Image       string `json:"image"`
	Instagram   string `json:"instagram"`
}

// DecisionRequest is the request body for approving or rejecting a request.
type DecisionRequest struct {
	Action  string `json:"action" binding:"required"`
	Message string `json:"message"`
}

// RequestView is a pending organization request as reported to callers.
type RequestView struct {
	ID              string              `json:"id"`
	RequesterID     string              `json:"requesterId"`
	Name            string              `json:"name"`
	Campus          string              `json:"campus"`
	Description     string              `json:"description"`
	Department      string              `json:"department,omitempty"`
	Image           string              `json:"image,omitempty"`
	Instagram       string              `json:"instagram,omitempty"`
	Status          model.RequestStatus `json:"status"`
	DecisionMessage string              `json:"decisionMessage,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	DecidedAt       *time.Time          `json:"decidedAt,omitempty"`
}

func newRequestView(r *model.PendingOrganizationRequest) *RequestView {
	return &RequestView{
		ID:              r.ID,
		RequesterID:     r.RequesterID,
		Name:            r.Name,
		Campus:          r.Campus,
		Description:     r.Description,
		Department:      r.Department,
		Image:           r.Image,
		Instagram:       r.Instagram,
		Status:          r.Status,
		DecisionMessage: r.DecisionMessage,
		CreatedAt:       r.CreatedAt,
		DecidedAt:       r.DecidedAt,
	}
}

// SubmitResult reports a submission and the requests it pruned.
type SubmitResult struct {
	Request *RequestView `json:"request"`
	Pruned  []string     `json:"pruned"`
}

// DecisionResult reports a decision. OrganizationID and Executives are set
// only on approval.
type DecisionResult struct {
	Request        *RequestView                   `json:"request"`
	OrganizationID string                         `json:"organizationId,omitempty"`
	Executives     *relationship.ExecutivesResult `json:"executives,omitempty"`
}
