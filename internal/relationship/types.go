package relationship

import "github.com/UofT-ClubHub/Campus-Compass-sub000/internal/model"

// Operation names used in logs and metrics.
const (
	opSetExecutives           = "set_executives"
	opSetManagedOrganizations = "set_managed_organizations"
	opToggleFollow            = "toggle_follow"
	opToggleLike              = "toggle_like"
)

// SetExecutivesRequest is the request body for replacing an organization's executives.
type SetExecutivesRequest struct {
	Executives []string `json:"executives" binding:"required"` // Authoritative executive member ids
}

// SetManagedOrganizationsRequest is the request body for replacing a member's managed organizations.
type SetManagedOrganizationsRequest struct {
	Organizations []string `json:"organizations" binding:"required"` // Authoritative organization ids
}

// ToggleFollowRequest is the request body for following or unfollowing an organization.
type ToggleFollowRequest struct {
	OrganizationID string `json:"organizationId" binding:"required"`
}

// ToggleLikeRequest is the request body for liking or unliking a post.
type ToggleLikeRequest struct {
	PostID string `json:"postId" binding:"required"`
}

// ExecutivesResult reports the outcome of SetExecutives.
type ExecutivesResult struct {
	OrganizationID string                   `json:"organizationId"`
	Executives     []string                 `json:"executives"`
	Added          []string                 `json:"added"`
	Removed        []string                 `json:"removed"`
	Skipped        []model.SkippedReference `json:"skipped"`
}

// ManagedOrganizationsResult reports the outcome of SetManagedOrganizations.
type ManagedOrganizationsResult struct {
	MemberID             string                   `json:"memberId"`
	ManagedOrganizations []string                 `json:"managedOrganizations"`
	IsExecutive          bool                     `json:"isExecutive"`
	Added                []string                 `json:"added"`
	Removed              []string                 `json:"removed"`
	Skipped              []model.SkippedReference `json:"skipped"`
}

// FollowResult is the follow state after a toggle.
type FollowResult struct {
	Following     bool `json:"following"`
	FollowerCount int  `json:"followerCount"`
}

// LikeResult is the like state after a toggle.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}
