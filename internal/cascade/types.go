package cascade

import (
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/model"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/utils"
)

const (
	opDeleteOrganization = "delete_organization"
	opDeletePost         = "delete_post"
)

// DefaultQueryConcurrency bounds parallel liker lookups when none is configured.
const DefaultQueryConcurrency = 8

// OrganizationResult reports a completed organization cascade. Cleaned counts
// the member references removed; Skipped lists references that no longer
// resolved and were stepped over.
type OrganizationResult struct {
	OrganizationID   string                   `json:"organizationId"`
	Cleaned          int                      `json:"cleaned"`
	DeletedPosts     []string                 `json:"deletedPosts"`
	DeletedPositions int                      `json:"deletedPositions"`
	FlaggedEvents    int                      `json:"flaggedEvents"`
	Skipped          []model.SkippedReference `json:"skipped"`
}

// PostResult reports a completed post deletion.
type PostResult struct {
	PostID        string                   `json:"postId"`
	Cleaned       int                      `json:"cleaned"`
	FlaggedEvents int                      `json:"flaggedEvents"`
	Skipped       []model.SkippedReference `json:"skipped"`
}

// memberEdit accumulates every change to one member so the batch carries a
// single update computed from one read.
type memberEdit struct {
	member  *model.Member
	fields  docstore.Fields
	removed int
}

func newMemberEdit(m *model.Member) *memberEdit {
	return &memberEdit{member: m, fields: docstore.Fields{}}
}

func (e *memberEdit) unfollow(orgID string) {
	if !utils.Contains(e.member.FollowedOrganizations, orgID) {
		return
	}
	e.member.FollowedOrganizations = utils.WithoutID(e.member.FollowedOrganizations, orgID)
	e.fields[model.FieldFollowedOrganizations] = e.member.FollowedOrganizations
	e.removed++
}

func (e *memberEdit) unmanage(orgID string) {
	if !utils.Contains(e.member.ManagedOrganizations, orgID) {
		return
	}
	e.member.ManagedOrganizations = utils.WithoutID(e.member.ManagedOrganizations, orgID)
	e.fields[model.FieldManagedOrganizations] = e.member.ManagedOrganizations
	e.fields[model.FieldIsExecutive] = len(e.member.ManagedOrganizations) > 0
	e.removed++
}

func (e *memberEdit) unlike(postID string) {
	if !utils.Contains(e.member.LikedPosts, postID) {
		return
	}
	e.member.LikedPosts = utils.WithoutID(e.member.LikedPosts, postID)
	e.fields[model.FieldLikedPosts] = e.member.LikedPosts
	e.removed++
}
