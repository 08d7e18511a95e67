// Package model holds the typed documents of the community platform and their
// encoding to and from the document store.
package model

import (
	"fmt"
	"strings"
)

// Top-level collections.
const (
	CollectionMembers              = "Members"
	CollectionOrganizations        = "Organizations"
	CollectionPosts                = "Posts"
	CollectionPendingOrganizations = "PendingOrganizations"
	CollectionCalendarEvents       = "CalendarEvents"
)

// Partition is the state of a position, stored as the subcollection it lives in.
type Partition string

const (
	PartitionOpen   Partition = "open"
	PartitionClosed Partition = "closed"
)

// ParsePartition accepts "open" or "closed" in any case.
func ParsePartition(s string) (Partition, error) {
	switch Partition(strings.ToLower(strings.TrimSpace(s))) {
	case PartitionOpen:
		return PartitionOpen, nil
	case PartitionClosed:
		return PartitionClosed, nil
	}
	return "", fmt.Errorf("unknown partition %q", s)
}

// Other returns the opposite partition.
func (p Partition) Other() Partition {
	if p == PartitionOpen {
		return PartitionClosed
	}
	return PartitionOpen
}

// PositionsCollection returns the subcollection path holding an organization's
// positions in partition p.
func PositionsCollection(orgID string, p Partition) string {
	if p == PartitionClosed {
		return CollectionOrganizations + "/" + orgID + "/ClosedPositions"
	}
	return CollectionOrganizations + "/" + orgID + "/OpenPositions"
}

// Document field names that are queried or partially updated.
const (
	FieldManagedOrganizations  = "managed_organizations"
	FieldFollowedOrganizations = "followed_organizations"
	FieldLikedPosts            = "liked_posts"
	FieldIsExecutive           = "is_executive"
	FieldExecutives            = "executives"
	FieldFollowerCount         = "follower_count"
	FieldLikeCount             = "like_count"
	FieldOrganizationID        = "organization_id"
	FieldRequesterID           = "requester_id"
	FieldStatus                = "status"
	FieldDecisionMessage       = "decision_message"
	FieldDecidedAt             = "decided_at"
	FieldOwnerMemberID         = "owner_member_id"
	FieldSourcePostID          = "source_post_id"
	FieldPostDeleted           = "post_deleted"
	FieldUpdatedAt             = "updated_at"
)
