package model

import (
	"time"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
)

// Post is content published by an organization. LikeCount counts the members
// whose LikedPosts contain the post.
type Post struct {
	ID      string `mapstructure:"-"`
	Version int64  `mapstructure:"-"`

	Title          string     `mapstructure:"title"`
	Details        string     `mapstructure:"details"`
	OrganizationID string     `mapstructure:"organization_id" validate:"required"`
	Campus         string     `mapstructure:"campus"`
	Department     string     `mapstructure:"department"`
	Category       string     `mapstructure:"category"`
	LikeCount      int        `mapstructure:"like_count" validate:"gte=0"`
	Hashtags       []string   `mapstructure:"hashtags"`
	Links          []string   `mapstructure:"links"`
	Image          string     `mapstructure:"image"`
	OccursAt       *time.Time `mapstructure:"occurs_at"`
	PostedAt       time.Time  `mapstructure:"posted_at"`
}

// DecodePost converts a stored document into a Post.
func DecodePost(doc *docstore.Document) (*Post, error) {
	var p Post
	if err := decodeFields(doc.Fields, &p); err != nil {
		return nil, err
	}
	p.ID = doc.ID
	p.Version = doc.Version
	return &p, nil
}

// ToFields encodes the post for a full write.
func (p *Post) ToFields() docstore.Fields {
	return docstore.Fields{
		"title":             p.Title,
		"details":           p.Details,
		FieldOrganizationID: p.OrganizationID,
		"campus":            p.Campus,
		"department":        p.Department,
		"category":          p.Category,
		FieldLikeCount:      p.LikeCount,
		"hashtags":          stringSlice(p.Hashtags),
		"links":             stringSlice(p.Links),
		"image":             p.Image,
		"occurs_at":         optionalTime(p.OccursAt),
		"posted_at":         p.PostedAt.UTC(),
	}
}
