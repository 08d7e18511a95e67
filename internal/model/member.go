package model

import (
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
)

// Member is a user of the platform. IsExecutive mirrors whether
// ManagedOrganizations is non-empty.
type Member struct {
	ID      string `mapstructure:"-"`
	Version int64  `mapstructure:"-"`

	Email                 string   `mapstructure:"email" validate:"omitempty,email"`
	Name                  string   `mapstructure:"name"`
	Campus                string   `mapstructure:"campus"`
	Bio                   string   `mapstructure:"bio"`
	IsAdmin               bool     `mapstructure:"is_admin"`
	IsExecutive           bool     `mapstructure:"is_executive"`
	ManagedOrganizations  []string `mapstructure:"managed_organizations"`
	FollowedOrganizations []string `mapstructure:"followed_organizations"`
	LikedPosts            []string `mapstructure:"liked_posts"`
}

// DecodeMember converts a stored document into a Member.
func DecodeMember(doc *docstore.Document) (*Member, error) {
	var m Member
	if err := decodeFields(doc.Fields, &m); err != nil {
		return nil, err
	}
	m.ID = doc.ID
	m.Version = doc.Version
	return &m, nil
}

// ToFields encodes the member for a full write.
func (m *Member) ToFields() docstore.Fields {
	return docstore.Fields{
		"email":                    m.Email,
		"name":                     m.Name,
		"campus":                   m.Campus,
		"bio":                      m.Bio,
		"is_admin":                 m.IsAdmin,
		FieldIsExecutive:           m.IsExecutive,
		FieldManagedOrganizations:  stringSlice(m.ManagedOrganizations),
		FieldFollowedOrganizations: stringSlice(m.FollowedOrganizations),
		FieldLikedPosts:            stringSlice(m.LikedPosts),
	}
}
