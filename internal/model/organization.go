package model

import (
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
)

// Organization is a club. Executives mirrors the members whose
// ManagedOrganizations contain this organization, and FollowerCount counts the
// members following it.
type Organization struct {
	ID      string `mapstructure:"-"`
	Version int64  `mapstructure:"-"`

	Name          string   `mapstructure:"name" validate:"notblank"`
	Description   string   `mapstructure:"description"`
	Campus        string   `mapstructure:"campus" validate:"notblank"`
	Department    string   `mapstructure:"department"`
	Executives    []string `mapstructure:"executives"`
	FollowerCount int      `mapstructure:"follower_count" validate:"gte=0"`
	Links         []string `mapstructure:"links"`
	Image         string   `mapstructure:"image"`
	Instagram     string   `mapstructure:"instagram"`
}

// DecodeOrganization converts a stored document into an Organization.
func DecodeOrganization(doc *docstore.Document) (*Organization, error) {
	var o Organization
	if err := decodeFields(doc.Fields, &o); err != nil {
		return nil, err
	}
	o.ID = doc.ID
	o.Version = doc.Version
	return &o, nil
}

// ToFields encodes the organization for a full write.
func (o *Organization) ToFields() docstore.Fields {
	return docstore.Fields{
		"name":             o.Name,
		"description":      o.Description,
		"campus":           o.Campus,
		"department":       o.Department,
		FieldExecutives:    stringSlice(o.Executives),
		FieldFollowerCount: o.FollowerCount,
		"links":            stringSlice(o.Links),
		"image":            o.Image,
		"instagram":        o.Instagram,
	}
}
