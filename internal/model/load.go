package model

import (
	"context"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
)

// SkippedReference is a reference an operation could not resolve and stepped
// over instead of failing.
type SkippedReference struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Reason     string `json:"reason"`
}

// The loaders below return docstore.ErrNotFound unchanged so callers can choose
// between failing and skipping.

func LoadMember(ctx context.Context, store docstore.Store, id string) (*Member, error) {
	doc, err := store.Get(ctx, CollectionMembers, id)
	if err != nil {
		return nil, err
	}
	return DecodeMember(doc)
}

func LoadOrganization(ctx context.Context, store docstore.Store, id string) (*Organization, error) {
	doc, err := store.Get(ctx, CollectionOrganizations, id)
	if err != nil {
		return nil, err
	}
	return DecodeOrganization(doc)
}

func LoadPost(ctx context.Context, store docstore.Store, id string) (*Post, error) {
	doc, err := store.Get(ctx, CollectionPosts, id)
	if err != nil {
		return nil, err
	}
	return DecodePost(doc)
}

func LoadPendingRequest(ctx context.Context, store docstore.Store, id string) (*PendingOrganizationRequest, error) {
	doc, err := store.Get(ctx, CollectionPendingOrganizations, id)
	if err != nil {
		return nil, err
	}
	return DecodePendingRequest(doc)
}

func LoadPosition(ctx context.Context, store docstore.Store, orgID string, p Partition, id string) (*Position, error) {
	doc, err := store.Get(ctx, PositionsCollection(orgID, p), id)
	if err != nil {
		return nil, err
	}
	return DecodePosition(doc)
}
