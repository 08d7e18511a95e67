package authz

import (
	"context"
	"errors"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
	apierrors "github.com/UofT-ClubHub/Campus-Compass-sub000/internal/errors"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/model"
)

// RequireManager fails with ErrNotExecutive unless id is an admin or the
// organization is in the caller's own managed organizations. The member
// document is read fresh; the identity's IsExecutive flag is not trusted for
// ownership.
func RequireManager(ctx context.Context, store docstore.Store, id Identity, orgID string) error {
	if id.IsAdmin {
		return nil
	}
	m, err := model.LoadMember(ctx, store, id.MemberID)
	if errors.Is(err, docstore.ErrNotFound) {
		return apierrors.ErrNotExecutive
	}
	if err != nil {
		return err
	}
	if !CanManage(id, m.ManagedOrganizations, orgID) {
		return apierrors.ErrNotExecutive
	}
	return nil
}
