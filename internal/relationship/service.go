// Package relationship keeps the two sides of member/organization/post
// relationships in step: executives and managed organizations, follows and
// follower counts, likes and like counts.
package relationship

import (
	"context"
	"errors"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/authz"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
	apierrors "github.com/UofT-ClubHub/Campus-Compass-sub000/internal/errors"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/guard"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/lock"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/metrics"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/model"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/utils"
	"github.com/sirupsen/logrus"
)

// Service synchronizes bidirectional and counted relationships.
type Service struct {
	store  docstore.Store
	guard  *guard.Guard
	logger *logrus.Logger
}

// NewService creates a new relationship Service.
func NewService(store docstore.Store, g *guard.Guard, logger *logrus.Logger) *Service {
	return &Service{store: store, guard: g, logger: logger}
}

// SetExecutives makes ids the executives of the organization and mirrors the
// change into every affected member's managed organizations. Member ids that do
// not resolve are skipped and left out of the organization's executives.
func (s *Service) SetExecutives(ctx context.Context, orgID string, ids []string) (*ExecutivesResult, error) {
	ids = utils.Dedupe(ids)
	keys := []string{lock.Key(model.CollectionOrganizations, orgID)}
	for _, id := range ids {
		keys = append(keys, lock.Key(model.CollectionMembers, id))
	}

	var result *ExecutivesResult
	err := s.guard.Run(ctx, opSetExecutives, keys, func(ctx context.Context) error {
		b := s.store.Batch()
		res, err := s.queueSetExecutives(ctx, b, orgID, ids)
		if err != nil {
			return err
		}
		if err := s.guard.Commit(ctx, opSetExecutives, b); err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"orgID":   orgID,
		"added":   result.Added,
		"removed": result.Removed,
		"skipped": len(result.Skipped),
	}).Info("Organization executives updated")
	return result, nil
}

// QueueNewOrganizationExecutives adds the writes that make ids the executives
// of an organization created earlier in b. Nothing is committed.
func (s *Service) QueueNewOrganizationExecutives(ctx context.Context, b docstore.Batch, orgID string, ids []string) (*ExecutivesResult, error) {
	return s.queueExecutivesDiff(ctx, b, orgID, nil, utils.Dedupe(ids))
}

func (s *Service) queueSetExecutives(ctx context.Context, b docstore.Batch, orgID string, ids []string) (*ExecutivesResult, error) {
	org, err := model.LoadOrganization(ctx, s.store, orgID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apierrors.ErrOrganizationNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.queueExecutivesDiff(ctx, b, orgID, org.Executives, ids, docstore.IfVersion(org.Version))
}

// queueExecutivesDiff queues the member and organization writes that move the
// organization's executives from prev to next.
func (s *Service) queueExecutivesDiff(ctx context.Context, b docstore.Batch, orgID string, prev, next []string, orgPre ...docstore.Precondition) (*ExecutivesResult, error) {
	added, removed := utils.Diff(prev, next)
	res := &ExecutivesResult{OrganizationID: orgID, Added: []string{}, Removed: []string{}, Skipped: []model.SkippedReference{}}
	dangling := map[string]bool{}

	for _, id := range added {
		m, err := model.LoadMember(ctx, s.store, id)
		if errors.Is(err, docstore.ErrNotFound) {
			res.Skipped = append(res.Skipped, s.skipMember(opSetExecutives, orgID, id))
			dangling[id] = true
			continue
		}
		if err != nil {
			return nil, err
		}
		managed := utils.WithID(m.ManagedOrganizations, orgID)
		b.Update(model.CollectionMembers, id, docstore.Fields{
			model.FieldManagedOrganizations: managed,
			model.FieldIsExecutive:          true,
		}, docstore.IfVersion(m.Version))
		res.Added = append(res.Added, id)
	}

	for _, id := range removed {
		m, err := model.LoadMember(ctx, s.store, id)
		if errors.Is(err, docstore.ErrNotFound) {
			res.Skipped = append(res.Skipped, s.skipMember(opSetExecutives, orgID, id))
			continue
		}
		if err != nil {
			return nil, err
		}
		managed := utils.WithoutID(m.ManagedOrganizations, orgID)
		b.Update(model.CollectionMembers, id, docstore.Fields{
			model.FieldManagedOrganizations: managed,
			model.FieldIsExecutive:          len(managed) > 0,
		}, docstore.IfVersion(m.Version))
		res.Removed = append(res.Removed, id)
	}

	res.Executives = make([]string, 0, len(next))
	for _, id := range next {
		if !dangling[id] {
			res.Executives = append(res.Executives, id)
		}
	}
	b.Update(model.CollectionOrganizations, orgID, docstore.Fields{
		model.FieldExecutives: res.Executives,
	}, orgPre...)
	return res, nil
}

// SetExecutivesAs runs SetExecutives on behalf of actor, who must be an admin
// or an executive of the organization.
func (s *Service) SetExecutivesAs(ctx context.Context, actor authz.Identity, orgID string, ids []string) (*ExecutivesResult, error) {
	if err := authz.RequireManager(ctx, s.store, actor, orgID); err != nil {
		s.logger.WithFields(logrus.Fields{
			"memberID": actor.MemberID,
			"orgID":    orgID,
		}).Warn("Executive update rejected")
		return nil, s.guard.Translate(opSetExecutives, err)
	}
	return s.SetExecutives(ctx, orgID, ids)
}

// SetManagedOrganizations makes orgIDs the organizations the member manages and
// mirrors the change into each organization's executives. A non-admin actor
// may only grant organizations they manage themselves. Organizations that do
// not resolve are skipped.
func (s *Service) SetManagedOrganizations(ctx context.Context, actor authz.Identity, memberID string, orgIDs []string) (*ManagedOrganizationsResult, error) {
	orgIDs = utils.Dedupe(orgIDs)
	keys := []string{lock.Key(model.CollectionMembers, memberID)}
	for _, id := range orgIDs {
		keys = append(keys, lock.Key(model.CollectionOrganizations, id))
	}

	var result *ManagedOrganizationsResult
	err := s.guard.Run(ctx, opSetManagedOrganizations, keys, func(ctx context.Context) error {
		m, err := model.LoadMember(ctx, s.store, memberID)
		if errors.Is(err, docstore.ErrNotFound) {
			return apierrors.ErrMemberNotFound
		}
		if err != nil {
			return err
		}
		added, removed := utils.Diff(m.ManagedOrganizations, orgIDs)

		if !actor.IsAdmin {
			actorManaged := m.ManagedOrganizations
			if actor.MemberID != memberID {
				am, err := model.LoadMember(ctx, s.store, actor.MemberID)
				if errors.Is(err, docstore.ErrNotFound) {
					return apierrors.ErrNotExecutive
				}
				if err != nil {
					return err
				}
				actorManaged = am.ManagedOrganizations
			}
			for _, id := range added {
				if !authz.CanManage(actor, actorManaged, id) {
					return apierrors.ErrNotExecutive
				}
			}
			if actor.MemberID != memberID {
				for _, id := range removed {
					if !authz.CanManage(actor, actorManaged, id) {
						return apierrors.ErrNotExecutive
					}
				}
			}
		}

		res := &ManagedOrganizationsResult{MemberID: memberID, Added: []string{}, Removed: []string{}, Skipped: []model.SkippedReference{}}
		dangling := map[string]bool{}
		b := s.store.Batch()
		for _, id := range added {
			org, err := model.LoadOrganization(ctx, s.store, id)
			if errors.Is(err, docstore.ErrNotFound) {
				res.Skipped = append(res.Skipped, s.skipOrganization(memberID, id))
				dangling[id] = true
				continue
			}
			if err != nil {
				return err
			}
			b.Update(model.CollectionOrganizations, id, docstore.Fields{
				model.FieldExecutives: utils.WithID(org.Executives, memberID),
			}, docstore.IfVersion(org.Version))
			res.Added = append(res.Added, id)
		}
		for _, id := range removed {
			org, err := model.LoadOrganization(ctx, s.store, id)
			if errors.Is(err, docstore.ErrNotFound) {
				res.Skipped = append(res.Skipped, s.skipOrganization(memberID, id))
				res.Removed = append(res.Removed, id)
				continue
			}
			if err != nil {
				return err
			}
			b.Update(model.CollectionOrganizations, id, docstore.Fields{
				model.FieldExecutives: utils.WithoutID(org.Executives, memberID),
			}, docstore.IfVersion(org.Version))
			res.Removed = append(res.Removed, id)
		}

		res.ManagedOrganizations = make([]string, 0, len(orgIDs))
		for _, id := range orgIDs {
			if !dangling[id] {
				res.ManagedOrganizations = append(res.ManagedOrganizations, id)
			}
		}
		res.IsExecutive = len(res.ManagedOrganizations) > 0
		b.Update(model.CollectionMembers, memberID, docstore.Fields{
			model.FieldManagedOrganizations: res.ManagedOrganizations,
			model.FieldIsExecutive:          res.IsExecutive,
		}, docstore.IfVersion(m.Version))

		if err := s.guard.Commit(ctx, opSetManagedOrganizations, b); err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"memberID": memberID,
		"actorID":  actor.MemberID,
		"added":    result.Added,
		"removed":  result.Removed,
	}).Info("Managed organizations updated")
	return result, nil
}

// ToggleFollow follows the organization if the member does not follow it yet,
// and unfollows it otherwise. The follower count never drops below zero.
func (s *Service) ToggleFollow(ctx context.Context, memberID, orgID string) (*FollowResult, error) {
	keys := []string{lock.Key(model.CollectionMembers, memberID), lock.Key(model.CollectionOrganizations, orgID)}

	var result *FollowResult
	err := s.guard.Run(ctx, opToggleFollow, keys, func(ctx context.Context) error {
		m, err := model.LoadMember(ctx, s.store, memberID)
		if errors.Is(err, docstore.ErrNotFound) {
			return apierrors.ErrMemberNotFound
		}
		if err != nil {
			return err
		}
		org, err := model.LoadOrganization(ctx, s.store, orgID)
		if errors.Is(err, docstore.ErrNotFound) {
			return apierrors.ErrOrganizationNotFound
		}
		if err != nil {
			return err
		}

		following := utils.Contains(m.FollowedOrganizations, orgID)
		var followed []string
		count := org.FollowerCount
		if following {
			followed = utils.WithoutID(m.FollowedOrganizations, orgID)
			count = decrement(count)
		} else {
			followed = utils.WithID(m.FollowedOrganizations, orgID)
			count++
		}

		b := s.store.Batch()
		b.Update(model.CollectionMembers, memberID, docstore.Fields{model.FieldFollowedOrganizations: followed}, docstore.IfVersion(m.Version))
		b.Update(model.CollectionOrganizations, orgID, docstore.Fields{model.FieldFollowerCount: count}, docstore.IfVersion(org.Version))
		if err := s.guard.Commit(ctx, opToggleFollow, b); err != nil {
			return err
		}
		result = &FollowResult{Following: !following, FollowerCount: count}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"memberID":      memberID,
		"orgID":         orgID,
		"following":     result.Following,
		"followerCount": result.FollowerCount,
	}).Info("Follow toggled")
	return result, nil
}

// ToggleLike likes the post if the member has not liked it yet, and unlikes it
// otherwise. The like count never drops below zero.
func (s *Service) ToggleLike(ctx context.Context, memberID, postID string) (*LikeResult, error) {
	keys := []string{lock.Key(model.CollectionMembers, memberID), lock.Key(model.CollectionPosts, postID)}

	var result *LikeResult
	err := s.guard.Run(ctx, opToggleLike, keys, func(ctx context.Context) error {
		m, err := model.LoadMember(ctx, s.store, memberID)
		if errors.Is(err, docstore.ErrNotFound) {
			return apierrors.ErrMemberNotFound
		}
		if err != nil {
			return err
		}
		post, err := model.LoadPost(ctx, s.store, postID)
		if errors.Is(err, docstore.ErrNotFound) {
			return apierrors.ErrPostNotFound
		}
		if err != nil {
			return err
		}

		liked := utils.Contains(m.LikedPosts, postID)
		var likedPosts []string
		count := post.LikeCount
		if liked {
			likedPosts = utils.WithoutID(m.LikedPosts, postID)
			count = decrement(count)
		} else {
			likedPosts = utils.WithID(m.LikedPosts, postID)
			count++
		}

		b := s.store.Batch()
		b.Update(model.CollectionMembers, memberID, docstore.Fields{model.FieldLikedPosts: likedPosts}, docstore.IfVersion(m.Version))
		b.Update(model.CollectionPosts, postID, docstore.Fields{model.FieldLikeCount: count}, docstore.IfVersion(post.Version))
		if err := s.guard.Commit(ctx, opToggleLike, b); err != nil {
			return err
		}
		result = &LikeResult{Liked: !liked, LikeCount: count}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"memberID":  memberID,
		"postID":    postID,
		"liked":     result.Liked,
		"likeCount": result.LikeCount,
	}).Info("Like toggled")
	return result, nil
}

func (s *Service) skipMember(operation, orgID, memberID string) model.SkippedReference {
	s.guard.Skipped(operation, metrics.ReasonMemberNotFound, logrus.Fields{"orgID": orgID, "memberID": memberID})
	return model.SkippedReference{Collection: model.CollectionMembers, ID: memberID, Reason: metrics.ReasonMemberNotFound}
}

func (s *Service) skipOrganization(memberID, orgID string) model.SkippedReference {
	s.guard.Skipped(opSetManagedOrganizations, metrics.ReasonOrganizationNotFound, logrus.Fields{"orgID": orgID, "memberID": memberID})
	return model.SkippedReference{Collection: model.CollectionOrganizations, ID: orgID, Reason: metrics.ReasonOrganizationNotFound}
}

func decrement(n int) int {
	if n <= 0 {
		return 0
	}
	return n - 1
}
